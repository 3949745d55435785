package gateway

import (
	"context"
	"time"
)

// FakeGateway is a scripted Gateway for tests.
type FakeGateway struct {
	Response *Response
	Err      error
	Calls    []FakeCall
}

// FakeCall records one Execute invocation.
type FakeCall struct {
	ToolName string
	UserID   string
	Args     map[string]any
}

func (g *FakeGateway) Execute(ctx context.Context, toolName, userID string, args map[string]any, timeout time.Duration) (*Response, error) {
	g.Calls = append(g.Calls, FakeCall{ToolName: toolName, UserID: userID, Args: args})
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Response, nil
}
