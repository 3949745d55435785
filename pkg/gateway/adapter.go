package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/fact-run/fact/pkg/tools"
)

// Handler builds a tools.Handler that forwards invocations of toolName to
// gw (spec §6.2: "Tool handlers that forward to a remote gateway use
// execute(...)"). Gateway-level errors surface as a Go error (handler
// failure); an {status: "error"} response surfaces as the tool result so
// the LLM can react to it (spec §4.4/§4.6 "tool errors are not fatal").
func Handler(gw Gateway, toolName string, timeout time.Duration) tools.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		resp, err := gw.Execute(ctx, toolName, tools.UserID(ctx), args, timeout)
		if err != nil {
			return nil, fmt.Errorf("gateway: %q: %w", toolName, err)
		}
		if resp.Status == StatusError {
			return resp, nil
		}
		return resp.Output, nil
	}
}
