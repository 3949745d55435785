package tools

import (
	"context"
	"time"
)

// Handler executes a tool call with already-validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a single registered capability (spec §3, §4.4).
type Tool struct {
	Name               string
	Description        string
	ParameterSchema    ParameterSchema
	Handler            Handler
	RequiresAuth       bool
	RateLimitPerMinute int // 0 = unlimited
	Version            int
	ExecutionTimeout   time.Duration // 0 = use registry default
}

// InvocationStatus is the lifecycle state of a ToolInvocation.
type InvocationStatus string

const (
	StatusPending   InvocationStatus = "pending"
	StatusRunning   InvocationStatus = "running"
	StatusSucceeded InvocationStatus = "succeeded"
	StatusFailed    InvocationStatus = "failed"
)

// Invocation records one call through the registry (spec §3).
type Invocation struct {
	InvocationID  string
	ToolName      string
	Arguments     map[string]any
	UserID        string
	StartedAt     time.Time
	CompletedAt   time.Time
	Status        InvocationStatus
	Result        any
	Err           error
}
