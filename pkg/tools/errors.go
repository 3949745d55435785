package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound is returned when no tool is registered under a name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDuplicateTool is returned when registering a tool whose version is
	// not newer than the one already registered under the same name.
	ErrDuplicateTool = errors.New("tool already registered at this version or newer")

	// ErrUnauthorized is returned when a tool requires auth but no user_id
	// was supplied.
	ErrUnauthorized = errors.New("tool requires authentication")

	// ErrRateLimited is returned when the caller has exceeded either the
	// tool-specific or the global per-user rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrToolTimeout is returned when a tool handler exceeds its wall-clock
	// execution timeout.
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrInvalidToolName is returned when a tool is registered under a name
	// that doesn't match the namespaced category.name shape.
	ErrInvalidToolName = errors.New("invalid tool name")
)

// FieldError describes one schema validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// InvalidArgumentsError wraps one or more FieldError values (spec §4.4 step 2).
type InvalidArgumentsError struct {
	Fields []FieldError
}

func (e *InvalidArgumentsError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("invalid arguments: %s", e.Fields[0])
	}
	return fmt.Sprintf("invalid arguments: %d field errors", len(e.Fields))
}

// ToolHandlerError wraps an error returned by a tool's handler function,
// distinguishing handler-level failures from registry-level rejections.
type ToolHandlerError struct {
	ToolName string
	Err      error
}

func (e *ToolHandlerError) Error() string {
	return fmt.Sprintf("tool %q handler error: %v", e.ToolName, e.Err)
}

func (e *ToolHandlerError) Unwrap() error { return e.Err }
