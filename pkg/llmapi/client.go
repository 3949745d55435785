package llmapi

import (
	"context"
	"errors"
	"time"

	"github.com/fact-run/fact/pkg/tools"
)

// ErrorKind classifies an LLM provider error (spec §6.1).
type ErrorKind string

const (
	ErrorRateLimited ErrorKind = "rate_limited"
	ErrorTimeout     ErrorKind = "timeout"
	ErrorAuthFailed  ErrorKind = "auth_failed"
	ErrorServer      ErrorKind = "server_error"
	ErrorBadRequest  ErrorKind = "bad_request"
)

// ProviderError wraps a classified failure from an LLM provider.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string { return string(e.Kind) + ": " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the pipeline should retry this class of error
// (spec §4.6: "If the LLM call itself fails, retry with exponential
// backoff"). bad_request and auth_failed are not retryable.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrorRateLimited, ErrorTimeout, ErrorServer:
		return true
	default:
		return false
	}
}

// Client is the single operation the core consumes from an LLM provider
// (spec §6.1): call_llm(system_prompt, messages, tool_schemas, timeout).
type Client interface {
	CallLLM(ctx context.Context, systemPrompt string, messages []Message, toolSchemas []tools.ExportedSchema, timeout time.Duration) (*Result, error)
}

// ClassifyError wraps err as a ProviderError if it isn't already one,
// defaulting to server_error.
func ClassifyError(err error, kind ErrorKind) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Kind: kind, Err: err}
}
