package llmapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fact-run/fact/pkg/tools"
)

// FakeClient is a scripted Client for tests (spec §6.1 consumers should
// depend only on the Client interface). Responses are returned in order,
// one per CallLLM invocation; the last response repeats once exhausted.
type FakeClient struct {
	mu        sync.Mutex
	responses []*Result
	errs      []error
	calls     int
	Recorded  []CallRecord
}

// CallRecord captures the arguments of one CallLLM invocation for
// assertions in tests.
type CallRecord struct {
	SystemPrompt string
	Messages     []Message
	ToolSchemas  []tools.ExportedSchema
}

// NewFakeClient builds a FakeClient that returns results in sequence.
func NewFakeClient(results ...*Result) *FakeClient {
	return &FakeClient{responses: results}
}

// WithErrors configures per-call errors, evaluated alongside responses by
// call index (a nil entry means "use the scripted response instead").
func (f *FakeClient) WithErrors(errs ...error) *FakeClient {
	f.errs = errs
	return f
}

func (f *FakeClient) CallLLM(ctx context.Context, systemPrompt string, messages []Message, toolSchemas []tools.ExportedSchema, timeout time.Duration) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Recorded = append(f.Recorded, CallRecord{SystemPrompt: systemPrompt, Messages: messages, ToolSchemas: toolSchemas})

	idx := f.calls
	f.calls++

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}

	if len(f.responses) == 0 {
		return nil, fmt.Errorf("llmapi: FakeClient has no scripted responses")
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}
