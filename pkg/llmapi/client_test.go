package llmapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderError_RetryableClassification(t *testing.T) {
	cases := map[ErrorKind]bool{
		ErrorRateLimited: true,
		ErrorTimeout:     true,
		ErrorServer:      true,
		ErrorAuthFailed:  false,
		ErrorBadRequest:  false,
	}
	for kind, want := range cases {
		err := &ProviderError{Kind: kind, Err: errors.New("boom")}
		assert.Equal(t, want, err.Retryable(), kind)
	}
}

func TestClassifyError_WrapsPlainError(t *testing.T) {
	err := ClassifyError(errors.New("boom"), ErrorServer)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorServer, pe.Kind)
}

func TestClassifyError_PassesThroughAlreadyClassified(t *testing.T) {
	original := &ProviderError{Kind: ErrorAuthFailed, Err: errors.New("nope")}
	err := ClassifyError(original, ErrorServer)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrorAuthFailed, pe.Kind)
}

func TestFakeClient_ReturnsScriptedResponsesInOrder(t *testing.T) {
	r1 := &Result{Content: []Block{ToolUseBlock("t1", "SQL.QueryReadonly", nil)}, StopReason: StopToolUse}
	r2 := &Result{Content: []Block{TextBlock("done")}, StopReason: StopEndTurn}
	fc := NewFakeClient(r1, r2)

	got1, err := fc.CallLLM(context.Background(), "sys", nil, nil, time.Second)
	require.NoError(t, err)
	assert.Same(t, r1, got1)

	got2, err := fc.CallLLM(context.Background(), "sys", nil, nil, time.Second)
	require.NoError(t, err)
	assert.Same(t, r2, got2)

	// Exhausted: repeats the last response.
	got3, err := fc.CallLLM(context.Background(), "sys", nil, nil, time.Second)
	require.NoError(t, err)
	assert.Same(t, r2, got3)

	assert.Len(t, fc.Recorded, 3)
}

func TestFakeClient_ScriptedErrors(t *testing.T) {
	fc := NewFakeClient(&Result{StopReason: StopEndTurn}).WithErrors(errors.New("unavailable"))
	_, err := fc.CallLLM(context.Background(), "sys", nil, nil, time.Second)
	assert.Error(t, err)
}

func TestResult_TextAndToolUsesHelpers(t *testing.T) {
	r := &Result{Content: []Block{
		TextBlock("hello "),
		ToolUseBlock("t1", "SQL.QueryReadonly", map[string]any{"statement": "select 1"}),
		TextBlock("world"),
	}}
	assert.Equal(t, "hello world", r.Text())
	uses := r.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "SQL.QueryReadonly", uses[0].Name)
}
