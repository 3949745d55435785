package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fact-run/fact/pkg/breaker"
	"github.com/fact-run/fact/pkg/cache"
	"github.com/fact-run/fact/pkg/llmapi"
	"github.com/fact-run/fact/pkg/rcache"
	"github.com/fact-run/fact/pkg/sqltool"
	"github.com/fact-run/fact/pkg/tools"
)

func testCache() *rcache.Facade {
	store := cache.New(cache.Config{
		MinTokensThreshold: 1,
		TTL:                time.Hour,
		MaxBytes:           1 << 20,
		TargetFillRatio:    0.8,
		PrefixTag:          "fact_v1",
		TokenEstimator:     cache.EstimateTokens,
	})
	br := breaker.New("cache", breaker.DefaultConfig())
	return rcache.New(store, br)
}

func registryWithEchoTool(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry(0)
	require.NoError(t, r.Register(tools.Tool{
		Name: "Noop.Echo",
		ParameterSchema: tools.ParameterSchema{
			Properties: map[string]tools.FieldSchema{"msg": {Type: tools.TypeString}},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args["msg"], nil
		},
	}))
	return r
}

// TestPipeline_S1_PlainAnswerFromMiss models spec scenario S1 broadly: a
// cache miss followed by a terminal LLM response, written back to cache.
func TestPipeline_S1_PlainAnswerFromMiss(t *testing.T) {
	llm := llmapi.NewFakeClient(&llmapi.Result{
		Content:    []llmapi.Block{llmapi.TextBlock("Q1 2025 revenue: 1,234,567.89")},
		StopReason: llmapi.StopEndTurn,
	})

	pl := New(testCache(), registryWithEchoTool(t), llm, DefaultConfig("you are FACT"))
	result := pl.Run(context.Background(), "what was q1 2025 revenue?", "u1")

	require.NoError(t, result.Err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, CacheMiss, result.CacheStatus)
	assert.Equal(t, "Q1 2025 revenue: 1,234,567.89", result.Response)
}

func TestPipeline_CacheHitShortCircuits(t *testing.T) {
	c := testCache()
	llm := llmapi.NewFakeClient(&llmapi.Result{
		Content:    []llmapi.Block{llmapi.TextBlock("answer")},
		StopReason: llmapi.StopEndTurn,
	})
	pl := New(c, registryWithEchoTool(t), llm, DefaultConfig("sys"))

	r1 := pl.Run(context.Background(), "same question", "u1")
	require.NoError(t, r1.Err)
	assert.Equal(t, CacheMiss, r1.CacheStatus)

	r2 := pl.Run(context.Background(), "same question", "u1")
	require.NoError(t, r2.Err)
	assert.Equal(t, CacheHit, r2.CacheStatus)
	assert.Equal(t, r1.Response, r2.Response)
	assert.Len(t, llm.Recorded, 1, "second run must not call the LLM again")
}

// TestPipeline_SQLToolLoop models spec scenario S2: a tool-use call
// followed by a terminal text answer incorporating the tool's result.
func TestPipeline_SQLToolLoop(t *testing.T) {
	pool := sqltoolTestPool(t)
	defer pool.CloseAll()

	exec := sqltool.NewExecutor(pool, sqltool.DefaultExecutorConfig(), map[string]bool{"financial_records": true})
	ts := sqltool.NewToolset(exec, pool, nil, nil)
	r := tools.NewRegistry(0)
	require.NoError(t, ts.Register(r))

	llm := llmapi.NewFakeClient(
		&llmapi.Result{
			Content: []llmapi.Block{llmapi.ToolUseBlock("t1", "SQL.QueryReadonly", map[string]any{
				"statement": "SELECT revenue FROM financial_records WHERE quarter='Q1' AND year=2025",
			})},
			StopReason: llmapi.StopToolUse,
		},
		&llmapi.Result{
			Content:    []llmapi.Block{llmapi.TextBlock("Q1 2025 revenue: 1,234,567.89")},
			StopReason: llmapi.StopEndTurn,
		},
	)

	pl := New(testCache(), r, llm, DefaultConfig("sys"))
	result := pl.Run(context.Background(), "what was q1 2025 revenue?", "u1")

	require.NoError(t, result.Err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "Q1 2025 revenue: 1,234,567.89", result.Response)
	assert.Len(t, llm.Recorded, 2)
}

func TestPipeline_ToolLoopExhaustedAfterMaxIterations(t *testing.T) {
	makeLoopingResponse := func() *llmapi.Result {
		return &llmapi.Result{
			Content: []llmapi.Block{llmapi.ToolUseBlock("t1", "Noop.Echo", map[string]any{
				"msg": "loop",
			})},
			StopReason: llmapi.StopToolUse,
		}
	}
	responses := make([]*llmapi.Result, 0, 10)
	for i := 0; i < 10; i++ {
		r := makeLoopingResponse()
		// vary args each round so fixed-point detection doesn't short-circuit.
		r.Content[0].Input["round"] = i
		responses = append(responses, r)
	}
	llm := llmapi.NewFakeClient(responses...)

	cfg := DefaultConfig("sys")
	cfg.MaxToolIterations = 3
	pl := New(testCache(), registryWithEchoTool(t), llm, cfg)
	result := pl.Run(context.Background(), "loop forever", "u1")

	require.NoError(t, result.Err)
	assert.Equal(t, StatusToolLoopExhausted, result.Status)
}

func TestPipeline_FixedPointDetectionExitsLoop(t *testing.T) {
	sameCall := func() *llmapi.Result {
		return &llmapi.Result{
			Content:    []llmapi.Block{llmapi.ToolUseBlock("t1", "Noop.Echo", map[string]any{"msg": "x"})},
			StopReason: llmapi.StopToolUse,
		}
	}
	llm := llmapi.NewFakeClient(sameCall(), sameCall(), sameCall())

	cfg := DefaultConfig("sys")
	cfg.MaxToolIterations = 5
	pl := New(testCache(), registryWithEchoTool(t), llm, cfg)
	result := pl.Run(context.Background(), "repeat", "u1")

	require.NoError(t, result.Err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.LessOrEqual(t, len(llm.Recorded), 3)
}

func TestPipeline_LLMUnavailableAfterRetriesExhausted(t *testing.T) {
	llm := llmapi.NewFakeClient(&llmapi.Result{}).WithErrors(
		errors.New("1"), errors.New("2"), errors.New("3"), errors.New("4"),
	)
	cfg := DefaultConfig("sys")
	cfg.MaxLLMRetries = 3
	cfg.LLMBaseDelay = time.Millisecond
	cfg.LLMMaxDelay = 2 * time.Millisecond
	pl := New(testCache(), registryWithEchoTool(t), llm, cfg)

	result := pl.Run(context.Background(), "question", "u1")
	require.Error(t, result.Err)
	assert.Equal(t, StatusLLMUnavailable, result.Status)
}

func TestPipeline_EmptyQueryRejected(t *testing.T) {
	llm := llmapi.NewFakeClient(&llmapi.Result{})
	pl := New(testCache(), registryWithEchoTool(t), llm, DefaultConfig("sys"))
	result := pl.Run(context.Background(), "   ", "u1")
	require.Error(t, result.Err)
	assert.Empty(t, llm.Recorded)
}

func sqltoolTestPool(t *testing.T) *sqltool.Pool {
	t.Helper()
	pool := sqltool.NewPool(sqltool.PoolConfig{
		MaxConnections: 1,
		AcquireTimeout: time.Second,
		DSN:            "file::memory:?cache=shared",
		DriverName:     "sqlite3",
	})
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE financial_records (quarter TEXT, year INTEGER, revenue REAL)`)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO financial_records VALUES ('Q1', 2025, 1234567.89)`)
	require.NoError(t, err)
	pool.Release(conn, true)
	return pool
}
