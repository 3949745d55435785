package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/fact-run/fact/pkg/cache"
	"github.com/fact-run/fact/pkg/llmapi"
	"github.com/fact-run/fact/pkg/rcache"
	"github.com/fact-run/fact/pkg/tools"
)

// Config bounds the pipeline's iteration and retry behavior (spec §4.6,
// §6.5).
type Config struct {
	SystemPrompt      string
	MaxToolIterations int
	MaxLLMRetries     int
	LLMBaseDelay      time.Duration
	LLMMaxDelay       time.Duration
	LLMCallTimeout    time.Duration
	RequestDeadline   time.Duration
}

// DefaultConfig matches spec §6.5 defaults.
func DefaultConfig(systemPrompt string) Config {
	return Config{
		SystemPrompt:      systemPrompt,
		MaxToolIterations: 5,
		MaxLLMRetries:     3,
		LLMBaseDelay:      500 * time.Millisecond,
		LLMMaxDelay:       5 * time.Second,
		LLMCallTimeout:    30 * time.Second,
		RequestDeadline:   60 * time.Second,
	}
}

// Pipeline wires C3 (cache), C4 (tool registry), and an LLM client into
// the query-processing state machine of spec §4.6.
type Pipeline struct {
	cache    *rcache.Facade
	registry *tools.Registry
	llm      llmapi.Client
	cfg      Config
	now      func() time.Time
}

// New builds a Pipeline.
func New(c *rcache.Facade, registry *tools.Registry, llm llmapi.Client, cfg Config) *Pipeline {
	return &Pipeline{cache: c, registry: registry, llm: llm, cfg: cfg, now: time.Now}
}

// Run executes the full pipeline for one user query (spec §4.6 steps 1-7).
func (p *Pipeline) Run(ctx context.Context, rawQuery, userID string) *Result {
	start := p.now()
	queryID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestDeadline)
	defer cancel()

	normalized := Normalize(rawQuery)
	if normalized == "" {
		return &Result{QueryID: queryID, Status: StatusCompleted, Err: errors.New(errEmptyQuery)}
	}

	fp := p.cache.Fingerprint(normalized)

	entry, cacheStatus := p.probeCache(fp)
	if cacheStatus == CacheHit {
		return &Result{
			QueryID:     queryID,
			Response:    string(entry.Content),
			Status:      StatusCompleted,
			CacheStatus: CacheHit,
			LatencyMS:   msSince(start, p.now()),
		}
	}

	response, status, err := p.runConversation(ctx, normalized, userID)
	latency := msSince(start, p.now())

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Result{QueryID: queryID, Status: StatusTimeout, CacheStatus: cacheStatus, LatencyMS: latency, Err: err}
		}
		return &Result{QueryID: queryID, Status: status, CacheStatus: cacheStatus, LatencyMS: latency, Err: err}
	}

	if response != "" {
		if _, storeErr := p.cache.Store(fp, []byte(response)); storeErr != nil {
			// TooSmall and Degraded are expected outcomes, silently ignored
			// per spec §4.6 step 6; anything else is logged.
			if !errors.Is(storeErr, cache.ErrTooSmall) && !errors.Is(storeErr, rcache.ErrDegraded) {
				slog.Warn("pipeline: cache write-back failed", "query_id", queryID, "error", storeErr)
			}
		}
	}

	return &Result{
		QueryID:     queryID,
		Response:    response,
		Status:      status,
		CacheStatus: cacheStatus,
		LatencyMS:   latency,
	}
}

func (p *Pipeline) probeCache(fp string) (*cache.Entry, CacheStatus) {
	entry, err := p.cache.Get(fp)
	switch {
	case err == nil:
		return entry, CacheHit
	case errors.Is(err, rcache.ErrDegraded):
		return nil, CacheSkippedDegraded
	default:
		return nil, CacheMiss
	}
}

// runConversation drives the LLM-tool loop of spec §4.6 steps 4-5.
func (p *Pipeline) runConversation(ctx context.Context, query, userID string) (string, Status, error) {
	messages := []llmapi.Message{
		{Role: llmapi.RoleUser, Content: []llmapi.Block{llmapi.TextBlock(query)}},
	}
	schemas := p.registry.ListSchemas()

	result, err := p.callLLMWithRetry(ctx, messages, schemas)
	if err != nil {
		return "", StatusLLMUnavailable, fmt.Errorf("pipeline: initial LLM call: %w", err)
	}

	var lastFingerprint string

	for iter := 0; iter < p.cfg.MaxToolIterations; iter++ {
		uses := result.ToolUses()
		if len(uses) == 0 {
			return result.Text(), StatusCompleted, nil
		}

		fingerprint := toolCallFingerprint(uses)
		if fingerprint == lastFingerprint {
			return result.Text(), StatusCompleted, nil
		}
		lastFingerprint = fingerprint

		assistantBlocks := make([]llmapi.Block, 0, len(result.Content))
		assistantBlocks = append(assistantBlocks, result.Content...)
		messages = append(messages, llmapi.Message{Role: llmapi.RoleAssistant, Content: assistantBlocks})

		resultBlocks := make([]llmapi.Block, 0, len(uses))
		for _, use := range uses {
			content, isError := p.invokeTool(ctx, use, userID)
			resultBlocks = append(resultBlocks, llmapi.ToolResultBlock(use.ID, content, isError))
		}
		messages = append(messages, llmapi.Message{Role: llmapi.RoleUser, Content: resultBlocks})

		result, err = p.callLLMWithRetry(ctx, messages, schemas)
		if err != nil {
			return "", StatusLLMUnavailable, fmt.Errorf("pipeline: LLM call (iteration %d): %w", iter+1, err)
		}
	}

	return result.Text(), StatusToolLoopExhausted, nil
}

// invokeTool runs one tool-use block through the registry. Tool errors are
// not fatal to the pipeline: they are serialized into the tool-result
// block so the LLM can react (spec §4.6 "Failure semantics inside the
// loop").
func (p *Pipeline) invokeTool(ctx context.Context, use llmapi.Block, userID string) (string, bool) {
	inv, err := p.registry.Invoke(ctx, use.Name, use.Input, userID)
	if err != nil {
		return fmt.Sprintf("error: %v", err), true
	}
	return fmt.Sprintf("%v", inv.Result), false
}

func (p *Pipeline) callLLMWithRetry(ctx context.Context, messages []llmapi.Message, schemas []tools.ExportedSchema) (*llmapi.Result, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.LLMBaseDelay
	bo.MaxInterval = p.cfg.LLMMaxDelay
	bo.MaxElapsedTime = 0
	withCtx := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxLLMRetries)), ctx)

	var result *llmapi.Result
	operation := func() error {
		r, err := p.llm.CallLLM(ctx, p.cfg.SystemPrompt, messages, schemas, p.cfg.LLMCallTimeout)
		if err != nil {
			wrapped := llmapi.ClassifyError(err, llmapi.ErrorServer)
			var pe *llmapi.ProviderError
			if errors.As(wrapped, &pe) && !pe.Retryable() {
				return backoff.Permanent(wrapped)
			}
			return wrapped
		}
		result = r
		return nil
	}

	if err := backoff.Retry(operation, withCtx); err != nil {
		return nil, err
	}
	return result, nil
}

// toolCallFingerprint identifies a set of tool-use blocks for fixed-point
// detection (spec §4.6: "If the loop produces the same fingerprint of
// tool calls twice in a row with identical arguments, treat it as a fixed
// point and exit").
func toolCallFingerprint(uses []llmapi.Block) string {
	out := ""
	for _, u := range uses {
		out += u.Name + fmt.Sprintf("%v", u.Input) + "|"
	}
	return out
}

func msSince(start, end time.Time) float64 {
	return float64(end.Sub(start).Microseconds()) / 1000.0
}
