package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// toolNameRegex enforces the namespaced category.name shape (spec §3 Tool
// data model), grounded on tarsy's pkg/mcp/router.go server.tool pattern.
var toolNameRegex = regexp.MustCompile(`^([\w][\w-]*)\.([\w][\w-]*)$`)

// maxResultBytes bounds a handler's result before it is returned to a
// caller (spec §4.4 step 6, default max_result_bytes).
const maxResultBytes = 1 << 20 // 1 MiB

const defaultExecutionTimeout = 30 * time.Second

// Registry holds registered tools and dispatches invocations through the
// spec §4.4 contract: resolve, validate, authorize, rate-limit, execute,
// sanitize.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	limiter *limiter

	statsMu sync.Mutex
	stats   map[string]*ToolStats

	defaultTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// ToolStats accumulates per-tool invocation counters for the metrics
// snapshot (spec §4.7: "C4 (invocations per tool, failure counts)").
type ToolStats struct {
	Invocations int64
	Failures    int64
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithDefaultTimeout overrides the timeout applied to tools that don't set
// their own ExecutionTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Registry) { r.defaultTimeout = d }
}

// NewRegistry builds an empty Registry. globalPerMinute is the
// tool-independent per-user cap (spec §6.5 TOOL_RATE_LIMIT_PER_MINUTE); 0
// disables it.
func NewRegistry(globalPerMinute int, opts ...Option) *Registry {
	r := &Registry{
		tools:          make(map[string]Tool),
		limiter:        newLimiter(globalPerMinute),
		stats:          make(map[string]*ToolStats),
		defaultTimeout: defaultExecutionTimeout,
		now:            time.Now,
		newID:          func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool, validating its schema first (spec §4.4: "Parameter
// schemas validated at registration"). Registering under an existing name
// with a Version that is not strictly greater than the one on file fails
// with ErrDuplicateTool.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New("tool name must not be empty")
	}
	if !toolNameRegex.MatchString(t.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidToolName, t.Name)
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q: handler must not be nil", t.Name)
	}
	if err := t.ParameterSchema.Validate(); err != nil {
		return fmt.Errorf("tool %q: invalid schema: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tools[t.Name]; ok && t.Version <= existing.Version {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Lookup returns the registered tool by name.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return t, nil
}

// ListSchemas exports every registered tool's schema in the LLM-facing
// shape (spec §6.4).
func (r *Registry) ListSchemas() []ExportedSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ExportedSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.ParameterSchema.Export(t.Name, t.Description))
	}
	return out
}

// Invoke runs the full spec §4.4 invocation contract for one tool call.
// userID may be empty for anonymous callers; tools with RequiresAuth true
// reject empty userID with ErrUnauthorized.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, userID string) (*Invocation, error) {
	inv := &Invocation{
		InvocationID: r.newID(),
		ToolName:     name,
		Arguments:    args,
		UserID:       userID,
		StartedAt:    r.now(),
		Status:       StatusPending,
	}

	tool, err := r.Lookup(name)
	if err != nil {
		inv.Status = StatusFailed
		inv.Err = err
		inv.CompletedAt = r.now()
		return inv, err
	}

	if fieldErrs := tool.ParameterSchema.ValidateArgs(args); len(fieldErrs) > 0 {
		err := &InvalidArgumentsError{Fields: fieldErrs}
		inv.Status = StatusFailed
		inv.Err = err
		inv.CompletedAt = r.now()
		r.recordStats(name, false)
		return inv, err
	}

	if tool.RequiresAuth && userID == "" {
		inv.Status = StatusFailed
		inv.Err = ErrUnauthorized
		inv.CompletedAt = r.now()
		r.recordStats(name, false)
		return inv, ErrUnauthorized
	}

	if !r.limiter.allow(userID, name, tool.RateLimitPerMinute) {
		inv.Status = StatusFailed
		inv.Err = ErrRateLimited
		inv.CompletedAt = r.now()
		r.recordStats(name, false)
		return inv, ErrRateLimited
	}

	timeout := tool.ExecutionTimeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(withUserID(ctx, userID), timeout)
	defer cancel()

	inv.Status = StatusRunning
	result, handlerErr := runHandler(runCtx, tool.Handler, args)
	inv.CompletedAt = r.now()

	if handlerErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			inv.Status = StatusFailed
			inv.Err = ErrToolTimeout
			r.recordStats(name, false)
			return inv, ErrToolTimeout
		}
		wrapped := &ToolHandlerError{ToolName: name, Err: handlerErr}
		inv.Status = StatusFailed
		inv.Err = wrapped
		r.recordStats(name, false)
		return inv, wrapped
	}

	inv.Status = StatusSucceeded
	inv.Result = sanitizeResult(result)
	r.recordStats(name, true)
	return inv, nil
}

func (r *Registry) recordStats(name string, success bool) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	s, ok := r.stats[name]
	if !ok {
		s = &ToolStats{}
		r.stats[name] = s
	}
	s.Invocations++
	if !success {
		s.Failures++
	}
}

// Stats returns a snapshot of per-tool invocation/failure counts (spec
// §4.7).
func (r *Registry) Stats() map[string]ToolStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	out := make(map[string]ToolStats, len(r.stats))
	for name, s := range r.stats {
		out[name] = *s
	}
	return out
}

// runHandler executes the handler on its own goroutine so a handler that
// ignores ctx cancellation cannot block Invoke past its timeout.
func runHandler(ctx context.Context, h Handler, args map[string]any) (any, error) {
	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h(ctx, args)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// sanitizeResult strips control characters and bounds the serialized size
// of a handler's result (spec §4.4 step 6: "strip control characters,
// bound size to max_result_bytes"). Oversized string/byte results are
// truncated with a marker; other oversized shapes are replaced wholesale
// since they can't be partially serialized safely.
func sanitizeResult(result any) any {
	switch v := result.(type) {
	case string:
		v = stripControlChars(v)
		if len(v) <= maxResultBytes {
			return v
		}
		return v[:maxResultBytes] + "...[truncated]"
	case []byte:
		v = []byte(stripControlChars(string(v)))
		if len(v) <= maxResultBytes {
			return v
		}
		return append(append([]byte{}, v[:maxResultBytes]...), []byte("...[truncated]")...)
	default:
		return result
	}
}

// stripControlChars removes unicode control characters from s, keeping
// newline and tab since they're routine in multi-line tool output.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
