package pipeline

import (
	"strings"
	"time"
)

// CacheStatus records how a request interacted with the cache for metrics
// and write-back decisions (spec §4.6 step 3, step 6).
type CacheStatus string

const (
	CacheHit             CacheStatus = "hit"
	CacheMiss            CacheStatus = "miss"
	CacheSkippedDegraded CacheStatus = "skipped_degraded"
)

// Status is the terminal outcome of a pipeline run (spec §4.6, §4.8).
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusToolLoopExhausted Status = "tool_loop_exhausted"
	StatusLLMUnavailable    Status = "llm_unavailable"
	StatusTimeout           Status = "timeout"
)

// Query is a single normalized request into the pipeline (spec §4.6 step
// 1: "Normalize the user query: trim, reject empty").
type Query struct {
	QueryID    string
	RawText    string
	Normalized string
	UserID     string
	StartedAt  time.Time
}

const errEmptyQuery = "query is empty after normalization"

// Normalize trims the raw text; callers should treat an empty return as a
// rejection (spec §4.6 step 1).
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// Result is what the pipeline returns to a caller (spec §4.6 step 7).
type Result struct {
	QueryID     string
	Response    string
	Status      Status
	CacheStatus CacheStatus
	LatencyMS   float64
	Err         error
}
