package breaker

import "time"

// State mirrors the three states a breaker can be in (spec §4.2, §3).
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// FailureRecord is one entry in the bounded observability ring (spec §3:
// "recent_failures (bounded ring of (timestamp, error_kind, op_name))").
type FailureRecord struct {
	Timestamp time.Time
	ErrorKind string
	Op        string
}

// Metrics is a point-in-time snapshot of breaker state and counters.
type Metrics struct {
	State               State
	TimeInState         time.Duration
	ConsecutiveFailures int
	TotalOperations     int64
	TotalFailures       int64
	StateChangesCount   int64
	RecentFailures      []FailureRecord
}
