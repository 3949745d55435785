package sqltool

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fact-run/fact/pkg/redact"
)

// Result is the shaped output of a successful query (spec §4.5
// "Execution": columns/rows/row_count/truncated/execution_ms).
type Result struct {
	Columns     []string `json:"columns"`
	Rows        [][]any  `json:"rows"`
	RowCount    int      `json:"row_count"`
	Truncated   bool     `json:"truncated"`
	ExecutionMS float64  `json:"execution_ms"`
}

// ExecutorConfig bounds query execution (spec §4.5, §6.5).
type ExecutorConfig struct {
	QueryTimeout time.Duration
	MaxRows      int
}

// DefaultExecutorConfig matches spec §6.5 SQL_QUERY_TIMEOUT_SECONDS and
// SQL_MAX_ROWS defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{QueryTimeout: 30 * time.Second, MaxRows: 10000}
}

// Executor runs validated, read-only statements against pooled
// connections and shapes their results.
type Executor struct {
	pool        *Pool
	cfg         ExecutorConfig
	knownTables map[string]bool
}

// NewExecutor builds an Executor. knownTables whitelists identifiers
// permitted by the PRAGMA table_info exception (spec §4.5 step 6).
func NewExecutor(pool *Pool, cfg ExecutorConfig, knownTables map[string]bool) *Executor {
	return &Executor{pool: pool, cfg: cfg, knownTables: knownTables}
}

// Query validates, then executes statement with params, against a pooled
// connection. params are bound positionally; statement text is never
// interpolated with runtime values (spec §4.5 step 7).
func (e *Executor) Query(ctx context.Context, statement string, params []any) (*Result, error) {
	normalized, err := Validate(statement, e.knownTables)
	if err != nil {
		return nil, err
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		if err == ErrPoolExhausted {
			return nil, ErrPoolExhausted
		}
		return nil, err
	}

	healthy := true
	defer func() { e.pool.Release(conn, healthy) }()

	queryCtx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := conn.QueryContext(queryCtx, normalized, params...)
	if err != nil {
		if queryCtx.Err() != nil {
			return nil, ErrQueryTimeout
		}
		healthy = false
		return nil, fmt.Errorf("sqltool: query failed: %w", err)
	}
	defer rows.Close()

	result, err := shapeRows(rows, e.cfg.MaxRows)
	if err != nil {
		if queryCtx.Err() != nil {
			return nil, ErrQueryTimeout
		}
		healthy = false
		return nil, fmt.Errorf("sqltool: failed reading result set: %w", err)
	}
	result.ExecutionMS = float64(time.Since(start).Microseconds()) / 1000.0

	return result, nil
}

func shapeRows(rows *sql.Rows, maxRows int) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	scanTargets := make([]any, len(columns))
	scanPtrs := make([]any, len(columns))
	for i := range scanTargets {
		scanPtrs[i] = &scanTargets[i]
	}

	for rows.Next() {
		if result.RowCount >= maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(columns))
		for i, v := range scanTargets {
			row[i] = coerce(v)
		}
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// coerce maps a driver value to a JSON-friendly representation (spec §4.5:
// "bytes→base64, datetimes→ISO-8601, decimals→float, nulls preserved"),
// then redacts any secret-shaped text before it can reach the cache or
// the LLM.
func coerce(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if utf8.Valid(val) {
			return redact.String(string(val))
		}
		return base64.StdEncoding.EncodeToString(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case string:
		return redact.String(val)
	default:
		return val
	}
}
