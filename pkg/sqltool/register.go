package sqltool

import (
	"context"
	"fmt"

	"github.com/fact-run/fact/pkg/tools"
)

// SampleQuery is one entry of the static, curated list returned by
// SQL.GetSampleQueries (spec §4.5).
type SampleQuery struct {
	Description string `json:"description"`
	Statement   string `json:"statement"`
}

// Toolset bundles the three SQL tools registered in C4 (spec §4.5).
type Toolset struct {
	executor      *Executor
	pool          *Pool
	knownTables   []string
	sampleQueries []SampleQuery
}

// NewToolset builds the SQL toolset. sampleQueries may be nil, in which
// case SQL.GetSampleQueries returns an empty list.
func NewToolset(executor *Executor, pool *Pool, knownTables []string, sampleQueries []SampleQuery) *Toolset {
	return &Toolset{executor: executor, pool: pool, knownTables: knownTables, sampleQueries: sampleQueries}
}

// Register adds SQL.QueryReadonly, SQL.GetSchema, and SQL.GetSampleQueries
// to r (spec §4.5: "A tool named SQL.QueryReadonly registered in C4. Also
// registers SQL.GetSchema ... and SQL.GetSampleQueries").
func (t *Toolset) Register(r *tools.Registry) error {
	maxLen := maxStatementLength
	queryTool := tools.Tool{
		Name:        "SQL.QueryReadonly",
		Description: "Executes a read-only SELECT statement against the relational database and returns shaped rows.",
		ParameterSchema: tools.ParameterSchema{
			Properties: map[string]tools.FieldSchema{
				"statement": {
					Type:      tools.TypeString,
					Required:  true,
					MaxLength: &maxLen,
				},
			},
			Required: []string{"statement"},
		},
		Handler: t.handleQuery,
	}
	if err := r.Register(queryTool); err != nil {
		return err
	}

	schemaTool := tools.Tool{
		Name:        "SQL.GetSchema",
		Description: "Returns table and column metadata for the relational database.",
		Handler:     t.handleGetSchema,
	}
	if err := r.Register(schemaTool); err != nil {
		return err
	}

	sampleTool := tools.Tool{
		Name:        "SQL.GetSampleQueries",
		Description: "Returns a curated list of example SELECT statements.",
		Handler:     t.handleGetSampleQueries,
	}
	return r.Register(sampleTool)
}

func (t *Toolset) handleQuery(ctx context.Context, args map[string]any) (any, error) {
	statement, _ := args["statement"].(string)
	result, err := t.executor.Query(ctx, statement, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (t *Toolset) handleGetSchema(ctx context.Context, _ map[string]any) (any, error) {
	info, err := DescribeSchema(ctx, t.pool, t.knownTables)
	if err != nil {
		return nil, fmt.Errorf("sqltool: get schema: %w", err)
	}
	return info, nil
}

func (t *Toolset) handleGetSampleQueries(_ context.Context, _ map[string]any) (any, error) {
	if t.sampleQueries == nil {
		return []SampleQuery{}, nil
	}
	return t.sampleQueries, nil
}
