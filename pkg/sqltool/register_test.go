package sqltool

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fact-run/fact/pkg/tools"
)

func TestToolset_Register_AddsThreeTools(t *testing.T) {
	pool := seedDB(t)
	defer pool.CloseAll()

	exec := NewExecutor(pool, DefaultExecutorConfig(), map[string]bool{"financial_records": true})
	ts := NewToolset(exec, pool, []string{"financial_records"}, []SampleQuery{
		{Description: "quarterly revenue", Statement: "SELECT * FROM financial_records"},
	})

	r := tools.NewRegistry(0)
	require.NoError(t, ts.Register(r))

	schemas := r.ListSchemas()
	assert.Len(t, schemas, 3)

	inv, err := r.Invoke(context.Background(), "SQL.QueryReadonly",
		map[string]any{"statement": "SELECT revenue FROM financial_records WHERE quarter='Q1'"}, "u1")
	require.NoError(t, err)
	result := inv.Result.(*Result)
	assert.Equal(t, 1, result.RowCount)

	inv, err = r.Invoke(context.Background(), "SQL.GetSampleQueries", nil, "u1")
	require.NoError(t, err)
	samples := inv.Result.([]SampleQuery)
	assert.Len(t, samples, 1)

	inv, err = r.Invoke(context.Background(), "SQL.GetSchema", nil, "u1")
	require.NoError(t, err)
	info := inv.Result.([]TableInfo)
	assert.Len(t, info, 1)
}
