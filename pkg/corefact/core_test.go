package corefact

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fact-run/fact/pkg/factconfig"
	"github.com/fact-run/fact/pkg/llmapi"
)

func testOptions() Options {
	return Options{
		LLM:          llmapi.NewFakeClient(&llmapi.Result{Content: []llmapi.Block{llmapi.TextBlock("hi there")}, StopReason: llmapi.StopEndTurn}),
		SQLDSN:       "file::memory:?cache=shared",
		KnownTables:  []string{"financial_records"},
		SystemPrompt: "you are a test assistant",
	}
}

func TestBuild_WiresAllComponents(t *testing.T) {
	core, err := Build(factconfig.Default(), testOptions())
	require.NoError(t, err)
	assert.NotNil(t, core.Cache)
	assert.NotNil(t, core.Breaker)
	assert.NotNil(t, core.Resilient)
	assert.NotNil(t, core.Tools)
	assert.NotNil(t, core.SQLPool)
	assert.NotNil(t, core.Pipeline)
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	cfg := factconfig.Default()
	cfg.CircuitFailureThreshold = 0
	_, err := Build(cfg, testOptions())
	assert.Error(t, err)
}

func TestCore_AskRecordsCounters(t *testing.T) {
	core, err := Build(factconfig.Default(), testOptions())
	require.NoError(t, err)

	ctx := context.Background()
	core.Start(ctx)
	defer core.Shutdown()

	result := core.Ask(ctx, "what is the revenue", "user-1")
	assert.NotEmpty(t, result.Response)

	snap := core.Snapshot()
	assert.EqualValues(t, 1, snap.Pipeline.QueriesProcessed)
}

func TestCore_ToolsRegisteredThroughBuild(t *testing.T) {
	core, err := Build(factconfig.Default(), testOptions())
	require.NoError(t, err)
	schemas := core.Tools.ListSchemas()
	names := make(map[string]bool)
	for _, s := range schemas {
		names[s.Name] = true
	}
	assert.True(t, names["SQL.QueryReadonly"])
	assert.True(t, names["SQL.GetSchema"])
	assert.True(t, names["SQL.GetSampleQueries"])
}
