// Command factd is a thin composition-root entrypoint for the FACT
// runtime. It wires configuration, the cache, circuit breaker, tool
// registry, SQL executor, and query pipeline into one corefact.Core and
// runs a single query to demonstrate the wiring. The LLM provider client
// and any interactive CLI or HTTP surface are out of scope for the core
// (spec: "out of scope, treat as external collaborators") — production
// deployments supply their own llmapi.Client and front end around Core.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fact-run/fact/pkg/corefact"
	"github.com/fact-run/fact/pkg/factconfig"
	"github.com/fact-run/fact/pkg/llmapi"
	"github.com/fact-run/fact/pkg/version"
)

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "."), "directory containing a .env file")
	query := flag.String("query", "what was Q1 2025 revenue?", "query to run once the runtime is wired")
	userID := flag.String("user", "demo-user", "user id attached to the query")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	slog.Info("starting", "version", version.Full())

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment", "path", envPath)
	}

	cfg, err := factconfig.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	core, err := corefact.Build(cfg, corefact.Options{
		LLM:          llmapi.NewFakeClient(&llmapi.Result{Content: []llmapi.Block{llmapi.TextBlock("no LLM provider configured")}, StopReason: llmapi.StopEndTurn}),
		SQLDSN:       getEnv("SQL_DSN", "file::memory:?cache=shared"),
		KnownTables:  []string{},
		SystemPrompt: "You are a financial query assistant with access to a read-only SQL tool.",
	})
	if err != nil {
		slog.Error("failed to wire runtime", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core.Start(ctx)
	defer core.Shutdown()

	result := core.Ask(ctx, *query, *userID)

	out, _ := json.MarshalIndent(result, "", "  ")
	slog.Info("query completed", "status", result.Status, "cache_status", result.CacheStatus, "latency_ms", result.LatencyMS)
	os.Stdout.Write(out)
	os.Stdout.WriteString("\n")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
