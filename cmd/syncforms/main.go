package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kailou1991/ahis-001-sub001/internal/app"
)

func main() {
	sourcesFile := flag.String("sources", "", "YAML file of form sources to upsert before syncing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, "ahis-syncforms")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.SeedSources(ctx, *sourcesFile); err != nil {
		a.Log.Error("seeding form sources failed", "error", err)
	}

	result := a.Orchestrator.RunAll(ctx)
	totals := result.Totals()
	for _, s := range result.Sources {
		a.Log.Info("source synced",
			"source", s.SourceName,
			"status", s.Status,
			"message", s.Message,
			"created", s.Counts.Created,
			"updated", s.Counts.Updated,
			"quarantined", s.Counts.Quarantined,
		)
	}
	a.Log.Info("sync finished",
		"sources", len(result.Sources),
		"failures", result.Failures(),
		"processed", totals.Processed,
		"quarantined", totals.Quarantined,
	)
}
