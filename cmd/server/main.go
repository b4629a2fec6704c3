package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kailou1991/ahis-001-sub001/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, "ahis-sync")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.SeedSources(ctx, ""); err != nil {
		a.Log.Warn("seeding form sources failed", "error", err)
	}

	a.Start()
	if err := a.Run(ctx); err != nil {
		a.Log.Error("server failed", "error", err)
	}
}
