// Stride - local workout sync for health-platform data.
//
// A CLI front end over the sync core: incremental anchored sync, full
// batched resync, and the route enrichment queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stridefit/stride/internal/cli"
	"github.com/stridefit/stride/internal/config"
	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/log"
	"github.com/stridefit/stride/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)
	if err := log.Init(paths.Logs); err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	// Open database for the persistent tracking ID
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		_ = database.Close()
	}()

	telemetryClient := telemetry.New(database)
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		os.Exit(1)
	}
}
