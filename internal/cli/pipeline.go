package cli

import (
	"fmt"

	"github.com/stridefit/stride/internal/config"
	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/health"
	"github.com/stridefit/stride/internal/log"
	"github.com/stridefit/stride/internal/route"
	"github.com/stridefit/stride/internal/store"
	"github.com/stridefit/stride/internal/sync"
)

// openDatabase loads config and opens the local database.
func openDatabase() (*config.Config, *db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	paths := config.GetPaths(cfg)
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	return cfg, database, nil
}

// buildPipeline assembles the sync pipeline over an export-file gateway.
func buildPipeline(database *db.DB, exportPath string) (*sync.Orchestrator, *route.Queue, error) {
	gateway, err := health.LoadExport(exportPath)
	if err != nil {
		return nil, nil, err
	}

	logger := log.Slog()
	runs := store.New(database)
	connector := health.NewConnector(gateway, database, logger)
	reconciler := sync.NewReconciler(runs, database, nil, logger)
	queue := route.NewQueue(database, gateway, runs, nil, logger)
	orchestrator := sync.NewOrchestrator(gateway, connector, reconciler, queue, database, nil, logger)
	return orchestrator, queue, nil
}
