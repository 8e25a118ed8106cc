package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/caderno-vivo/caderno/internal/config"
	"github.com/caderno-vivo/caderno/internal/engine"
	"github.com/caderno-vivo/caderno/internal/refine"
	"github.com/caderno-vivo/caderno/internal/service"
	"github.com/caderno-vivo/caderno/internal/storage"
)

// initStorage opens the database named in the config, running migrations
// first so every command sees the current schema.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initRefiner builds the AI refiner when one is configured. A missing API
// key disables refinement rather than failing the command.
func initRefiner() service.Refiner {
	if !config.RefinerEnabled() {
		return nil
	}

	refiner, err := refine.New(config.LoadRefinerConfig())
	if err != nil {
		slog.Debug("refiner unavailable, using heuristics only", "error", err)
		return nil
	}
	return refiner
}

// initController wires storage and the optional refiner into a loaded
// review controller. The caller owns the returned storage handle.
func initController(ctx context.Context, withRefiner bool) (*engine.Controller, *storage.SQLiteStorage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	var refiner service.Refiner
	if withRefiner {
		refiner = initRefiner()
	}

	controller := engine.New(store, store, store, refiner, engine.DefaultConfig())
	if err := controller.Load(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return controller, store, nil
}
