package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/config"
	"github.com/fwextensions/reserve-bed-poc/internal/storage/memory"
	"github.com/fwextensions/reserve-bed-poc/internal/storage/postgres"
	"github.com/fwextensions/reserve-bed-poc/internal/storage/sqlite"
	transporthttp "github.com/fwextensions/reserve-bed-poc/internal/transport/http"
	"github.com/fwextensions/reserve-bed-poc/migrations"
)

type storage struct {
	store  app.Store
	pinger transporthttp.Pinger
	close  func()
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return storage{}, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("db ping: %w", err)
		}
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("apply migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("applied migrations", zap.Strings("names", applied))
		}
		return storage{store: postgres.New(pool), pinger: pool, close: pool.Close}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		return storage{store: store, pinger: store, close: func() { _ = store.Close() }}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return storage{store: memory.New(), close: func() {}}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
