package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/config"
	"github.com/jonwraymond/entityindex/engine"
	logpkg "github.com/jonwraymond/entityindex/internal/logger"
	"github.com/jonwraymond/entityindex/registry"
)

// app holds everything a command needs, built from the configuration.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sql.DB
	reg    *registry.Registry
	eng    *engine.Engine
}

// loadConfig reads the configuration and builds the logger it selects.
func loadConfig(opts *globalOptions) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logpkg.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

// openRegistry connects to the database and builds the registry.
func openRegistry(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	a.db, err = cfg.OpenDatabase(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.reg, err = cfg.BuildRegistry(a.db, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openApp is openRegistry plus the engine and its index.
func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	a, err := openRegistry(ctx, opts)
	if err != nil {
		return nil, err
	}
	a.eng, err = engine.New(ctx, a.cfg.EngineOptions(a.reg, a.logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}
	return a, nil
}

// Close releases the engine, the database and flushes logs.
func (a *app) Close() {
	if a.eng != nil {
		if err := a.eng.Close(); err != nil {
			a.logger.Warn("close index failed", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
