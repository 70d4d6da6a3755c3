package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/wificomp/internal/config"
	"github.com/HerbHall/wificomp/internal/exclusion"
	"github.com/HerbHall/wificomp/internal/services"
	"github.com/HerbHall/wificomp/internal/sessionfile"
	"github.com/HerbHall/wificomp/internal/store"
)

// cliEnv carries what every command needs once Before has run.
type cliEnv struct {
	logger     *zap.Logger
	settings   *config.Settings
	modes      config.Modes
	configPath string
}

func (e *cliEnv) setup(c *cli.Context) error {
	if c.Bool("no-color") {
		color.NoColor = true
	}

	boot, err := newLogger(c.Bool("debug"), "info")
	if err != nil {
		return err
	}
	e.configPath = c.String("config")
	if e.configPath == "" {
		e.configPath = config.DefaultConfigPath()
	}
	settings, _, err := config.Load(e.configPath, boot)
	if err != nil {
		return err
	}
	if dir := c.String("data-dir"); dir != "" {
		settings.DataDir = dir
	}
	// Catalog paths are matched verbatim.
	if settings.DataDir, err = filepath.Abs(settings.DataDir); err != nil {
		return err
	}
	e.settings = settings

	if e.modes, err = settings.Modes(); err != nil {
		return err
	}
	if e.logger, err = newLogger(c.Bool("debug"), settings.LogLevel); err != nil {
		return err
	}
	e.logger.Debug("configuration loaded",
		zap.String("config", e.configPath),
		zap.String("data_dir", settings.DataDir),
	)
	return nil
}

func (e *cliEnv) teardown(*cli.Context) error {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return nil
}

func newLogger(debug bool, level string) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func (e *cliEnv) sessionDir() *sessionfile.Dir {
	return sessionfile.NewDir(e.settings.DataDir, e.logger)
}

// backend is the opened SQLite store with its repositories.
type backend struct {
	store      *store.SQLiteStore
	exclusions *exclusion.Registry
	catalog    *services.SQLiteCatalogRepository
}

func (b *backend) Close() error {
	return b.store.Close()
}

// openBackend opens the database, runs migrations and loads the permanent
// exclusions.
func (e *cliEnv) openBackend(ctx context.Context) (*backend, error) {
	st, err := store.Open(e.settings.DataDir)
	if err != nil {
		return nil, err
	}
	excl, err := services.NewSQLiteExclusionRepository(ctx, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	catalog, err := services.NewSQLiteCatalogRepository(ctx, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	reg := exclusion.NewRegistry(excl, e.logger)
	if err := reg.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return &backend{store: st, exclusions: reg, catalog: catalog}, nil
}
