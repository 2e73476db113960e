package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tarikstafford/reve-app-sub000/internal/app"
	"github.com/tarikstafford/reve-app-sub000/internal/config"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
)

// commandContext lazily loads configuration and opens dependencies for a
// single command invocation.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// openDB and openApp are replaced in tests.
	openDB  func(ctx context.Context) (*sql.DB, string, error)
	openApp func(ctx context.Context) (*app.Application, func(), error)
}

func newCommandContext(configFlag *string) *commandContext {
	c := &commandContext{configFlag: configFlag}
	c.openDB = c.defaultOpenDB
	c.openApp = c.defaultOpenApp
	return c
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) *slog.Logger {
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return slog.Default()
	}
	return log
}

func (c *commandContext) defaultOpenDB(ctx context.Context) (*sql.DB, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, "", err
	}
	return db, cfg.Database.Driver, nil
}

func (c *commandContext) defaultOpenApp(ctx context.Context) (*app.Application, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, c.logger(cfg), db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("initialize application: %w", err)
	}
	return a, func() {
		a.Close()
		_ = db.Close()
	}, nil
}

func (c *commandContext) withApp(ctx context.Context, fn func(*app.Application) error) error {
	a, release, err := c.openApp(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(a)
}

func (c *commandContext) withDB(ctx context.Context, fn func(db *sql.DB, driver string) error) error {
	db, driver, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(db, driver)
}
