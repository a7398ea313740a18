package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/inmemoryscene"
	"github.com/vk/rehydrator/internal/manifest"
	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/rehydrate"
	"github.com/vk/rehydrator/internal/sqlitescene"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	store    *inmemoryscene.Store
	engine   *rehydrate.Engine
}

// NewApp is the constructor for the main application. Command output goes to
// outW and logs to logW. The registry is built from modules, or from the
// compiled-in modules when none are given, plus the configured manifests. A
// document that does not exist yet starts out empty and is created on the
// first save.
func NewApp(ctx context.Context, outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if len(cfg.ClassesPaths) > 0 {
		classes, err := manifest.LoadDir(ctx, reg, cfg.ClassesPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load classes: %w", err)
		}
		logger.Debug("Class manifests loaded.", "count", len(classes))
	}

	if err := reg.Validate(ctx); err != nil {
		return nil, fmt.Errorf("class registry is invalid: %w", err)
	}
	logger.Debug("Registry validation passed.", "classes", len(reg.Classes()))

	base := cfg.LibraryPath
	if base == "" {
		base = filepath.Dir(cfg.DocumentPath)
	}
	library := sqlitescene.NewLibrary(base, sqlitescene.DefaultLibraryCacheSize)

	store, err := sqlitescene.Load(ctx, cfg.DocumentPath, inmemoryscene.WithLibrary(library))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("Document does not exist yet, starting empty.", "path", cfg.DocumentPath)
		store = inmemoryscene.New(inmemoryscene.WithLibrary(library))
	case err != nil:
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		store:    store,
		engine:   rehydrate.New(store, reg),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Store returns the open document.
func (a *App) Store() *inmemoryscene.Store {
	return a.store
}

// Save writes the open document back to its file.
func (a *App) Save(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := sqlitescene.Save(ctx, a.store, a.config.DocumentPath); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	a.logger.Debug("Document saved.", "path", a.config.DocumentPath)
	return nil
}
