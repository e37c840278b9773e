// Package app assembles the session, storage backend and backend client
// shared by the CLI and the console daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/outreach/internal/api"
	"github.com/felixgeelhaar/outreach/internal/config"
	"github.com/felixgeelhaar/outreach/internal/session"
	"github.com/felixgeelhaar/outreach/internal/storage/local"
	"github.com/felixgeelhaar/outreach/internal/storage/sqlite"
)

// ErrWatchUnsupported is returned by Watch for backends without change
// notification.
var ErrWatchUnsupported = errors.New("storage backend does not support change notification")

// App holds the wired components
type App struct {
	Config    *config.LocalConfig
	Store     *session.Store
	Client    *api.Client
	Container *session.Container

	file   *local.Store
	closer io.Closer
	logger *slog.Logger
}

// Open builds the components described by cfg. baseDir is the outreach
// directory used for default storage paths.
func Open(cfg *config.LocalConfig, baseDir string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}

	kv, err := a.openBackend(cfg.Storage, baseDir)
	if err != nil {
		return nil, err
	}

	a.Store = session.NewStore(kv, logger)
	a.Client = api.New(api.Config{
		BaseURL:              cfg.API.BaseURL,
		Timeout:              cfg.API.Timeout(),
		EnableRetry:          cfg.API.Retry,
		EnableCircuitBreaker: cfg.API.CircuitBreaker,
		MaxConcurrentUploads: cfg.API.MaxConcurrentUploads,
		UploadTimeout:        cfg.API.UploadTimeout(),
		Tokens:               a.Store,
		Logger:               logger,
	})
	a.Container = session.NewContainer(a.Store, a.Client, logger)
	return a, nil
}

func (a *App) openBackend(cfg config.StorageConfig, baseDir string) (session.KV, error) {
	dir := cfg.Dir(baseDir)

	switch cfg.Backend {
	case config.BackendMemory:
		return local.NewMemory(), nil

	case config.BackendSQLite:
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		db, err := sqlite.Open(filepath.Join(dir, "session.db"))
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate session db: %w", err)
		}
		a.closer = db
		return sqlite.NewKVStore(db), nil

	default:
		store, err := local.NewStore(dir, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}
		a.file = store
		return store, nil
	}
}

// Watch keeps the container in step with storage changes made by other
// processes until ctx is done. It returns once watching has started.
func (a *App) Watch(ctx context.Context) error {
	if a.file == nil {
		return ErrWatchUnsupported
	}
	return a.file.Watch(ctx, func() {
		a.Container.Sync()
	})
}

// Close releases the storage backend
func (a *App) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
