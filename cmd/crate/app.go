package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmcdole/crate/internal/adapter"
	"github.com/mmcdole/crate/internal/artwork"
	"github.com/mmcdole/crate/internal/catalog"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/library"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/undo"
)

// app owns everything one invocation needs. The library service is built
// once here and handed to whichever command runs.
type app struct {
	cfg    *adapter.Config
	logger *slog.Logger
	blobs  domain.BlobStore
	covers *artwork.Cache
	svc    *library.Service
}

func openApp(configPath string) (*app, error) {
	cfg, err := adapter.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting crate", "version", Version, "backend", cfg.Storage.Backend)

	return newApp(cfg, adapter.NewFetcher(cfg.Fetch), logger)
}

// newApp wires the stack from an already loaded config.
func newApp(cfg *adapter.Config, fetcher domain.CoverFetcher, logger *slog.Logger) (*app, error) {
	codec, err := catalog.CodecFor(cfg.Storage.Format)
	if err != nil {
		return nil, err
	}

	blobs, err := store.Open(cfg.Storage.Backend, cfg.Storage.Dir, codec.Ext())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	cat := catalog.NewStore(blobs, codec, logger)
	reseeded, err := loadCatalog(cat, cfg.Storage.OnCorrupt, logger)
	if err != nil {
		blobs.Close()
		return nil, err
	}

	covers, err := artwork.New(fetcher, artwork.Options{
		Dir:             cfg.Cache.Dir,
		MemoryTTL:       cfg.Cache.MemoryTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		FetchTimeout:    cfg.Cache.FetchTimeout,
	}, logger)
	if err != nil {
		blobs.Close()
		return nil, fmt.Errorf("failed to open cover cache: %w", err)
	}

	var state domain.BlobStore
	if cfg.Undo.Persist {
		state = blobs
	}
	svc := library.NewService(cat, undo.NewStack(cfg.Undo.Limit), covers, state, logger)
	if reseeded {
		// The saved undo history and selection belong to the discarded catalog.
		svc.ResetSession()
	}

	return &app{cfg: cfg, logger: logger, blobs: blobs, covers: covers, svc: svc}, nil
}

// loadCatalog applies the corrupt catalog policy. It reports whether the
// stored catalog was replaced by seed data.
func loadCatalog(cat *catalog.Store, policy string, logger *slog.Logger) (bool, error) {
	err := cat.Load()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrStorageCorrupt) || policy == adapter.OnCorruptFail {
		return false, err
	}

	logger.Warn("stored catalog is corrupt, reseeding", "error", err)
	if berr := cat.Backup("corrupt"); berr != nil {
		return false, fmt.Errorf("%w (backup failed: %v)", err, berr)
	}
	if err := cat.Seed(); err != nil {
		return false, err
	}
	return true, nil
}

func (a *app) Close() error {
	err := a.svc.Close()
	if cerr := a.blobs.Close(); err == nil {
		err = cerr
	}
	a.logger.Info("shutting down")
	return err
}
