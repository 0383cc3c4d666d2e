package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/wve/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/wve/internal/adapters/driven/storage/badger"
	"github.com/custodia-labs/wve/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wve/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/wve/internal/adapters/driving/cli"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/services"
	"github.com/custodia-labs/wve/internal/logger"
)

// application holds the wired services and the store they share.
type application struct {
	cli.Services
	store driven.VersionStore
}

// Close releases the version store.
func (a *application) Close() error {
	return a.store.Close()
}

// wire builds the services from the configured settings.
func wire(configStore driven.ConfigStore) (*application, error) {
	settingsSvc := services.NewSettingsService(configStore)
	if err := settingsSvc.Validate(); err != nil {
		logger.Warn("%v; using defaults for invalid values", err)
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	store, err := openStore(settings.Store)
	if err != nil {
		return nil, err
	}
	logger.Debug("using %s store", settings.Store.Backend)

	metrics := prometheus.New()
	mergeSvc := services.NewMergeService(store, metrics, settings.Merge.Resolution)

	return &application{
		store: store,
		Services: cli.Services{
			Document: services.NewDocumentService(store, metrics, settings.Save),
			History:  services.NewHistoryService(store, metrics),
			Temporal: services.NewTemporalService(store),
			Merge:    mergeSvc,
			Compare:  services.NewCompareService(store),
			Settings: settingsSvc,
			Metrics:  metrics.Handler(),
			Reload:   reloader(configStore, settingsSvc, mergeSvc),
		},
	}, nil
}

// openStore opens the version store for the configured backend.
func openStore(cfg domain.StoreSettings) (driven.VersionStore, error) {
	switch cfg.Backend {
	case domain.BackendSQLite:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store.VersionStore(), nil
	case domain.BackendBadger:
		bcfg, err := badger.DefaultConfig(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store, err := badger.NewStore(bcfg)
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		return store, nil
	case domain.BackendMemory:
		return memory.NewVersionStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

// reloader applies merge resolution changes from the config file until
// ctx is done. Backend and save settings take effect on the next start.
func reloader(
	configStore driven.ConfigStore,
	settingsSvc *services.SettingsService,
	mergeSvc *services.MergeService,
) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return configStore.Watch(ctx, func() {
			settings, err := settingsSvc.Get()
			if err != nil {
				logger.Warn("reloading settings: %v", err)
				return
			}
			if settings.Merge.Resolution != mergeSvc.Resolution() {
				logger.Info("merge resolution changed to %s", settings.Merge.Resolution)
				mergeSvc.SetResolution(settings.Merge.Resolution)
			}
		})
	}
}
