package services

import (
	"fmt"

	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driven"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyStoreBackend  = "store.backend"
	keyStoreDataDir  = "store.data_dir"
	keyMergeResolve  = "merge.resolution"
	keySaveAttempts  = "save.max_attempts"
	keySaveRetryRate = "save.retry_per_second"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Store: domain.StoreSettings{
			Backend: s.getBackend(defaults.Store.Backend),
			DataDir: s.configStore.GetString(keyStoreDataDir), // Empty means the default location
		},
		Merge: domain.MergeSettings{
			Resolution: s.getResolution(defaults.Merge.Resolution),
		},
		Save: domain.SaveSettings{
			MaxAttempts:    s.getInt(keySaveAttempts, defaults.Save.MaxAttempts),
			RetryPerSecond: s.getFloat(keySaveRetryRate, defaults.Save.RetryPerSecond),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	if err := s.configStore.Set(keyStoreBackend, settings.Store.Backend.String()); err != nil {
		return fmt.Errorf("save store backend: %w", err)
	}
	if err := s.configStore.Set(keyStoreDataDir, settings.Store.DataDir); err != nil {
		return fmt.Errorf("save store data_dir: %w", err)
	}
	if err := s.configStore.Set(keyMergeResolve, settings.Merge.Resolution.String()); err != nil {
		return fmt.Errorf("save merge resolution: %w", err)
	}
	if err := s.configStore.Set(keySaveAttempts, settings.Save.MaxAttempts); err != nil {
		return fmt.Errorf("save max_attempts: %w", err)
	}
	if err := s.configStore.Set(keySaveRetryRate, settings.Save.RetryPerSecond); err != nil {
		return fmt.Errorf("save retry_per_second: %w", err)
	}

	return nil
}

// SetBackend selects the version store backend.
func (s *SettingsService) SetBackend(backend domain.Backend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Store.Backend = backend

	return s.Save(settings)
}

// SetResolution sets the merge conflict resolution.
func (s *SettingsService) SetResolution(resolution domain.Resolution) error {
	if !resolution.IsValid() {
		return fmt.Errorf("%w: unknown resolution %q", domain.ErrInvalidInput, resolution)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Merge.Resolution = resolution

	return s.Save(settings)
}

// Validate checks the raw configured values, without falling back to defaults.
func (s *SettingsService) Validate() error {
	if val := s.configStore.GetString(keyStoreBackend); val != "" && !domain.Backend(val).IsValid() {
		return fmt.Errorf("%w: %s: unknown backend %q", domain.ErrInvalidInput, keyStoreBackend, val)
	}
	if val := s.configStore.GetString(keyMergeResolve); val != "" && !domain.Resolution(val).IsValid() {
		return fmt.Errorf("%w: %s: unknown resolution %q", domain.ErrInvalidInput, keyMergeResolve, val)
	}
	if _, ok := s.configStore.Get(keySaveAttempts); ok && s.configStore.GetInt(keySaveAttempts) < 1 {
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keySaveAttempts)
	}
	if _, ok := s.configStore.Get(keySaveRetryRate); ok && s.configStore.GetFloat(keySaveRetryRate) <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keySaveRetryRate)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func validateSettings(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are required", domain.ErrInvalidInput)
	}
	if !settings.Store.Backend.IsValid() {
		return fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, settings.Store.Backend)
	}
	if !settings.Merge.Resolution.IsValid() {
		return fmt.Errorf("%w: unknown resolution %q", domain.ErrInvalidInput, settings.Merge.Resolution)
	}
	if settings.Save.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", domain.ErrInvalidInput)
	}
	if settings.Save.RetryPerSecond <= 0 {
		return fmt.Errorf("%w: retry rate must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBackend(defaultVal domain.Backend) domain.Backend {
	backend := domain.Backend(s.configStore.GetString(keyStoreBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getResolution(defaultVal domain.Resolution) domain.Resolution {
	resolution := domain.Resolution(s.configStore.GetString(keyMergeResolve))
	if !resolution.IsValid() {
		return defaultVal
	}
	return resolution
}
