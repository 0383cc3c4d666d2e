package driving

import "github.com/custodia-labs/wve/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetBackend selects the version store backend.
	SetBackend(backend domain.Backend) error

	// SetResolution sets the merge conflict resolution.
	SetResolution(resolution domain.Resolution) error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
