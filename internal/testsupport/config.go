package testsupport

import (
	"path/filepath"
	"testing"

	"reelay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults credential fields so clients can be constructed without hitting
// validation, and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RecordsDir = filepath.Join(base, "records")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Instagram.AccessToken = "test-token"
	cfgVal.Instagram.BusinessAccountID = "17841400000000000"
	cfgVal.Cloudinary.CloudName = "test-cloud"
	cfgVal.Cloudinary.APIKey = "test-key"
	cfgVal.Cloudinary.APISecret = "test-secret"
	cfgVal.Scheduling.Timezone = "UTC"

	for _, opt := range opts {
		opt(&cfgVal)
	}
	return &cfgVal
}

// WithTimezone overrides the scheduling timezone on the test config.
func WithTimezone(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduling.Timezone = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RecordsDir)
}
