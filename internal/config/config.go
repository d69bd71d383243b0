package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RecordsDir string `toml:"records_dir"`
	LogDir     string `toml:"log_dir"`
}

// Instagram contains Graph API credentials and publish timing.
type Instagram struct {
	AccessToken       string `toml:"access_token"`
	BusinessAccountID string `toml:"business_account_id"`
	BaseURL           string `toml:"base_url"`
	ProcessingTimeout int    `toml:"processing_timeout"`
	PollInterval      int    `toml:"poll_interval"`
}

// Cloudinary contains video upload credentials.
type Cloudinary struct {
	CloudName string `toml:"cloud_name"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Folder    string `toml:"folder"`
}

// Scheduling controls due-time interpretation and record housekeeping.
type Scheduling struct {
	Timezone             string `toml:"timezone"`
	DefaultLeadHours     int    `toml:"default_lead_hours"`
	CleanupRetentionDays int    `toml:"cleanup_retention_days"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Posts          bool   `toml:"posts"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelay.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Instagram     Instagram     `toml:"instagram"`
	Cloudinary    Cloudinary    `toml:"cloudinary"`
	Scheduling    Scheduling    `toml:"scheduling"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/reelay/config.toml")
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path; the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories reelay needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RecordsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location resolves the configured timezone. Naive scheduled times in record
// files are interpreted in this location.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Scheduling.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("resolve timezone %q: %w", name, err)
	}
	return loc, nil
}

// ProcessingTimeout returns the Instagram processing wait as a duration.
func (c *Config) ProcessingTimeout() time.Duration {
	return time.Duration(c.Instagram.ProcessingTimeout) * time.Second
}

// PollInterval returns the container status poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Instagram.PollInterval) * time.Second
}

// HistoryDBPath returns the location of the publish attempt database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// LockPath returns the reconcile run lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "reconcile.lock")
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.RecordsDir, err = ExpandPath(c.Paths.RecordsDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Instagram.AccessToken = strings.TrimSpace(c.Instagram.AccessToken)
	c.Instagram.BusinessAccountID = strings.TrimSpace(c.Instagram.BusinessAccountID)
	c.Instagram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Instagram.BaseURL), "/")
	if c.Instagram.BaseURL == "" {
		c.Instagram.BaseURL = defaultGraphBaseURL
	}
	if c.Instagram.ProcessingTimeout <= 0 {
		c.Instagram.ProcessingTimeout = defaultProcessingTimeout
	}
	if c.Instagram.PollInterval <= 0 {
		c.Instagram.PollInterval = defaultPollInterval
	}

	c.Cloudinary.CloudName = strings.TrimSpace(c.Cloudinary.CloudName)
	c.Cloudinary.APIKey = strings.TrimSpace(c.Cloudinary.APIKey)
	c.Cloudinary.APISecret = strings.TrimSpace(c.Cloudinary.APISecret)
	c.Cloudinary.Folder = strings.Trim(strings.TrimSpace(c.Cloudinary.Folder), "/")

	c.Scheduling.Timezone = strings.TrimSpace(c.Scheduling.Timezone)
	if c.Scheduling.Timezone == "" {
		c.Scheduling.Timezone = defaultTimezone
	}
	if c.Scheduling.DefaultLeadHours <= 0 {
		c.Scheduling.DefaultLeadHours = defaultLeadHours
	}
	if c.Scheduling.CleanupRetentionDays <= 0 {
		c.Scheduling.CleanupRetentionDays = defaultCleanupRetentionDays
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}

// ExpandPath resolves ~ and returns a cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
