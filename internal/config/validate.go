package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the configuration for structural problems. Credentials may
// be empty at load time; the clients that need them fail at construction
// with a configuration error instead.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.RecordsDir) == "" {
		return fmt.Errorf("paths.records_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir must not be empty")
	}

	parsed, err := url.Parse(c.Instagram.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("instagram.base_url %q is not a valid URL", c.Instagram.BaseURL)
	}
	if c.Instagram.ProcessingTimeout < c.Instagram.PollInterval {
		return fmt.Errorf("instagram.processing_timeout (%ds) must be at least poll_interval (%ds)",
			c.Instagram.ProcessingTimeout, c.Instagram.PollInterval)
	}

	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("scheduling.timezone %q is not a valid IANA zone: %w", c.Scheduling.Timezone, err)
	}

	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format %q is not supported (console, json)", c.Logging.Format)
	}
	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level %q is not supported (debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
