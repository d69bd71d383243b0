package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelay/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesDefaultsForMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", resolved)
	}
	if cfg.Instagram.BaseURL != "https://graph.instagram.com/v21.0" {
		t.Fatalf("unexpected default base url %q", cfg.Instagram.BaseURL)
	}
	if cfg.Scheduling.Timezone != "Europe/Paris" {
		t.Fatalf("unexpected default timezone %q", cfg.Scheduling.Timezone)
	}
	if cfg.Instagram.ProcessingTimeout != 300 || cfg.Instagram.PollInterval != 10 {
		t.Fatalf("unexpected publish timing defaults: %+v", cfg.Instagram)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"[paths]",
		`records_dir = "` + filepath.Join(dir, "records") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[instagram]",
		`access_token = " token "`,
		`business_account_id = "12345"`,
		`base_url = "https://graph.instagram.com/v21.0/"`,
		"[scheduling]",
		`timezone = "UTC"`,
	}, "\n")
	path := filepath.Join(dir, "reelay.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Instagram.AccessToken != "token" {
		t.Fatalf("access token not trimmed: %q", cfg.Instagram.AccessToken)
	}
	if strings.HasSuffix(cfg.Instagram.BaseURL, "/") {
		t.Fatalf("base url not trimmed: %q", cfg.Instagram.BaseURL)
	}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.String() != "UTC" {
		t.Fatalf("unexpected location %s", loc)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduling.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid timezone to fail validation")
	}

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid log format to fail validation")
	}

	cfg = config.Default()
	cfg.Instagram.ProcessingTimeout = 5
	cfg.Instagram.PollInterval = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected timeout below poll interval to fail validation")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecordsDir = filepath.Join(dir, "records")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.RecordsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", d)
		}
	}
	if got := cfg.HistoryDBPath(); got != filepath.Join(cfg.Paths.LogDir, "history.db") {
		t.Fatalf("unexpected history path %s", got)
	}
}
