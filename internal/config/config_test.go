package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
)

// clearEnv unsets every variable LoadFrom reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLAUDE_DIR", "STATS_CACHE_PATH", "PROJECTS_DIR", "DATABASE_PATH",
		"CONVERSATION_CACHE_PATH", "REFRESH_INTERVAL", "CUA_NOTIFICATIONS",
		"OPUS_CACHE_READ", "RETENTION_DAYS", "CUA_DEBUG", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestGetEnvString(t *testing.T) {
	key := "TEST_ENV_STRING"
	val := "test_value"
	t.Setenv(key, val)

	if got := getEnvString(key, "default"); got != val {
		t.Errorf("getEnvString() = %q, want %q", got, val)
	}

	if got := getEnvString("NON_EXISTENT", "default"); got != "default" {
		t.Errorf("getEnvString() = %q, want %q", got, "default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_ENV_DURATION"

	tests := []struct {
		name       string
		envVal     string
		defaultVal time.Duration
		want       time.Duration
	}{
		{"ValidDuration", "1m", time.Second, time.Minute},
		{"ValidSeconds", "60", time.Second, 60 * time.Second},
		{"Invalid", "invalid", time.Second, time.Second},
		{"Empty", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)

			if got := getEnvDuration(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_ENV_BOOL"

	tests := []struct {
		envVal string
		def    bool
		want   bool
	}{
		{"1", false, true},
		{"yes", false, true},
		{"TRUE", false, true},
		{"0", true, false},
		{"off", true, false},
		{"", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envVal, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getEnvBool(key, tt.def); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envVal, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "dir")

	if err := ensureDir(path); err != nil {
		t.Fatalf("ensureDir() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("os.Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Error("ensureDir() did not create a directory")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome() = %q, want unchanged", got)
	}
}

func TestGetEnvPaths(t *testing.T) {
	paths := getEnvPaths()
	if len(paths) == 0 {
		t.Fatal("getEnvPaths() returned no paths")
	}
	for _, p := range paths {
		if filepath.Base(p) != ".env" {
			t.Errorf("unexpected env path %q", p)
		}
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("CLAUDE_DIR", dir)

	cfg, err := LoadFrom(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.StatsCachePath != filepath.Join(dir, "stats-cache.json") {
		t.Errorf("StatsCachePath = %q", cfg.StatsCachePath)
	}
	if cfg.ProjectsDir != filepath.Join(dir, "projects") {
		t.Errorf("ProjectsDir = %q", cfg.ProjectsDir)
	}
	if cfg.DatabasePath != filepath.Join(dir, "analytics.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.LogPath != filepath.Join(dir, "cua.log") {
		t.Errorf("LogPath = %q", cfg.LogPath)
	}
	if cfg.RefreshInterval != defaultRefreshInterval {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if !cfg.Notifications {
		t.Error("Notifications should default to true")
	}
	if cfg.OpusCacheReadVariant != pricing.Variant1875 {
		t.Errorf("OpusCacheReadVariant = %q", cfg.OpusCacheReadVariant)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("Warnings = %v", cfg.Warnings)
	}
}

func TestLoadFrom_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
claude_dir = "`+dir+`"
refresh_interval = "2m"
notifications = false
opus_cache_read_variant = "1.50"
retention_days = 90
colour = "blue"

[pricing]
haiku = [0.8, 4.0, 0.08, 1.0]
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ClaudeDir != dir {
		t.Errorf("ClaudeDir = %q", cfg.ClaudeDir)
	}
	if cfg.RefreshInterval != 2*time.Minute {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.Notifications {
		t.Error("Notifications should be false")
	}
	if cfg.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d", cfg.RetentionDays)
	}
	if cfg.PricingOverrides["haiku"] != [4]float64{0.8, 4.0, 0.08, 1.0} {
		t.Errorf("PricingOverrides = %v", cfg.PricingOverrides)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "colour") {
		t.Errorf("Warnings = %v", cfg.Warnings)
	}

	rates := cfg.Pricing().Lookup("claude-opus-4")
	if rates.CacheRead != 1.50 {
		t.Errorf("opus cache read = %v, want 1.50", rates.CacheRead)
	}
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
refresh_interval = "2m"
retention_days = 90
`)
	t.Setenv("REFRESH_INTERVAL", "15s")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("CUA_DEBUG", "1")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.RefreshInterval != 15*time.Second {
		t.Errorf("RefreshInterval = %v, want 15s", cfg.RefreshInterval)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.RetentionDays)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"BadVariant", `opus_cache_read_variant = "2.00"`},
		{"NegativeRetention", `retention_days = -1`},
		{"NegativeRate", "[pricing]\nopus = [-1.0, 75.0, 1.875, 18.75]"},
		{"Malformed", `refresh_interval = `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrom(writeConfig(t, tt.content)); err == nil {
				t.Error("LoadFrom() expected error")
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DatabasePath:          filepath.Join(dir, "a", "analytics.db"),
		ConversationCachePath: filepath.Join(dir, "b", "cache.json"),
		LogPath:               filepath.Join(dir, "a", "cua.log"),
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	for _, sub := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("missing dir %s: %v", sub, err)
		}
	}
}
