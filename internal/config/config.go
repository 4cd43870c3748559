// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/j-veylop/claude-usage-analytics/internal/logger"
	"github.com/j-veylop/claude-usage-analytics/internal/pricing"
)

// Config holds the application configuration.
type Config struct {
	ClaudeDir             string
	StatsCachePath        string
	ProjectsDir           string
	DatabasePath          string
	ConversationCachePath string
	LogPath               string
	LogLevel              slog.Level
	RefreshInterval       time.Duration
	Notifications         bool
	OpusCacheReadVariant  pricing.Variant
	RetentionDays         int
	PricingOverrides      map[string][4]float64

	// Warnings lists unknown keys found in the config file.
	Warnings []string
}

// Default values
const (
	defaultRefreshInterval = 60 * time.Second
)

// fileConfig mirrors config.toml. Pointer fields distinguish unset from zero.
type fileConfig struct {
	ClaudeDir             *string               `toml:"claude_dir"`
	StatsCachePath        *string               `toml:"stats_cache_path"`
	ProjectsDir           *string               `toml:"projects_dir"`
	DatabasePath          *string               `toml:"database_path"`
	ConversationCachePath *string               `toml:"conversation_cache_path"`
	RefreshInterval       *string               `toml:"refresh_interval"`
	Notifications         *bool                 `toml:"notifications"`
	OpusCacheReadVariant  *string               `toml:"opus_cache_read_variant"`
	RetentionDays         *int                  `toml:"retention_days"`
	Pricing               map[string][4]float64 `toml:"pricing"`
}

// Load reads configuration from .env files, the TOML config file and
// environment variables. Environment wins over the file, the file wins over
// defaults.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	return LoadFrom(getEnvString("CUA_CONFIG", getDefaultConfigPath()))
}

// LoadFrom builds the configuration using the TOML file at path. A missing
// file is not an error.
func LoadFrom(path string) (*Config, error) {
	var fc fileConfig
	var warnings []string

	if path != "" {
		md, err := toml.DecodeFile(path, &fc)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		default:
			for _, key := range md.Undecoded() {
				warnings = append(warnings, fmt.Sprintf("unknown config key: %q", key.String()))
			}
		}
	}

	claudeDir := getEnvString("CLAUDE_DIR", deref(fc.ClaudeDir, getDefaultClaudeDir()))
	claudeDir = expandHome(claudeDir)

	cfg := &Config{
		ClaudeDir:             claudeDir,
		StatsCachePath:        pathSetting("STATS_CACHE_PATH", fc.StatsCachePath, filepath.Join(claudeDir, "stats-cache.json")),
		ProjectsDir:           pathSetting("PROJECTS_DIR", fc.ProjectsDir, filepath.Join(claudeDir, "projects")),
		DatabasePath:          pathSetting("DATABASE_PATH", fc.DatabasePath, filepath.Join(claudeDir, "analytics.db")),
		ConversationCachePath: pathSetting("CONVERSATION_CACHE_PATH", fc.ConversationCachePath, filepath.Join(claudeDir, "analytics-conversation-cache.json")),
		RefreshInterval:       getEnvDuration("REFRESH_INTERVAL", parseDuration(deref(fc.RefreshInterval, ""), defaultRefreshInterval)),
		Notifications:         getEnvBool("CUA_NOTIFICATIONS", deref(fc.Notifications, true)),
		RetentionDays:         getEnvInt("RETENTION_DAYS", deref(fc.RetentionDays, 0)),
		PricingOverrides:      fc.Pricing,
		Warnings:              warnings,
	}
	cfg.LogPath = filepath.Join(filepath.Dir(cfg.DatabasePath), "cua.log")
	cfg.LogLevel = logger.ParseLevel(getEnvString("LOG_LEVEL", "info"))
	if getEnvBool("CUA_DEBUG", false) {
		cfg.LogLevel = slog.LevelDebug
	}

	variant := pricing.Variant(getEnvString("OPUS_CACHE_READ", deref(fc.OpusCacheReadVariant, string(pricing.Variant1875))))
	if err := validate(cfg, variant); err != nil {
		return nil, err
	}
	cfg.OpusCacheReadVariant = variant

	return cfg, nil
}

// Pricing returns the pricing table selected by the configuration.
func (c *Config) Pricing() *pricing.Table {
	table := pricing.NewTable(c.OpusCacheReadVariant)
	if len(c.PricingOverrides) > 0 {
		table = table.WithOverrides(c.PricingOverrides)
	}
	return table
}

// EnsureDirs creates the directories the application writes into.
func (c *Config) EnsureDirs() error {
	for _, p := range []string{c.DatabasePath, c.ConversationCachePath, c.LogPath} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return err
		}
	}
	return nil
}

func validate(cfg *Config, variant pricing.Variant) error {
	var errs []string

	if variant != pricing.Variant1875 && variant != pricing.Variant1_50 {
		errs = append(errs, fmt.Sprintf("opus_cache_read_variant must be %q or %q, got %q",
			pricing.Variant1875, pricing.Variant1_50, variant))
	}
	if cfg.RefreshInterval <= 0 {
		errs = append(errs, fmt.Sprintf("refresh_interval must be positive, got %s", cfg.RefreshInterval))
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, fmt.Sprintf("retention_days must not be negative, got %d", cfg.RetentionDays))
	}
	for family, rates := range cfg.PricingOverrides {
		for _, r := range rates {
			if r < 0 {
				errs = append(errs, fmt.Sprintf("pricing.%s rates must not be negative", family))
				break
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "claude-usage-analytics", ".env"),
			filepath.Join(home, ".claude", ".env"),
		)
	}

	return paths
}

// getDefaultConfigPath returns the default path of config.toml.
func getDefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "claude-usage-analytics", "config.toml")
}

// getDefaultClaudeDir returns the Claude Code data directory.
func getDefaultClaudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

func pathSetting(env string, file *string, def string) string {
	return expandHome(getEnvString(env, deref(file, def)))
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return parseDuration(os.Getenv(key), defaultValue)
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	// Try parsing as seconds if no unit specified
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvBool accepts 1/0, true/false, yes/no, on/off.
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
