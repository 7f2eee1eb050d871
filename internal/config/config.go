// Package config loads pubdraft's configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PUBDRAFT_"

// Config is the file form of the server and editor settings.
type Config struct {
	Server ServerConfig `toml:"server" yaml:"server"`
	Editor EditorConfig `toml:"editor" yaml:"editor"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Name          string `toml:"name" yaml:"name"`
	URL           string `toml:"url" yaml:"url"`
	Description   string `toml:"description" yaml:"description"`
	Addr          string `toml:"addr" yaml:"addr"`
	DatabasePath  string `toml:"database_path" yaml:"database_path"`
	UploadDir     string `toml:"upload_dir" yaml:"upload_dir"`
	SessionSecret string `toml:"session_secret" yaml:"session_secret"`
	CookieSecure  bool   `toml:"cookie_secure" yaml:"cookie_secure"`
	UploadsPerMin int    `toml:"uploads_per_minute" yaml:"uploads_per_minute"`
}

// EditorConfig configures editor sessions.
type EditorConfig struct {
	AutosaveSchedule string        `toml:"autosave_schedule" yaml:"autosave_schedule"`
	HistoryLimit     int           `toml:"history_limit" yaml:"history_limit"`
	StatusTTL        time.Duration `toml:"status_ttl" yaml:"status_ttl"`
	IdleTimeout      time.Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	PasteSizeLimit   bool          `toml:"paste_size_limit" yaml:"paste_size_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Path   string `toml:"path" yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:          "pubdraft",
			URL:           "http://localhost:3000",
			Addr:          ":3000",
			DatabasePath:  "data/pubdraft.db",
			UploadDir:     "uploads",
			UploadsPerMin: 20,
		},
		Editor: EditorConfig{
			AutosaveSchedule: "@every 1m",
			HistoryLimit:     100,
			StatusTTL:        3 * time.Second,
			IdleTimeout:      30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path (TOML or YAML by extension), applies environment
// overrides and validates the result. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", ext)
	}
	return cfg, nil
}

// ApplyEnvOverrides overrides fields from PUBDRAFT_* variables.
func (c *Config) ApplyEnvOverrides() error {
	str := map[string]*string{
		"NAME":              &c.Server.Name,
		"URL":               &c.Server.URL,
		"DESCRIPTION":       &c.Server.Description,
		"ADDR":              &c.Server.Addr,
		"DATABASE_PATH":     &c.Server.DatabasePath,
		"UPLOAD_DIR":        &c.Server.UploadDir,
		"SESSION_SECRET":    &c.Server.SessionSecret,
		"AUTOSAVE_SCHEDULE": &c.Editor.AutosaveSchedule,
		"LOG_LEVEL":         &c.Log.Level,
		"LOG_FORMAT":        &c.Log.Format,
		"LOG_PATH":          &c.Log.Path,
	}
	for name, dst := range str {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	var errs []error
	if v := os.Getenv(EnvPrefix + "COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("COOKIE_SECURE", err))
		c.Server.CookieSecure = b
	}
	if v := os.Getenv(EnvPrefix + "PASTE_SIZE_LIMIT"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("PASTE_SIZE_LIMIT", err))
		c.Editor.PasteSizeLimit = b
	}
	if v := os.Getenv(EnvPrefix + "IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		errs = append(errs, envErr("IDLE_TIMEOUT", err))
		c.Editor.IdleTimeout = d
	}
	return errors.Join(errs...)
}

func envErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
}

// Validate checks values that would fail later at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.DatabasePath == "" {
		errs = append(errs, errors.New("server.database_path is required"))
	}
	if c.Server.UploadsPerMin < 1 {
		errs = append(errs, errors.New("server.uploads_per_minute must be positive"))
	}
	if _, err := cron.ParseStandard(c.Editor.AutosaveSchedule); err != nil {
		errs = append(errs, fmt.Errorf("editor.autosave_schedule: %w", err))
	}
	if c.Editor.HistoryLimit < 1 {
		errs = append(errs, errors.New("editor.history_limit must be positive"))
	}
	if c.Editor.StatusTTL <= 0 {
		errs = append(errs, errors.New("editor.status_ttl must be positive"))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
