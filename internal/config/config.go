package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// BaseURLEnv overrides api_base_url when set.
const BaseURLEnv = "SOFTRACK_API_BASE_URL"

type Config struct {
	APIBaseURL           string   `toml:"api_base_url"`
	ReportsOutput        string   `toml:"reports_output"`
	PageSize             int      `toml:"page_size"`
	ExpirationWindowDays int      `toml:"expiration_window_days"`
	RequestTimeout       Duration `toml:"request_timeout"`
	LogLevel             string   `toml:"log_level"`
}

// Duration lets TOML carry values like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		APIBaseURL:           "http://127.0.0.1:8000/api/v1",
		ReportsOutput:        filepath.Join(homeDir, "Documents", "reports"),
		PageSize:             9,
		ExpirationWindowDays: 30,
		RequestTimeout:       Duration{30 * time.Second},
		LogLevel:             "info",
	}
}

func SoftrackDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".softrack"), nil
}

func ConfigPath() (string, error) {
	dir, err := SoftrackDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func DatabasePath() (string, error) {
	dir, err := SoftrackDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "db", "softrack.sqlite"), nil
}

func LogPath() (string, error) {
	dir, err := SoftrackDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "softrack.log"), nil
}

func EnsureDirectories() error {
	dir, err := SoftrackDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, "db"), 0755); err != nil {
		return err
	}

	return nil
}

// Load reads ~/.softrack/config.toml, writing the defaults first if the file
// does not exist yet.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

func LoadFrom(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, err
		}
		if err := SaveTo(configPath, cfg); err != nil {
			return nil, err
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	if v := os.Getenv(BaseURLEnv); v != "" {
		cfg.APIBaseURL = v
	}
	cfg.ReportsOutput = expandPath(cfg.ReportsOutput)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configPath, cfg)
}

func SaveTo(configPath string, cfg *Config) error {
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_base_url %q is not an absolute URL", c.APIBaseURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.ExpirationWindowDays < 0 {
		return fmt.Errorf("expiration_window_days must not be negative, got %d", c.ExpirationWindowDays)
	}
	if c.RequestTimeout.Duration < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
