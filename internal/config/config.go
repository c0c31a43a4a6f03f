package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	GitLab    GitLabConfig    `yaml:"gitlab"`
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig holds logging settings.
// An empty Dir disables file logging.
type LoggingConfig struct {
	Dir                  string `yaml:"dir"`
	RetentionDays        int    `yaml:"retention_days"`
	CleanupIntervalHours int    `yaml:"cleanup_interval_hours"`
	Level                string `yaml:"level"`
	Format               string `yaml:"format"` // text or json
}

// GitLabConfig holds GitLab API and webhook settings.
type GitLabConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheMB        int    `yaml:"cache_mb"` // response cache budget
}

// LLMConfig holds settings for the analysis oracle.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	MaxFiles       int    `yaml:"max_files"`
}

// DatabaseConfig selects the review store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DSN    string `yaml:"dsn"`
}

// DashboardConfig enables deep links in GitLab comments when BaseURL is set.
type DashboardConfig struct {
	BaseURL string `yaml:"base_url"`
}

// DispatchConfig bounds background analyses. Zero means unbounded.
type DispatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 7000,
		},
		Logging: LoggingConfig{
			RetentionDays:        30,
			CleanupIntervalHours: 24,
			Level:                "info",
			Format:               "text",
		},
		GitLab: GitLabConfig{
			BaseURL:        "https://gitlab.com",
			TimeoutSeconds: 30,
			CacheMB:        32,
		},
		LLM: LLMConfig{
			Model:          "gemini-2.0-flash",
			TimeoutSeconds: 120,
			MaxFiles:       20,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "aireview.db",
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Dashboard.BaseURL = strings.TrimRight(cfg.Dashboard.BaseURL, "/")
	cfg.GitLab.BaseURL = strings.TrimRight(cfg.GitLab.BaseURL, "/")

	return cfg, nil
}

// Validate reports every missing or invalid setting required to serve.
func (c *Config) Validate() error {
	var errs []error
	if c.GitLab.WebhookSecret == "" {
		errs = append(errs, errors.New("gitlab.webhook_secret is required"))
	}
	if c.GitLab.Token == "" {
		errs = append(errs, errors.New("gitlab.token is required"))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required"))
	}
	if c.LLM.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("llm.max_files must not be negative, got %d", c.LLM.MaxFiles))
	}
	if c.Dispatch.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_concurrent must not be negative, got %d", c.Dispatch.MaxConcurrent))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	return errors.Join(errs...)
}
