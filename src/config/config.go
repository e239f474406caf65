package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"trade-dashboard/src/helpers"
	"trade-dashboard/src/models"
	"trade-dashboard/src/utils"
)

// EnvPrefix namespaces every environment override, e.g. DASHBOARD_SOURCE_BASE_URL.
const EnvPrefix = "DASHBOARD_"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used when no file is given.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:     "trade-dashboard",
		Host:     "0.0.0.0",
		Port:     8050,
		LogLevel: "INFO",
		GrpcPort: 0,
		Source: models.MSourceConfig{
			BaseURL:            "http://127.0.0.1:8000/data",
			RequestTimeout:     5,
			MaxRetries:         0,
			ConcurrentRequests: 4,
			UserAgent:          "trade-dashboard/1.0",
		},
		Chart: models.MChartConfig{Range: utils.DefaultChartRange},
		Storage: models.MStorageConfig{
			DBType:        "none",
			DBPath:        "dashboard_history.db",
			RetentionDays: utils.DefaultRetentionDays,
		},
	}
}

// -----------------------------------------------------------------------------

// NewConfig loads defaults, then the YAML file at configPath if one is given,
// then DASHBOARD_* environment overrides.
func NewConfig(configPath string) (*Config, error) {
	modelConfig := Defaults()

	// 1. YAML file, optional
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, modelConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	}

	// 2. Environment
	if err := env.ParseWithOptions(modelConfig, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	config := &Config{MConfig: modelConfig}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return errors.New("server host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Source
	if c.Source.BaseURL == "" {
		return errors.New("source base_url cannot be empty")
	}
	if u, err := url.Parse(c.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid source base_url: %q", c.Source.BaseURL)
	}
	if c.Source.RequestTimeout <= 0 {
		return errors.New("request timeout must be greater than 0")
	}
	if c.Source.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.Source.ConcurrentRequests <= 0 {
		return errors.New("concurrent requests must be greater than 0")
	}
	if c.Source.Proxy != "" && !helpers.ValidateProxy(c.Source.Proxy) {
		return fmt.Errorf("invalid source proxy: %q", c.Source.Proxy)
	}

	// Live channel
	if c.Live.PushURL != "" {
		u, err := url.Parse(c.Live.PushURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("push_url must be a ws:// or wss:// URL: %q", c.Live.PushURL)
		}
	}

	// Chart
	if c.Chart.Range <= 0 {
		return errors.New("chart range must be greater than 0")
	}

	// Storage
	switch c.Storage.DBType {
	case "", "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return errors.New("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database type: %q", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return errors.New("retention days cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
