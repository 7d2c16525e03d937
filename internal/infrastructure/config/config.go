package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Backend  BackendConfig
	Pipeline PipelineConfig
	Blender  BlenderConfig
	Status   StatusConfig
	Logging  LogConfig
}

// BackendConfig locates the generation backend.
type BackendConfig struct {
	Host   string `envconfig:"BACKEND_HOST" default:"localhost"`
	Port   int    `envconfig:"BACKEND_PORT" default:"8000"`
	Secure bool   `envconfig:"BACKEND_SECURE" default:"false"`
}

// PipelineConfig holds stage execution settings.
type PipelineConfig struct {
	ImageModel   string        `envconfig:"IMAGE_MODEL" default:"dalle3"`
	StageTimeout time.Duration `envconfig:"STAGE_TIMEOUT" default:"10m"`
	OutputDir    string        `envconfig:"OUTPUT_DIR" default:"output"`
}

// BlenderConfig holds the Blender add-on client settings.
type BlenderConfig struct {
	URL     string        `envconfig:"BLENDER_URL" default:"http://localhost:5666"`
	Timeout time.Duration `envconfig:"BLENDER_TIMEOUT" default:"30s"`
	Retries int           `envconfig:"BLENDER_RETRIES" default:"2"`
}

// StatusConfig holds the status server settings. An empty Addr disables it.
type StatusConfig struct {
	Addr           string   `envconfig:"STATUS_ADDR" default:""`
	AllowOrigins   []string `envconfig:"STATUS_ALLOW_ORIGINS" default:"*"`
	RateLimitRPS   int      `envconfig:"STATUS_RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int      `envconfig:"STATUS_RATE_LIMIT_BURST" default:"40"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Host: "localhost",
			Port: 8000,
		},
		Pipeline: PipelineConfig{
			ImageModel:   "dalle3",
			StageTimeout: 10 * time.Minute,
			OutputDir:    "output",
		},
		Blender: BlenderConfig{
			URL:     "http://localhost:5666",
			Timeout: 30 * time.Second,
			Retries: 2,
		},
		Status: StatusConfig{
			AllowOrigins:   []string{"*"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
