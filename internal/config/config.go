package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Resolve  ResolveConfig  `yaml:"resolve"`
	Download DownloadConfig `yaml:"download"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8639"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"10m"`
}

// StorageConfig holds filesystem and database paths.
type StorageConfig struct {
	BasePath     string `yaml:"base_path" envconfig:"STORAGE_PATH" default:"/data/downloads"`
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH" default:"/data/streambridge.db"`
}

// GeminiConfig holds generative AI service configuration.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model   string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	Timeout time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT" default:"30s"`
}

// ResolveConfig holds metadata resolution configuration. The timeout is
// a fixed deployment constant, not adjustable per request.
type ResolveConfig struct {
	Timeout time.Duration `yaml:"timeout" envconfig:"RESOLVE_TIMEOUT" default:"25s"`
}

// DownloadConfig holds download simulation configuration.
type DownloadConfig struct {
	SampleURL     string        `yaml:"sample_url" envconfig:"DOWNLOAD_SAMPLE_URL" default:"https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4"`
	UserAgent     string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" envconfig:"DOWNLOAD_PROBE_TIMEOUT" default:"10s"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"DOWNLOAD_READ_TIMEOUT" default:"60s"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"DOWNLOAD_RETRY_DELAY" default:"5s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"DOWNLOAD_MAX_RETRY_DELAY" default:"60s"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if c.Download.SampleURL == "" {
		return fmt.Errorf("DOWNLOAD_SAMPLE_URL is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
