package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all harvester configuration.
type Config struct {
	GitHub   GitHubConfig   `toml:"github"`
	ToolShed ToolShedConfig `toml:"toolshed"`
	Hub      HubConfig      `toml:"workflowhub"`
	Crawl    CrawlConfig    `toml:"crawl"`
	HTTP     HTTPConfig     `toml:"http"`
	Logging  LogConfig      `toml:"logging"`
	Store    StoreConfig    `toml:"store"`
	Server   ServerConfig   `toml:"server"`
}

// GitHubConfig holds repository content API settings.
type GitHubConfig struct {
	Token  string `envconfig:"GITHUB_TOKEN" toml:"api_key"`
	APIURL string `envconfig:"GITHUB_API_URL" toml:"api_url"`
}

// ToolShedConfig holds package registry settings.
type ToolShedConfig struct {
	URL                string   `envconfig:"TOOLSHED_URL" toml:"url"`
	IgnoreRepositories []string `envconfig:"TOOLSHED_IGNORE" toml:"ignore"`
}

// HubConfig holds workflow catalog settings.
type HubConfig struct {
	URL            string `envconfig:"WORKFLOWHUB_URL" toml:"url"`
	DescriptorType string `envconfig:"WORKFLOWHUB_TYPE" toml:"descriptor_type"`
}

// CrawlConfig holds crawl scheduler settings.
type CrawlConfig struct {
	Workers             int      `envconfig:"CRAWL_WORKERS" toml:"workers"`
	HostConcurrency     int      `envconfig:"CRAWL_HOST_CONCURRENCY" toml:"host_concurrency"`
	Cooldown            Duration `envconfig:"RATE_LIMIT_COOLDOWN" toml:"cooldown"`
	MaxRateLimitRetries int      `envconfig:"RATE_LIMIT_MAX_RETRIES" toml:"max_rate_limit_retries"`
	Substitution        string   `envconfig:"SUBSTITUTION" toml:"substitution"`
	Exclude             []string `envconfig:"CRAWL_EXCLUDE" toml:"exclude"`
}

// HTTPConfig holds outbound HTTP client settings.
type HTTPConfig struct {
	Timeout           Duration `envconfig:"HTTP_TIMEOUT" toml:"timeout"`
	RetryMax          int      `envconfig:"HTTP_RETRY_MAX" toml:"retry_max"`
	RequestsPerSecond float64  `envconfig:"HTTP_RPS" toml:"requests_per_second"`
	UserAgent         string   `envconfig:"HTTP_USER_AGENT" toml:"user_agent"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// StoreConfig holds crawl record persistence settings.
type StoreConfig struct {
	Path string `envconfig:"STORE_PATH" toml:"path"`
}

// ServerConfig holds status server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port"`
	Host string `envconfig:"HOST" toml:"host"`
}

// Duration is a time.Duration read from "1h30m" style strings in both TOML and env.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load builds configuration from defaults, then each existing TOML file in
// order, then environment variables. Missing files are skipped.
func Load(files ...string) (*Config, error) {
	cfg := Default()
	for _, path := range files {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	// No default tags: unset variables keep the file or default value.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or returns defaults on error.
func LoadOrDefault(files ...string) *Config {
	cfg, err := Load(files...)
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the crawler cannot run with.
func (c *Config) Validate() error {
	if c.Crawl.Workers < 1 {
		return fmt.Errorf("crawl workers must be positive, got %d", c.Crawl.Workers)
	}
	if c.Crawl.HostConcurrency < 1 {
		return fmt.Errorf("crawl host concurrency must be positive, got %d", c.Crawl.HostConcurrency)
	}
	if c.Crawl.MaxRateLimitRetries < 0 {
		return fmt.Errorf("rate limit retries cannot be negative")
	}
	switch c.Crawl.Substitution {
	case "text", "boundary":
	default:
		return fmt.Errorf("unknown substitution strategy %q", c.Crawl.Substitution)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		ToolShed: ToolShedConfig{
			URL:                "https://toolshed.g2.bx.psu.edu",
			IgnoreRepositories: []string{"kubernetes"},
		},
		Hub: HubConfig{
			URL:            "https://workflowhub.eu/ga4gh/trs/v2",
			DescriptorType: "galaxy",
		},
		Crawl: CrawlConfig{
			Workers:         8,
			HostConcurrency: 4,
			// GitHub resets its hourly quota; a little slack avoids an immediate second 403
			Cooldown:            Duration(time.Hour + 10*time.Second),
			MaxRateLimitRetries: 3,
			Substitution:        "text",
		},
		HTTP: HTTPConfig{
			Timeout:   Duration(30 * time.Second),
			RetryMax:  3,
			UserAgent: "toolmeta-harvester/1.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Path: "data/harvest.db",
		},
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
	}
}
