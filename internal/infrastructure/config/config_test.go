package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "https://toolshed.g2.bx.psu.edu", cfg.ToolShed.URL)
	assert.Equal(t, []string{"kubernetes"}, cfg.ToolShed.IgnoreRepositories)
	assert.Equal(t, "galaxy", cfg.Hub.DescriptorType)

	assert.Equal(t, 8, cfg.Crawl.Workers)
	assert.Equal(t, 4, cfg.Crawl.HostConcurrency)
	assert.Equal(t, time.Hour+10*time.Second, cfg.Crawl.Cooldown.Std())
	assert.Equal(t, 3, cfg.Crawl.MaxRateLimitRetries)
	assert.Equal(t, "text", cfg.Crawl.Substitution)

	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout.Std())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"GITHUB_TOKEN":           "secret",
		"CRAWL_WORKERS":          "2",
		"RATE_LIMIT_COOLDOWN":    "90s",
		"RATE_LIMIT_MAX_RETRIES": "5",
		"SUBSTITUTION":           "boundary",
		"CRAWL_EXCLUDE":          "**/test-data/**,**/archive/**",
		"HTTP_RPS":               "1.5",
		"LOG_LEVEL":              "debug",
		"LOG_DEV":                "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.GitHub.Token)
	assert.Equal(t, 2, cfg.Crawl.Workers)
	assert.Equal(t, 90*time.Second, cfg.Crawl.Cooldown.Std())
	assert.Equal(t, 5, cfg.Crawl.MaxRateLimitRetries)
	assert.Equal(t, "boundary", cfg.Crawl.Substitution)
	assert.Equal(t, []string{"**/test-data/**", "**/archive/**"}, cfg.Crawl.Exclude)
	assert.Equal(t, 1.5, cfg.HTTP.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	// untouched values keep their defaults
	assert.Equal(t, 4, cfg.Crawl.HostConcurrency)
	assert.Equal(t, "https://toolshed.g2.bx.psu.edu", cfg.ToolShed.URL)
}

func TestLoadLayersFiles(t *testing.T) {
	dir := t.TempDir()
	mainFile := filepath.Join(dir, "config.toml")
	secretsFile := filepath.Join(dir, ".secrets.toml")

	require.NoError(t, os.WriteFile(mainFile, []byte(`
[crawl]
workers = 3
cooldown = "2m"

[toolshed]
url = "https://toolshed.example.org"
ignore = ["kubernetes", "docker"]

[github]
api_key = "from-main"
`), 0o600))
	require.NoError(t, os.WriteFile(secretsFile, []byte(`
[github]
api_key = "from-secrets"
`), 0o600))

	t.Run("files overlay defaults in order", func(t *testing.T) {
		cfg, err := Load(mainFile, secretsFile, filepath.Join(dir, "missing.toml"))
		require.NoError(t, err)

		assert.Equal(t, 3, cfg.Crawl.Workers)
		assert.Equal(t, 2*time.Minute, cfg.Crawl.Cooldown.Std())
		assert.Equal(t, "https://toolshed.example.org", cfg.ToolShed.URL)
		assert.Equal(t, []string{"kubernetes", "docker"}, cfg.ToolShed.IgnoreRepositories)
		assert.Equal(t, "from-secrets", cfg.GitHub.Token)
		assert.Equal(t, 4, cfg.Crawl.HostConcurrency)
	})

	t.Run("environment wins over files", func(t *testing.T) {
		t.Setenv("CRAWL_WORKERS", "6")
		cfg, err := Load(mainFile)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Crawl.Workers)
	})
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("bad toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[crawl\nworkers = "), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_COOLDOWN", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown substitution", func(t *testing.T) {
		t.Setenv("SUBSTITUTION", "regex")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero workers", func(t *testing.T) {
		t.Setenv("CRAWL_WORKERS", "0")
		_, err := Load()
		assert.Error(t, err)

		cfg := LoadOrDefault()
		assert.Equal(t, 8, cfg.Crawl.Workers)
	})
}
