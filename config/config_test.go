package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("OPENAI_API_KEY", "test-key")
}

func TestLoadConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("READ_TIMEOUT", "10s")
	t.Setenv("WRITE_TIMEOUT", "6m")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("GENERATE_TIMEOUT", "5m")
	t.Setenv("DB_DSN", "/tmp/test.db")
	t.Setenv("RATE_LIMIT_RPM", "10")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load()
	require.NoError(t, err)

	if cfg.ServerPort != "9090" {
		t.Errorf("expected 9090, got %s", cfg.ServerPort)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 6*time.Minute {
		t.Errorf("expected 6m, got %s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.IdleTimeout)
	}
	if cfg.GenerateTimeout != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.GenerateTimeout)
	}
	if cfg.Database.DSN != "/tmp/test.db" {
		t.Errorf("expected /tmp/test.db, got %s", cfg.Database.DSN)
	}
	if cfg.RateLimit.RequestsPerMinute != 10 {
		t.Errorf("expected 10, got %d", cfg.RateLimit.RequestsPerMinute)
	}
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.RateLimit.TrustedProxies)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestLoadConfigInvalidValuesKeepDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("READ_TIMEOUT", "soon")
	t.Setenv("DB_MAX_CONNECTIONS", "many")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server_port: "7070"
generate_timeout: 2m
database:
  driver: postgres
  dsn: postgres://blog@localhost/blog
providers:
  metadata: page
  generation: anthropic
anthropic:
  api_key: file-key
  model: claude-test
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "6060", cfg.ServerPort, "env overrides the file")
	assert.Equal(t, 2*time.Minute, cfg.GenerateTimeout)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://blog@localhost/blog", cfg.Database.DSN)
	assert.Equal(t, MetadataPage, cfg.Providers.Metadata)
	assert.Equal(t, GenerationAnthropic, cfg.Providers.Generation)
	assert.Equal(t, "claude-test", cfg.Anthropic.Model)
	assert.Equal(t, 1000, cfg.Anthropic.MaxTokens, "unset keys keep defaults")
}

func TestLoadConfigMissingFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadConfigDebugGeneratesSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Session.Secret, 64)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Session.Secret = "0123456789abcdef"
		cfg.OpenAI.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty port", func(c *Config) { c.ServerPort = "" }, true},
		{"zero generate timeout", func(c *Config) { c.GenerateTimeout = 0 }, true},
		{"write timeout equals generate timeout", func(c *Config) { c.WriteTimeout = c.GenerateTimeout }, true},
		{"write timeout below generate timeout", func(c *Config) {
			c.WriteTimeout = time.Minute
			c.GenerateTimeout = 2 * time.Minute
		}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"missing secret", func(c *Config) { c.Session.Secret = "" }, true},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, true},
		{"unknown metadata provider", func(c *Config) { c.Providers.Metadata = "oembed" }, true},
		{"anthropic without key", func(c *Config) { c.Providers.Generation = GenerationAnthropic }, true},
		{"anthropic with key", func(c *Config) {
			c.Providers.Generation = GenerationAnthropic
			c.Anthropic.APIKey = "key"
		}, false},
		{"missing openai key", func(c *Config) { c.OpenAI.APIKey = "" }, true},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }, true},
		{"rate limit zero", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultWriteTimeoutCoversGeneration(t *testing.T) {
	cfg := defaults()
	assert.Greater(t, cfg.WriteTimeout, cfg.GenerateTimeout)
}

func TestLoadConfigRejectsShortWriteTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WRITE_TIMEOUT", "1m")
	t.Setenv("GENERATE_TIMEOUT", "10m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write timeout")
}
