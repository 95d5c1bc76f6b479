package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server settings
	ServerPort      string        `yaml:"server_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	Debug           bool          `yaml:"debug"`
	Version         string        `yaml:"version"`

	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Providers ProvidersConfig `yaml:"providers"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	YtDlp     YtDlpConfig     `yaml:"ytdlp"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

type DatabaseConfig struct {
	Driver             string        `yaml:"driver"`
	DSN                string        `yaml:"dsn"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size"`
	// TrustedProxies are remote addresses whose X-Forwarded-For header is
	// believed when keying clients.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type ProvidersConfig struct {
	// Metadata is "ytdlp" or "page".
	Metadata string `yaml:"metadata"`
	// Generation is "openai" or "anthropic".
	Generation string `yaml:"generation"`
}

type OpenAIConfig struct {
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	TranscriptionModel string  `yaml:"transcription_model"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float32 `yaml:"temperature"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type YtDlpConfig struct {
	Path    string        `yaml:"path"`
	TempDir string        `yaml:"temp_dir"`
	Timeout time.Duration `yaml:"timeout"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	MetadataYtDlp = "ytdlp"
	MetadataPage  = "page"

	GenerationOpenAI    = "openai"
	GenerationAnthropic = "anthropic"
)

func defaults() *Config {
	return &Config{
		ServerPort:      "8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    11 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		GenerateTimeout: 10 * time.Minute,
		Version:         "1.0.0",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:             DriverSQLite,
			DSN:                "./data/yt-blog.db",
			MaxConnections:     10,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    30 * time.Minute,
		},
		Session: SessionConfig{
			CookieName: "yt_blog_session",
			TTL:        14 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			BurstSize:         5,
		},
		Providers: ProvidersConfig{
			Metadata:   MetadataYtDlp,
			Generation: GenerationOpenAI,
		},
		OpenAI: OpenAIConfig{
			Model:              "gpt-4o-mini",
			TranscriptionModel: "whisper-1",
			MaxTokens:          1000,
			Temperature:        0.7,
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 1000,
		},
		YtDlp: YtDlpConfig{
			Path:    "yt-dlp",
			TempDir: os.TempDir(),
			Timeout: 5 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.Session.Secret == "" && cfg.Debug {
		secret, err := randomSecret()
		if err != nil {
			return nil, errors.Wrap(err, "generating session secret")
		}
		cfg.Session.Secret = secret
		logrus.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parsing config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.IdleTimeout)
	c.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.GenerateTimeout = getEnvAsDuration("GENERATE_TIMEOUT", c.GenerateTimeout)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)
	c.Version = getEnv("VERSION", c.Version)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Database.MaxConnections = getEnvAsInt("DB_MAX_CONNECTIONS", c.Database.MaxConnections)
	c.Database.MaxIdleConnections = getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", c.Database.MaxIdleConnections)
	c.Database.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.CookieName = getEnv("SESSION_COOKIE_NAME", c.Session.CookieName)
	c.Session.TTL = getEnvAsDuration("SESSION_TTL", c.Session.TTL)
	c.Session.Secure = getEnvAsBool("SESSION_SECURE", c.Session.Secure)

	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerMinute = getEnvAsInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.BurstSize = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.BurstSize)
	c.RateLimit.TrustedProxies = getEnvAsStringSlice("RATE_LIMIT_TRUSTED_PROXIES", c.RateLimit.TrustedProxies)

	c.Providers.Metadata = getEnv("METADATA_PROVIDER", c.Providers.Metadata)
	c.Providers.Generation = getEnv("GENERATION_PROVIDER", c.Providers.Generation)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.TranscriptionModel = getEnv("OPENAI_TRANSCRIPTION_MODEL", c.OpenAI.TranscriptionModel)
	c.OpenAI.MaxTokens = getEnvAsInt("OPENAI_MAX_TOKENS", c.OpenAI.MaxTokens)
	c.OpenAI.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.OpenAI.Temperature)

	c.Anthropic.APIKey = getEnv("ANTHROPIC_API_KEY", c.Anthropic.APIKey)
	c.Anthropic.BaseURL = getEnv("ANTHROPIC_BASE_URL", c.Anthropic.BaseURL)
	c.Anthropic.Model = getEnv("ANTHROPIC_MODEL", c.Anthropic.Model)
	c.Anthropic.MaxTokens = getEnvAsInt("ANTHROPIC_MAX_TOKENS", c.Anthropic.MaxTokens)

	c.YtDlp.Path = getEnv("YTDLP_PATH", c.YtDlp.Path)
	c.YtDlp.TempDir = getEnv("TEMP_DIR", c.YtDlp.TempDir)
	c.YtDlp.Timeout = getEnvAsDuration("YTDLP_TIMEOUT", c.YtDlp.Timeout)

	c.Archive.Enabled = getEnvAsBool("ARCHIVE_ENABLED", c.Archive.Enabled)
	c.Archive.Endpoint = getEnv("ARCHIVE_ENDPOINT", c.Archive.Endpoint)
	c.Archive.Region = getEnv("ARCHIVE_REGION", c.Archive.Region)
	c.Archive.Bucket = getEnv("ARCHIVE_BUCKET", c.Archive.Bucket)
	c.Archive.AccessKey = getEnv("ARCHIVE_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("ARCHIVE_SECRET_KEY", c.Archive.SecretKey)
}

func (c *Config) Validate() error {
	if err := validateServer(c); err != nil {
		return err
	}
	if err := validateDatabase(c); err != nil {
		return err
	}
	if err := validateSession(c); err != nil {
		return err
	}
	return validateProviders(c)
}

func validateServer(c *Config) error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if c.GenerateTimeout <= 0 {
		return errors.New("generate timeout must be greater than 0")
	}
	// The pipeline's error response must still fit inside the write deadline.
	if c.WriteTimeout <= c.GenerateTimeout {
		return errors.Errorf("write timeout (%s) must be greater than generate timeout (%s)", c.WriteTimeout, c.GenerateTimeout)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("rate limit requests per minute must be greater than 0")
	}
	return nil
}

func validateDatabase(c *Config) error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	return nil
}

func validateSession(c *Config) error {
	if c.Session.Secret == "" {
		return errors.New("session secret is required")
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("session secret must be at least 16 bytes")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be greater than 0")
	}
	return nil
}

func validateProviders(c *Config) error {
	switch c.Providers.Metadata {
	case MetadataYtDlp, MetadataPage:
	default:
		return errors.Errorf("unsupported metadata provider %q", c.Providers.Metadata)
	}

	switch c.Providers.Generation {
	case GenerationOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai generation provider")
		}
	case GenerationAnthropic:
		if c.Anthropic.APIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic generation provider")
		}
	default:
		return errors.Errorf("unsupported generation provider %q", c.Providers.Generation)
	}

	// Transcription always goes through the OpenAI audio API.
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required for transcription")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("archive bucket is required when the archive is enabled")
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid float, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return defaultValue
}
