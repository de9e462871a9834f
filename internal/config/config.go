package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the PetVision server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Predictor PredictorConfig
	Metrics   MetricsConfig
	Alerting  AlertingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	// TokenHash is the bcrypt hash that the bearer token on mutating
	// endpoints is compared against.
	TokenHash string
}

type PredictorConfig struct {
	Backend string
	Timeout time.Duration

	TorchServe TorchServeConfig
}

type TorchServeConfig struct {
	BaseURL string
	Model   string
}

type MetricsConfig struct {
	Enabled bool
}

type AlertingConfig struct {
	// DiscordWebhookURL enables alerting when non-empty.
	DiscordWebhookURL string
	LatencyThreshold  time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

var validBackends = map[string]bool{
	"torchserve": true,
	"mock":       true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PETVISION_PORT", 8080),
			Env:  envString("PETVISION_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			TokenHash: os.Getenv("API_TOKEN_HASH"),
		},
		Predictor: PredictorConfig{
			Backend: os.Getenv("PREDICTOR_BACKEND"),
			Timeout: envDurationSecs("PREDICTOR_TIMEOUT_SECS", 30*time.Second),
			TorchServe: TorchServeConfig{
				BaseURL: envString("TORCHSERVE_BASE_URL", "http://localhost:8085"),
				Model:   envString("TORCHSERVE_MODEL", "catdog"),
			},
		},
		Metrics: MetricsConfig{
			Enabled: envBool("ENABLE_METRICS", false),
		},
		Alerting: AlertingConfig{
			DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
			LatencyThreshold:  time.Duration(envInt("LATENCY_ALERT_THRESHOLD_MS", 2000)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AlertingEnabled reports whether an alert destination is configured.
func (c *Config) AlertingEnabled() bool {
	return c.Alerting.DiscordWebhookURL != ""
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.TokenHash == "" {
		return fmt.Errorf("API_TOKEN_HASH is required")
	}

	if c.Predictor.Backend == "" {
		return fmt.Errorf("PREDICTOR_BACKEND is required")
	}
	if !validBackends[c.Predictor.Backend] {
		return fmt.Errorf("PREDICTOR_BACKEND must be one of torchserve, mock; got %q", c.Predictor.Backend)
	}

	if c.Predictor.Backend == "torchserve" {
		base := c.Predictor.TorchServe.BaseURL
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return fmt.Errorf("TORCHSERVE_BASE_URL must start with http:// or https://, got %q", base)
		}
	}

	if c.Alerting.DiscordWebhookURL != "" && !strings.HasPrefix(c.Alerting.DiscordWebhookURL, "https://") {
		return fmt.Errorf("DISCORD_WEBHOOK_URL must start with https://, got %q", c.Alerting.DiscordWebhookURL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
