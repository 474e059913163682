package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Webhook  WebhookConfig
	Presence PresenceConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// DatabaseConfig holds Postgres connection and pool configuration.
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	StatementTimeout   time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	MaxRetryAttempts   int
	RetryBackoff       time.Duration
}

// CacheConfig holds cache provider configuration.
type CacheConfig struct {
	Provider      string // "memory" or "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	TTL           time.Duration
}

// WebhookConfig holds inbound webhook and admin auth configuration.
type WebhookConfig struct {
	// GitHubSecret signs inbound submission payloads (X-Hub-Signature-256).
	GitHubSecret string
	// AdminJWTSecret signs tokens for the badge administration endpoints.
	AdminJWTSecret string
	AdminJWTExpiry time.Duration
}

// PresenceConfig holds the ephemeral presence subsystem configuration.
type PresenceConfig struct {
	TTL time.Duration
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load builds the configuration from the environment, reading a .env file
// first outside production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "9000"),
			Environment:     env,
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			GracefulTimeout: getDuration("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxOpenConns:       getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime:    getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime:    getDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
			StatementTimeout:   getDuration("DB_STATEMENT_TIMEOUT", 10*time.Second),
			SlowQueryThreshold: getDuration("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "migrations"),
			MaxRetryAttempts:   getInt("DB_MAX_RETRY_ATTEMPTS", 3),
			RetryBackoff:       getDuration("DB_RETRY_BACKOFF", 200*time.Millisecond),
		},
		Cache: CacheConfig{
			Provider:      getEnv("CACHE_PROVIDER", "memory"),
			RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
			RedisDB:       getInt("REDIS_DB", 0),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			PoolSize:      getInt("REDIS_POOL_SIZE", 10),
			TTL:           getDuration("CACHE_TTL", 15*time.Minute),
		},
		Webhook: WebhookConfig{
			GitHubSecret:   getEnv("GITHUB_WEBHOOK_SECRET", ""),
			AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
			AdminJWTExpiry: getDuration("ADMIN_JWT_EXPIRY", 24*time.Hour),
		},
		Presence: PresenceConfig{
			TTL: getDuration("PRESENCE_TTL", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", defaultLogLevel(env)),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(env)),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.Server.Environment == "production" {
		if c.Webhook.GitHubSecret == "" {
			problems = append(problems, "GITHUB_WEBHOOK_SECRET is required in production")
		}
		if c.Webhook.AdminJWTSecret == "" {
			problems = append(problems, "ADMIN_JWT_SECRET is required in production")
		}
	}
	if c.Cache.Provider != "memory" && c.Cache.Provider != "redis" {
		problems = append(problems, fmt.Sprintf("unknown cache provider %q", c.Cache.Provider))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func defaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
