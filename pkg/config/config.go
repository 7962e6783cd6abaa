// Package config loads application configuration from environment variables.
// All keys are prefixed ENVSYNC_ and carry sensible defaults for local
// development; Validate catches the combinations that cannot work.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Auth     AuthConfig
	S3       S3Config
	Mail     MailConfig
	Audit    AuditConfig

	LogLevel observability.LogLevel
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Metrics server runs on its own port for scrape isolation
	MetricsPort string

	// BaseURL is the externally visible web app URL, used to build
	// invite links in outbound mail
	BaseURL string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// CacheConfig selects and tunes the cache backend.
// Backend "memory" serves development, "redis" serves deployments.
type CacheConfig struct {
	Backend    string
	RedisURL   string
	TTL        time.Duration
	MemorySize int
}

// AuthConfig holds identity provider settings.
// The same tenant backs token verification, login flows and the
// management API used to mirror profile changes.
type AuthConfig struct {
	IssuerURL    string
	Audience     string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// CLI device-authorization flow client
	CLIClientID string
}

// S3Config holds object storage settings for uploads
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// MailConfig holds SMTP settings for invite notifications
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AuditConfig holds audit pipeline settings
type AuditConfig struct {
	QueueSize     int
	RetentionDays int
	// Cron expression for the retention sweep
	RetentionSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Cache:    loadCacheConfig(),
		Auth:     loadAuthConfig(),
		S3:       loadS3Config(),
		Mail:     loadMailConfig(),
		Audit:    loadAuditConfig(),
		LogLevel: observability.ParseLogLevel(getEnv("ENVSYNC_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("ENVSYNC_HOST", "0.0.0.0"),
		Port:            getEnv("ENVSYNC_PORT", "8080"),
		ReadTimeout:     getEnvDuration("ENVSYNC_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("ENVSYNC_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("ENVSYNC_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("ENVSYNC_SHUTDOWN_TIMEOUT", 30*time.Second),
		MetricsPort:     getEnv("ENVSYNC_METRICS_PORT", "9090"),
		BaseURL:         getEnv("ENVSYNC_BASE_URL", "http://localhost:8080"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("ENVSYNC_POSTGRES_URL", "postgres://localhost:5432/envsync?sslmode=disable"),
		MaxConns:    getEnvInt("ENVSYNC_POSTGRES_MAX_CONNS", 25),
		MinConns:    getEnvInt("ENVSYNC_POSTGRES_MIN_CONNS", 5),
		Timeout:     getEnvDuration("ENVSYNC_POSTGRES_TIMEOUT", 10*time.Second),
		MaxLifetime: getEnvDuration("ENVSYNC_POSTGRES_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:    getEnv("ENVSYNC_CACHE_BACKEND", "memory"),
		RedisURL:   getEnv("ENVSYNC_REDIS_URL", "redis://localhost:6379/0"),
		TTL:        getEnvDuration("ENVSYNC_CACHE_TTL", 5*time.Minute),
		MemorySize: getEnvInt("ENVSYNC_CACHE_MEMORY_SIZE", 4096),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		IssuerURL:    getEnv("ENVSYNC_AUTH_ISSUER_URL", ""),
		Audience:     getEnv("ENVSYNC_AUTH_AUDIENCE", ""),
		ClientID:     getEnv("ENVSYNC_AUTH_CLIENT_ID", ""),
		ClientSecret: getEnv("ENVSYNC_AUTH_CLIENT_SECRET", ""),
		RedirectURL:  getEnv("ENVSYNC_AUTH_REDIRECT_URL", ""),
		CLIClientID:  getEnv("ENVSYNC_AUTH_CLI_CLIENT_ID", ""),
	}
}

func loadS3Config() S3Config {
	return S3Config{
		Endpoint:     getEnv("ENVSYNC_S3_ENDPOINT", ""),
		Region:       getEnv("ENVSYNC_S3_REGION", "us-east-1"),
		Bucket:       getEnv("ENVSYNC_S3_BUCKET", "envsync-uploads"),
		AccessKey:    getEnv("ENVSYNC_S3_ACCESS_KEY", ""),
		SecretKey:    getEnv("ENVSYNC_S3_SECRET_KEY", ""),
		UsePathStyle: getEnvBool("ENVSYNC_S3_USE_PATH_STYLE", false),
	}
}

func loadMailConfig() MailConfig {
	return MailConfig{
		Enabled:  getEnvBool("ENVSYNC_MAIL_ENABLED", false),
		Host:     getEnv("ENVSYNC_MAIL_HOST", ""),
		Port:     getEnvInt("ENVSYNC_MAIL_PORT", 587),
		Username: getEnv("ENVSYNC_MAIL_USERNAME", ""),
		Password: getEnv("ENVSYNC_MAIL_PASSWORD", ""),
		From:     getEnv("ENVSYNC_MAIL_FROM", "no-reply@envsync.cloud"),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		QueueSize:         getEnvInt("ENVSYNC_AUDIT_QUEUE_SIZE", 1024),
		RetentionDays:     getEnvInt("ENVSYNC_AUDIT_RETENTION_DAYS", 90),
		RetentionSchedule: getEnv("ENVSYNC_AUDIT_RETENTION_SCHEDULE", "0 3 * * *"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("ENVSYNC_POSTGRES_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("ENVSYNC_POSTGRES_MAX_CONNS must be >= ENVSYNC_POSTGRES_MIN_CONNS")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("ENVSYNC_CACHE_BACKEND must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("ENVSYNC_REDIS_URL is required for the redis cache backend")
	}

	if c.Auth.IssuerURL == "" {
		return fmt.Errorf("ENVSYNC_AUTH_ISSUER_URL is required")
	}
	if !strings.HasPrefix(c.Auth.IssuerURL, "https://") && !strings.HasPrefix(c.Auth.IssuerURL, "http://") {
		return fmt.Errorf("ENVSYNC_AUTH_ISSUER_URL must be an http(s) URL")
	}
	if c.Auth.Audience == "" {
		return fmt.Errorf("ENVSYNC_AUTH_AUDIENCE is required")
	}

	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("ENVSYNC_MAIL_HOST is required when mail is enabled")
	}

	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("ENVSYNC_AUDIT_QUEUE_SIZE must be positive")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("ENVSYNC_AUDIT_RETENTION_DAYS must be positive")
	}

	return nil
}

// Address returns the host:port for the API listener
func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// MetricsAddress returns the host:port for the metrics listener
func (c ServerConfig) MetricsAddress() string {
	return c.Host + ":" + c.MetricsPort
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
