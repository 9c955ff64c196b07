package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSessionSecretBytes is the shortest session signing secret accepted in production
const MinSessionSecretBytes = 32

// devSessionSecret signs sessions when SESSION_SECRET is unset outside production
const devSessionSecret = "dev-only-session-secret-change-me-0123456789"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Import        ImportConfig
	Renewal       RenewalConfig
	Audit         AuditConfig
	Dashboard     DashboardConfig
	Observability ObservabilityConfig
	Seed          SeedConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
	CookieSecure    bool // Secure flag on the session cookie
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds session and login settings
type AuthConfig struct {
	SessionSecret        string
	SessionTTL           time.Duration
	SessionCleanup       time.Duration
	BcryptCost           int
	LoginMaxFailures     int
	LoginWindow          time.Duration
	LoginAttemptCleanup  time.Duration
	LoginAttemptRetained time.Duration
}

// ImportConfig holds CSV import limits
type ImportConfig struct {
	MaxUploadBytes int64
}

// RenewalConfig controls the renewal date scheduler
type RenewalConfig struct {
	Enabled  bool
	Interval time.Duration
}

// AuditConfig sizes the async audit writer
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// DashboardConfig sizes the in-process summary cache
type DashboardConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// SeedConfig holds the credentials used by the seed-admin command
type SeedConfig struct {
	AdminUsername string
	AdminPassword string
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	env := getEnv("ENVIRONMENT", "development")
	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*"}),
			CookieSecure:    getEnvAsBool("COOKIE_SECURE", isProduction(env)),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			SessionSecret:        getEnv("SESSION_SECRET", ""),
			SessionTTL:           getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			SessionCleanup:       getEnvAsDuration("SESSION_CLEANUP_INTERVAL", time.Hour),
			BcryptCost:           getEnvAsInt("BCRYPT_COST", 10),
			LoginMaxFailures:     getEnvAsInt("LOGIN_MAX_FAILURES", 5),
			LoginWindow:          getEnvAsDuration("LOGIN_WINDOW", 15*time.Minute),
			LoginAttemptCleanup:  getEnvAsDuration("LOGIN_ATTEMPT_CLEANUP_INTERVAL", time.Hour),
			LoginAttemptRetained: getEnvAsDuration("LOGIN_ATTEMPT_RETENTION", 24*time.Hour),
		},
		Import: ImportConfig{
			MaxUploadBytes: int64(getEnvAsInt("IMPORT_MAX_UPLOAD_BYTES", 5<<20)),
		},
		Renewal: RenewalConfig{
			Enabled:  getEnvAsBool("RENEWAL_SCHEDULER_ENABLED", true),
			Interval: getEnvAsDuration("RENEWAL_INTERVAL", 24*time.Hour),
		},
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 2),
		},
		Dashboard: DashboardConfig{
			CacheSize: getEnvAsInt("DASHBOARD_CACHE_SIZE", 16),
			CacheTTL:  getEnvAsDuration("DASHBOARD_CACHE_TTL", time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
		Seed: SeedConfig{
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	if cfg.Auth.SessionSecret == "" && !cfg.IsProduction() {
		cfg.Auth.SessionSecret = devSessionSecret
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.IsProduction() && len(c.Auth.SessionSecret) < MinSessionSecretBytes {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes in production", MinSessionSecretBytes)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Auth.LoginMaxFailures <= 0 || c.Auth.LoginWindow <= 0 {
		return fmt.Errorf("login throttle limits must be positive")
	}
	if c.Import.MaxUploadBytes <= 0 {
		return fmt.Errorf("import upload limit must be positive")
	}
	if c.Renewal.Enabled && c.Renewal.Interval <= 0 {
		return fmt.Errorf("renewal interval must be positive")
	}
	if c.Audit.BufferSize <= 0 || c.Audit.WorkerCount <= 0 {
		return fmt.Errorf("audit buffer size and worker count must be positive")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

func isProduction(env string) bool {
	return env == "production" || env == "prod"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}
	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "licenses")
	pool.Password = getEnv("DB_PASSWORD", "licenses")
	pool.Database = getEnv("DB_NAME", "license_inventory")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
