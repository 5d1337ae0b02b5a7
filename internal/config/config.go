package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Session  SessionConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	Timezone              string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. DSN wins over the discrete fields.
type PostgresConfig struct {
	DSN             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
	ConnectRetrySec int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// SessionConfig controls the session cookie and its backing store.
type SessionConfig struct {
	Store           string
	CookieName      string
	CookieSecure    bool
	LifetimeSeconds int
	IdleTTLSeconds  int
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	BcryptCost     int
	CSRFSecret     string
	CSRFTTLMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketing"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			Timezone:              getEnv("APP_TIMEZONE", "Europe/Madrid"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			Host:            getEnv("DB_HOST", "db"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "ticketing"),
			User:            getEnv("DB_USER", "ticket_user"),
			Password:        getEnv("DB_PASS", "ticket_pass"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
			ConnectRetrySec: getEnvAsInt("POSTGRES_CONNECT_RETRY_SECONDS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env != EnvProduction,
		},
		Session: SessionConfig{
			Store:           strings.ToLower(getEnv("SESSION_STORE", SessionStoreRedis)),
			CookieName:      getEnv("SESSION_COOKIE_NAME", "TICKETING_APP"),
			CookieSecure:    getEnvAsBool("SESSION_COOKIE_SECURE", false),
			LifetimeSeconds: getEnvAsInt("SESSION_LIFETIME_SECONDS", 1800),
			IdleTTLSeconds:  getEnvAsInt("SESSION_IDLE_TTL_SECONDS", 86400),
		},
		Auth: AuthConfig{
			BcryptCost:     getEnvAsInt("AUTH_BCRYPT_COST", 12),
			CSRFSecret:     getEnv("AUTH_CSRF_SECRET", "dev-secret"),
			CSRFTTLMinutes: getEnvAsInt("AUTH_CSRF_TTL_MINUTES", 120),
		},
	}

	if cfg.Session.Store != SessionStoreRedis && cfg.Session.Store != SessionStoreMemory {
		return nil, fmt.Errorf("invalid SESSION_STORE %q", cfg.Session.Store)
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether error details must be hidden from clients.
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the display timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnString returns POSTGRES_DSN or a URL assembled from the DB_* values.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%s", p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	return u.String()
}

// ConnectRetryDelay is the fixed pause between connection attempts.
func (p PostgresConfig) ConnectRetryDelay() time.Duration {
	if p.ConnectRetrySec <= 0 {
		return 0
	}
	return time.Duration(p.ConnectRetrySec) * time.Second
}

// Lifetime is how long a single session id stays valid before rotation.
func (s SessionConfig) Lifetime() time.Duration {
	if s.LifetimeSeconds <= 0 {
		return 1800 * time.Second
	}
	return time.Duration(s.LifetimeSeconds) * time.Second
}

// IdleTTL is how long an untouched session record is kept in the store.
func (s SessionConfig) IdleTTL() time.Duration {
	if s.IdleTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.IdleTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
