package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gowiki/gowiki/pkg/logger"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendMinIO    = "minio"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	SQL       SQLConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AllowedOrigins is the comma-separated CORS_ALLOWED_ORIGINS list; empty means same-origin only.
	AllowedOrigins string
}

type StorageConfig struct {
	Backend       string
	RetryAttempts int
	RetryBackoff  time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host          string
	Port          string
	Password      string
	DB            int
	EventsChannel string
	KeyPrefix     string
}

// Addr returns host:port, or "" when no host is configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// Key namespaces name under KeyPrefix, which defaults to "wiki:".
func (r RedisConfig) Key(name string) string {
	prefix := r.KeyPrefix
	if prefix == "" {
		prefix = "wiki:"
	}
	return prefix + name
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type SQLConfig struct {
	DSN string
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

// Issuer returns the realm issuer URL, or "" when Keycloak is not configured.
func (k KeycloakConfig) Issuer() string {
	if k.URL == "" || k.Realm == "" {
		return ""
	}
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled  bool
	RPS      float64
	Burst    int
	UseRedis bool
	Window   time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("STORAGE_RETRY_ATTEMPTS", 3)
	v.SetDefault("STORAGE_RETRY_BACKOFF_MS", 100)
	v.SetDefault("MONGODB_DATABASE", "gowiki")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_EVENTS_CHANNEL", "wiki:events")
	v.SetDefault("REDIS_KEY_PREFIX", "wiki:")
	v.SetDefault("MINIO_BUCKET", "gowiki")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	backend := strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND")))
	dsn := v.GetString("SQL_DSN")
	if dsn == "" && backend == BackendSQLite {
		dsn = "./data/gowiki.db"
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,

			AllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		Storage: StorageConfig{
			Backend:       backend,
			RetryAttempts: v.GetInt("STORAGE_RETRY_ATTEMPTS"),
			RetryBackoff:  time.Duration(v.GetInt("STORAGE_RETRY_BACKOFF_MS")) * time.Millisecond,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:          v.GetString("REDIS_HOST"),
			Port:          v.GetString("REDIS_PORT"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            v.GetInt("REDIS_DB"),
			EventsChannel: v.GetString("REDIS_EVENTS_CHANNEL"),
			KeyPrefix:     v.GetString("REDIS_KEY_PREFIX"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		SQL: SQLConfig{DSN: dsn},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			UseRedis: v.GetBool("RATE_LIMIT_USE_REDIS"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		logger.Warnf("JWT_SECRET is not set; set a secure value in production")
	}
	return cfg, nil
}

// Validate checks that the selected storage backend has what it needs to connect.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI is required for the mongo storage backend")
		}
	case BackendRedis:
		if c.Redis.Host == "" {
			return errors.New("REDIS_HOST is required for the redis storage backend")
		}
	case BackendMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" {
			return errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio storage backend")
		}
	case BackendSQLite, BackendPostgres:
		if c.SQL.DSN == "" {
			return fmt.Errorf("SQL_DSN is required for the %s storage backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Storage.RetryAttempts < 1 {
		return errors.New("STORAGE_RETRY_ATTEMPTS must be at least 1")
	}
	if c.RateLimit.UseRedis && c.RateLimit.Enabled && c.Redis.Host == "" {
		return errors.New("REDIS_HOST is required when RATE_LIMIT_USE_REDIS is set")
	}
	return nil
}
