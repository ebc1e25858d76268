package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Cart snapshot backends selectable through CART_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Upstream   UpstreamConfig
	Cart       CartConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// UpstreamConfig points at the product API the catalog is read from.
type UpstreamConfig struct {
	BaseURL  string        `envconfig:"UPSTREAM_BASE_URL" default:"https://fakestoreapi.com"`
	Timeout  time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"1m"` // 0 disables the catalog cache
}

// CartConfig selects where cart snapshots are kept.
type CartConfig struct {
	Backend       string        `envconfig:"CART_BACKEND" default:"memory"`
	SnapshotTTL   time.Duration `envconfig:"CART_SNAPSHOT_TTL" default:"720h"` // redis only, 0 keeps forever
	IdleTTL       time.Duration `envconfig:"CART_IDLE_TTL" default:"30m"`      // in-memory carts idle longer are evicted
	SweepInterval time.Duration `envconfig:"CART_SWEEP_INTERVAL" default:"5m"`
}

// PostgresConfig holds PostgreSQL database connection details.
// Only read when CART_BACKEND=postgres.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// RedisConfig holds the Redis connection URL. Only read when CART_BACKEND=redis.
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	log.Println("Loading service configuration...")
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil { // no prefix for env vars
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded successfully for APP_ENV: %s", cfg.AppEnv)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cart.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("invalid configuration: CART_BACKEND=postgres requires POSTGRES_USER and POSTGRES_DBNAME")
		}
	default:
		return fmt.Errorf("invalid CART_BACKEND %q: want %s, %s or %s",
			c.Cart.Backend, BackendMemory, BackendPostgres, BackendRedis)
	}
	if c.Cart.IdleTTL <= 0 || c.Cart.SweepInterval <= 0 {
		return fmt.Errorf("invalid configuration: CART_IDLE_TTL and CART_SWEEP_INTERVAL must be positive")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("invalid configuration: UPSTREAM_BASE_URL must not be empty")
	}
	return nil
}
