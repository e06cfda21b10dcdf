// Package config loads the simulator's configuration the way the teacher
// service does: viper, environment variables, and a best-effort .env read,
// all resolved once at process startup.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a feeder process.
type Config struct {
	Health   HealthConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Feeder   FeederConfig
}

// HealthConfig configures the per-process /healthz HTTP listener — the
// only HTTP surface this module exposes; see SPEC_FULL.md's AMBIENT STACK
// section for why this is not the out-of-scope query gateway.
type HealthConfig struct {
	Host         string        `mapstructure:"HEALTH_HOST"`
	Port         int           `mapstructure:"HEALTH_PORT"`
	ReadTimeout  time.Duration `mapstructure:"HEALTH_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"HEALTH_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"HEALTH_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings for the time-series
// store adapter (X1).
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings for the event bus adapter
// (X2) and the People-Count feeder's arrival subscription.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// FeederConfig tunes the shared tick/retry shape described in spec.md §4.5,
// §5, and §7.
type FeederConfig struct {
	TickInterval        time.Duration `mapstructure:"FEEDER_TICK_INTERVAL"`
	StoreMaxRetries     int           `mapstructure:"FEEDER_STORE_MAX_RETRIES"`
	EventMaxRetries     int           `mapstructure:"FEEDER_EVENT_MAX_RETRIES"`
	CallTimeout         time.Duration `mapstructure:"FEEDER_CALL_TIMEOUT"`
	SyntheticDrainFrac  float64       `mapstructure:"FEEDER_SYNTHETIC_DRAIN_FRACTION"`
	RoutesFile          string        `mapstructure:"FEEDER_ROUTES_FILE"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Addr returns the health-check HTTP listen address in host:port format.
func (h *HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// Load reads configuration from environment variables and a .env file.
// Each cmd/*/main.go calls godotenv.Load() before this, mirroring
// FabianUB-minibarcelona3d's apps/api/main.go.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("HEALTH_HOST", "0.0.0.0")
	viper.SetDefault("HEALTH_PORT", 8080)
	viper.SetDefault("HEALTH_READ_TIMEOUT", "5s")
	viper.SetDefault("HEALTH_WRITE_TIMEOUT", "10s")
	viper.SetDefault("HEALTH_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "simulator")
	viper.SetDefault("POSTGRES_PASSWORD", "simulator_secret")
	viper.SetDefault("POSTGRES_DB", "transit_simulator")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 20)
	viper.SetDefault("POSTGRES_MIN_CONNS", 5)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 50)

	viper.SetDefault("FEEDER_TICK_INTERVAL", "30s")
	viper.SetDefault("FEEDER_STORE_MAX_RETRIES", 3)
	viper.SetDefault("FEEDER_EVENT_MAX_RETRIES", 3)
	viper.SetDefault("FEEDER_CALL_TIMEOUT", "10s")
	viper.SetDefault("FEEDER_SYNTHETIC_DRAIN_FRACTION", 0.0)
	viper.SetDefault("FEEDER_ROUTES_FILE", "routes.yaml")

	// Try to read .env file. If it doesn't exist (e.g., inside a
	// container), env vars injected by the orchestrator are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Health: HealthConfig{
			Host:         viper.GetString("HEALTH_HOST"),
			Port:         viper.GetInt("HEALTH_PORT"),
			ReadTimeout:  viper.GetDuration("HEALTH_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("HEALTH_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("HEALTH_IDLE_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		Feeder: FeederConfig{
			TickInterval:       viper.GetDuration("FEEDER_TICK_INTERVAL"),
			StoreMaxRetries:    viper.GetInt("FEEDER_STORE_MAX_RETRIES"),
			EventMaxRetries:    viper.GetInt("FEEDER_EVENT_MAX_RETRIES"),
			CallTimeout:        viper.GetDuration("FEEDER_CALL_TIMEOUT"),
			SyntheticDrainFrac: viper.GetFloat64("FEEDER_SYNTHETIC_DRAIN_FRACTION"),
			RoutesFile:         viper.GetString("FEEDER_ROUTES_FILE"),
		},
	}

	return cfg, nil
}
