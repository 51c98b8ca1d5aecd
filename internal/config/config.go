// Package config loads runtime configuration from the environment through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every knob the service reads at startup.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DatabaseDriver string
	DatabaseDSN    string

	CacheDriver   string
	CacheCodec    string
	CacheCapacity int
	CacheTimeout  time.Duration

	RedisURL          string
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration
	RedisDialTimeout  time.Duration

	SnapshotTTL        time.Duration
	SingleTTL          time.Duration
	SnapshotPromoteTTL time.Duration
	SearchTTL          time.Duration

	RabbitMQURL      string
	RabbitMQExchange string
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=tani port=5432 sslmode=disable")
	v.SetDefault("CACHE_DRIVER", "memory")
	v.SetDefault("CACHE_CODEC", "json")
	v.SetDefault("CACHE_CAPACITY", 10000)
	v.SetDefault("CACHE_OP_TIMEOUT_MS", 200)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_READ_TIMEOUT", 3)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	v.SetDefault("ALL_PRODUCT_TTL_IN_MIN", 10)
	v.SetDefault("SINGLE_PRODUCT_TTL_IN_SEC", 60)
	v.SetDefault("SNAPSHOT_PROMOTE_TTL_IN_SEC", 30)
	v.SetDefault("SEARCH_TTL_IN_SEC", 600)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "catalog.invalidations")
}

// Load reads the configuration from environment variables on top of the defaults.
func Load() (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppEnv:   v.GetString("APP_ENV"),
		AppPort:  v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),

		CacheDriver:   v.GetString("CACHE_DRIVER"),
		CacheCodec:    v.GetString("CACHE_CODEC"),
		CacheCapacity: v.GetInt("CACHE_CAPACITY"),
		CacheTimeout:  time.Duration(v.GetInt("CACHE_OP_TIMEOUT_MS")) * time.Millisecond,

		RedisURL:          v.GetString("REDIS_URL"),
		RedisReadTimeout:  time.Duration(v.GetInt("REDIS_READ_TIMEOUT")) * time.Second,
		RedisWriteTimeout: time.Duration(v.GetInt("REDIS_WRITE_TIMEOUT")) * time.Second,
		RedisDialTimeout:  time.Duration(v.GetInt("REDIS_DIAL_TIMEOUT")) * time.Second,

		SnapshotTTL:        time.Duration(v.GetInt("ALL_PRODUCT_TTL_IN_MIN")) * time.Minute,
		SingleTTL:          time.Duration(v.GetInt("SINGLE_PRODUCT_TTL_IN_SEC")) * time.Second,
		SnapshotPromoteTTL: time.Duration(v.GetInt("SNAPSHOT_PROMOTE_TTL_IN_SEC")) * time.Second,
		SearchTTL:          time.Duration(v.GetInt("SEARCH_TTL_IN_SEC")) * time.Second,

		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and non-positive TTLs.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.CacheDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.CacheDriver)
	}
	switch c.CacheCodec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("unsupported CACHE_CODEC %q", c.CacheCodec)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"ALL_PRODUCT_TTL_IN_MIN", c.SnapshotTTL},
		{"SINGLE_PRODUCT_TTL_IN_SEC", c.SingleTTL},
		{"SNAPSHOT_PROMOTE_TTL_IN_SEC", c.SnapshotPromoteTTL},
		{"SEARCH_TTL_IN_SEC", c.SearchTTL},
		{"CACHE_OP_TIMEOUT_MS", c.CacheTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be greater than 0", d.name)
		}
	}
	if c.CacheDriver == "memory" && c.CacheCapacity <= 0 {
		return fmt.Errorf("CACHE_CAPACITY must be greater than 0")
	}
	return nil
}
