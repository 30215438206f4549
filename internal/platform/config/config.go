// Package config loads process configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// KNOMEE_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"knomee/pkg/domain"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// Authority is the governance authority address. It gates parameter
	// updates, oracle promotions and clock warps.
	Authority domain.Address

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	// SweepInterval is how often the expiry sweeper scans active claims.
	SweepInterval time.Duration

	// RateLimit is the per-IP request quota per minute. Zero disables
	// rate limiting.
	RateLimit int
}

// PostgresConfig holds the claim and vouch store connection settings. An empty
// URL selects the in-memory stores.
type PostgresConfig struct {
	URL string
}

// RedisConfig holds cooldown store connection settings. An empty URL selects
// the in-memory cooldown store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit trail sink settings. Empty brokers select the
// in-memory audit store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:      envOr("KNOMEE_ADDR", ":8080"),
		Authority: domain.Address(os.Getenv("KNOMEE_AUTHORITY")),
		Postgres: PostgresConfig{
			URL: os.Getenv("KNOMEE_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("KNOMEE_REDIS_URL"),
			PoolSize:     envInt("KNOMEE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("KNOMEE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("KNOMEE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("KNOMEE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("KNOMEE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KNOMEE_AUDIT_TOPIC", "knomee.audit"),
		},
		SweepInterval: envDuration("KNOMEE_SWEEP_INTERVAL", time.Minute),
		RateLimit:     envInt("KNOMEE_RATE_LIMIT", 120),
	}
	if brokers := os.Getenv("KNOMEE_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
