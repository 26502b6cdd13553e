// Package config builds runtime configuration. Environment variables win;
// an optional YAML file fills in whatever the environment leaves unset so
// main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures everything cmd/server needs to wire the gateway.
type Server struct {
	Addr          string        `yaml:"addr"`
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	PostgresURL   string        `yaml:"postgres_url"`
	Redis         RedisConfig   `yaml:"redis"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// RedisConfig configures the optional shared spending store.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// FromEnv builds a Server config from environment variables, overlaid on the
// YAML file named by PAYGATE_CONFIG when present.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          ":8080",
		ShutdownGrace: 10 * time.Second,
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	if path := os.Getenv("PAYGATE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Server{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if addr := os.Getenv("PAYGATE_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if key := os.Getenv("JWT_SIGNING_KEY"); key != "" {
		cfg.JWTSigningKey = key
	}
	if cfg.JWTSigningKey == "" {
		// Development default; override in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if pg := os.Getenv("PAYGATE_POSTGRES_URL"); pg != "" {
		cfg.PostgresURL = pg
	}
	if redisURL := os.Getenv("PAYGATE_REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if pool := os.Getenv("PAYGATE_REDIS_POOL_SIZE"); pool != "" {
		n, err := strconv.Atoi(pool)
		if err != nil {
			return Server{}, fmt.Errorf("parse PAYGATE_REDIS_POOL_SIZE: %w", err)
		}
		cfg.Redis.PoolSize = n
	}

	return cfg, nil
}
