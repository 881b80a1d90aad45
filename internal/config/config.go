// Package config loads the campaign engine's configuration from a YAML file
// with environment variable overrides. A .env file is honored in development
// via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the three services.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Tracking TrackingConfig `yaml:"tracking"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// ServerConfig holds the API service listen settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TrackingConfig holds the tracking service settings. PublicURL is the
// externally reachable base used when building pixel and redirect links;
// SigningKey signs the tracking tokens.
type TrackingConfig struct {
	Port       int    `yaml:"port"`
	PublicURL  string `yaml:"public_url"`
	SigningKey string `yaml:"signing_key"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DispatchConfig tunes the worker.
type DispatchConfig struct {
	Workers              int `yaml:"workers"`
	SendTimeoutSeconds   int `yaml:"send_timeout_seconds"`
	SchedulerPollSeconds int `yaml:"scheduler_poll_seconds"`
}

// SendTimeout returns the per-recipient send deadline.
func (d DispatchConfig) SendTimeout() time.Duration {
	if d.SendTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.SendTimeoutSeconds) * time.Second
}

// SchedulerPoll returns the scheduler poll interval.
func (d DispatchConfig) SchedulerPoll() time.Duration {
	if d.SchedulerPollSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.SchedulerPollSeconds) * time.Second
}

// LoadFromEnv loads config from path (missing file is fine, defaults apply)
// and then applies environment overrides.
func LoadFromEnv(path string) (*Config, error) {
	// Best effort: absent .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Tracking: TrackingConfig{Port: 8081},
		Database: DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5},
		Dispatch: DispatchConfig{Workers: 2, SendTimeoutSeconds: 30, SchedulerPollSeconds: 30},
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (database.url or DATABASE_URL)")
	}
	if cfg.Redis.URL == "" {
		return nil, fmt.Errorf("redis url is required (redis.url or REDIS_URL)")
	}
	if cfg.Tracking.SigningKey == "" {
		return nil, fmt.Errorf("tracking signing key is required (tracking.signing_key or TRACKING_SIGNING_KEY)")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TRACKING_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.Port = port
		}
	}
	if v := os.Getenv("TRACKING_PUBLIC_URL"); v != "" {
		cfg.Tracking.PublicURL = v
	}
	if v := os.Getenv("TRACKING_SIGNING_KEY"); v != "" {
		cfg.Tracking.SigningKey = v
	}
	if v := os.Getenv("DISPATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dispatch.Workers = n
		}
	}
}
