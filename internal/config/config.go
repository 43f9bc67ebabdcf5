package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr       string         `yaml:"addr"`
	JWTSecret  string         `yaml:"jwt_secret"`
	APITimeout time.Duration  `yaml:"timeout"`
	LogLevel   string         `yaml:"log_level"`
	Database   DatabaseConfig `yaml:"database"`
	Redis      RedisConfig    `yaml:"redis"`
	Metrics    MetricsConfig  `yaml:"metrics"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver         string `yaml:"driver"`
	DSN            string `yaml:"dsn"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// RedisConfig enables the dashboard snapshot cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:       getEnv("RENTOPS_ADDR", ":8080"),
		JWTSecret:  getEnv("RENTOPS_JWT_SECRET", insecureJWTSecret),
		APITimeout: 15 * time.Second,
		LogLevel:   getEnv("RENTOPS_LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:         getEnv("RENTOPS_DB_DRIVER", "sqlite"),
			DSN:            getEnv("RENTOPS_DB_DSN", "rentops.db"),
			MigrateOnStart: getEnvBool("RENTOPS_MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("RENTOPS_REDIS_ADDR", ""),
			Password: getEnv("RENTOPS_REDIS_PASSWORD", ""),
			TTL:      5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("RENTOPS_METRICS_ENABLED", true),
			Path:    "/metrics",
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration and fills zero durations with defaults.
// The built-in JWT secret is only accepted when RENTOPS_ENV=development.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && os.Getenv("RENTOPS_ENV") != "development" {
		return errors.New("jwt_secret uses the insecure default; set RENTOPS_JWT_SECRET or RENTOPS_ENV=development")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q is not supported (use sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 5 * time.Minute
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
