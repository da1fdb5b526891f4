package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds process-level configuration. Runtime-tunable values (sweep
// cadences, reminder lead time) live in the database settings table instead.
type Config struct {
	Listen      string      `yaml:"listen" env:"LISTEN"`             // HTTP listen address.
	DatabaseDSN string      `yaml:"database_dsn" env:"DATABASE_DSN"` // PostgreSQL or SQLite DSN.
	JWTSecret   string      `yaml:"jwt_secret" env:"JWT_SECRET"`     // Admin token signing secret.
	Redis       RedisConfig `yaml:"redis" env:",prefix=REDIS_"`      // Event publisher settings.
	Log         LogConfig   `yaml:"log" env:",prefix=LOG_"`          // Logging settings.
}

// RedisConfig configures the optional event publisher.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`         // host:port; empty disables publishing.
	Password string `yaml:"password" env:"PASSWORD"` // Optional auth.
	DB       int    `yaml:"db" env:"DB"`             // Database index.
}

// LogConfig configures logrus output and file rotation.
type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`             // debug, info, warn, error.
	File       string `yaml:"file" env:"FILE"`               // Rotating log file; empty for stdout only.
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"` // Rotation threshold.
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"` // Rotated files kept.
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
}

// Load reads the YAML config file and applies PASSDECK_-prefixed environment
// overrides. A missing file is not an error; env and defaults still apply.
func Load(ctx context.Context, path string) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := Config{
		Listen: ":8317",
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}

	path = strings.TrimSpace(path)
	if path != "" {
		data, errRead := os.ReadFile(path)
		if errRead != nil && !os.IsNotExist(errRead) {
			return nil, fmt.Errorf("config: read %s: %w", path, errRead)
		}
		if errRead == nil {
			if errDecode := yaml.Unmarshal(data, &cfg); errDecode != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, errDecode)
			}
		}
	}

	if errEnv := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper("PASSDECK_", envconfig.OsLookuper()),
	}); errEnv != nil {
		return nil, fmt.Errorf("config: env overrides: %w", errEnv)
	}

	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, fmt.Errorf("config: database_dsn is required")
	}
	return &cfg, nil
}
