// Package config loads service configuration from defaults, an optional
// .env file, an optional YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"series-platform/pkg/database"
	"series-platform/pkg/logging"
)

// Config is the top-level configuration shared by all binaries
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
	Peers    PeersConfig    `yaml:"peers"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
	// RefreshSchedule is a standard 5-field cron expression; empty disables it
	RefreshSchedule string `yaml:"refreshSchedule"`
}

type PeersConfig struct {
	// MedianRefreshSchedule recomputes and stores medians for every peer group
	MedianRefreshSchedule string `yaml:"medianRefreshSchedule"`
}

type IngestConfig struct {
	DataDir   string `yaml:"dataDir"`
	BatchSize int    `yaml:"batchSize"`
}

// DefaultConfig returns a configuration suitable for local development
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "series",
			Password:        "series",
			Database:        "series_platform",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Cache: CacheConfig{
			TTL:             15 * time.Minute,
			RefreshSchedule: "*/30 * * * *",
		},
		Peers: PeersConfig{
			MedianRefreshSchedule: "0 3 * * *",
		},
		Ingest: IngestConfig{
			DataDir:   "data",
			BatchSize: 1000,
		},
	}
}

// LoadConfig builds the configuration: defaults, then a .env file in the
// working directory when present, then the YAML file named by
// SERIES_CONFIG_FILE, then individual environment overrides.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	cfg := DefaultConfig()
	if path := os.Getenv("SERIES_CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresConfig returns the connection settings for pkg/database
func (c *Config) PostgresConfig() *database.Config {
	return &database.Config{
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}

// LogLevel parses the configured level; Validate rejects unknown names
func (c *Config) LogLevel() logging.LogLevel {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}

// LoadFromFile loads config from a YAML file, overlaying on defaults
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_HOST", &c.Server.Host)
	num("SERVER_PORT", &c.Server.Port)
	str("DB_HOST", &c.Database.Host)
	num("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Database)
	str("DB_SSLMODE", &c.Database.SSLMode)
	num("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	num("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	str("LOG_LEVEL", &c.Logging.Level)
	dur("CACHE_TTL", &c.Cache.TTL)
	str("CACHE_REFRESH_SCHEDULE", &c.Cache.RefreshSchedule)
	str("MEDIAN_REFRESH_SCHEDULE", &c.Peers.MedianRefreshSchedule)
	str("INGEST_DATA_DIR", &c.Ingest.DataDir)
	num("INGEST_BATCH_SIZE", &c.Ingest.BatchSize)

	return errors.Join(errs...)
}
