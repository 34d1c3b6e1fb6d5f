// Package config loads runtime configuration for the market data binaries.
//
// Sources, lowest to highest precedence: built-in defaults, an optional YAML
// file named by CONFIG_FILE (with ${VAR} expansion), then individual
// environment variables. A .env file in the working directory is loaded
// first; variables already set in the environment are never overwritten.
package config

import (
	"log/slog"
	"strings"
	"time"
)

// Backend names returned by Config.Backend.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config is the complete configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`

	// UseYahooSource routes every daily-record read and write to the
	// <collection>_yahoo collections. Predictions are unaffected.
	UseYahooSource bool `yaml:"use_yahoo_source"`

	AlphaVantage AlphaVantageConfig `yaml:"alpha_vantage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// PostgresConfig holds the optional relational backend settings.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional Redis backend settings.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AlphaVantageConfig is used by the seed command.
type AlphaVantageConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Backend picks the store implementation. The first configured backend in
// the order Mongo, Postgres, Redis wins; with none configured records live
// in memory.
func (c *Config) Backend() string {
	switch {
	case c.Mongo.URI != "":
		return BackendMongo
	case c.Postgres.URL != "":
		return BackendPostgres
	case c.Redis.URL != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

// SlogLevel maps Server.LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
