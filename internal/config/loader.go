package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables. Fields
// the file omits keep their defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{UseYahooSource: DefaultUseYahooSource}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads .env, the optional CONFIG_FILE and environment
// overrides, then validates the result.
func LoadAndValidate() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if val := os.Getenv("PORT"); val != "" {
		c.Server.Port = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Server.LogLevel = val
	}
	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parse REQUEST_TIMEOUT: %w", err)
		}
		c.Server.RequestTimeout = d
	}
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.Mongo.URI = val
	}
	if val := os.Getenv("MONGO_DATABASE"); val != "" {
		c.Mongo.Database = val
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.Postgres.URL = val
	}
	if val := os.Getenv("REDIS_URL"); val != "" {
		c.Redis.URL = val
	}
	if val := os.Getenv("USE_YAHOO_SOURCE"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parse USE_YAHOO_SOURCE: %w", err)
		}
		c.UseYahooSource = b
	}
	if val := os.Getenv("ALPHAVANTAGE_API_KEY"); val != "" {
		c.AlphaVantage.APIKey = val
	}
	if val := os.Getenv("ALPHAVANTAGE_URL"); val != "" {
		c.AlphaVantage.BaseURL = val
	}
	return nil
}
