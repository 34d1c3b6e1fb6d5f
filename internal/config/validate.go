package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %q", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("server.log_level must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		return errors.New("mongo.database is required when mongo.uri is set")
	}

	if c.AlphaVantage.Timeout <= 0 {
		return errors.New("alpha_vantage.timeout must be positive")
	}
	return nil
}
