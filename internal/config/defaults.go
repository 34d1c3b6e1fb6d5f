package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort                = "8080"
	DefaultRequestTimeout      = 30 * time.Second
	DefaultLogLevel            = "info"
	DefaultMongoDatabase       = "market"
	DefaultUseYahooSource      = true
	DefaultAlphaVantageURL     = "https://www.alphavantage.co"
	DefaultAlphaVantageTimeout = 30 * time.Second
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{UseYahooSource: DefaultUseYahooSource}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}

	if c.Mongo.Database == "" {
		c.Mongo.Database = DefaultMongoDatabase
	}

	if c.AlphaVantage.BaseURL == "" {
		c.AlphaVantage.BaseURL = DefaultAlphaVantageURL
	}
	if c.AlphaVantage.Timeout == 0 {
		c.AlphaVantage.Timeout = DefaultAlphaVantageTimeout
	}
}
