package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Hyperliquid Hyperliquid `mapstructure:"hyperliquid"`
	Sync        Sync        `mapstructure:"sync"`
	Logger      Logger      `mapstructure:"logger"`
	Server      Server      `mapstructure:"server"`
	Database    Database    `mapstructure:"database"`
}

// Hyperliquid holds the configuration for the Hyperliquid info API.
type Hyperliquid struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Sync holds the configuration for the scheduled sync daemon.
type Sync struct {
	Interval   int `mapstructure:"interval"`    // seconds between full sync rounds
	RunTimeout int `mapstructure:"run_timeout"` // wall-clock budget per round, seconds
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("hyperliquid.base_url", "https://api.hyperliquid.xyz/info")
	viper.SetDefault("hyperliquid.rate_limit", 10) // requests per second
	viper.SetDefault("hyperliquid.rate_limit_burst", 5)
	viper.SetDefault("sync.interval", 3600)
	viper.SetDefault("sync.run_timeout", 300)
	viper.SetDefault("database.dsn", "journal.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
