// Package config loads server configuration from environment variables and
// an optional yaml file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend selectors.
const (
	StorageMongo = "mongo"
	StorageFile  = "file"
)

// Link registry backend selectors.
const (
	LinksMemory = "memory"
	LinksRedis  = "redis"
)

// ServerConfig holds all configuration for the server.
type ServerConfig struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	// Storage selects the user store: "mongo" or "file".
	Storage     string `mapstructure:"STORAGE"`
	DataDir     string `mapstructure:"DATA_DIR"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// Links selects the pending-link registry: "memory" or "redis".
	Links    string `mapstructure:"LINKS"`
	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecretKey      string `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenTTLMin int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`

	// Facebook app credentials; the OAuth flow reports itself unconfigured
	// when these are empty.
	FacebookAppID     string `mapstructure:"FACEBOOK_APP_ID"`
	FacebookAppSecret string `mapstructure:"FACEBOOK_APP_SECRET"`
	// AppURL is the public base URL the OAuth redirect is built from.
	AppURL string `mapstructure:"APP_URL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	AdminEmail   string `mapstructure:"ADMIN_EMAIL"`
}

// AccessTokenTTL returns the bearer-token lifetime as a duration.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// FacebookRedirectURL is the callback the provider redirects back to.
func (c *ServerConfig) FacebookRedirectURL() string {
	return strings.TrimRight(c.AppURL, "/") + "/api/facebook/callback"
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/rewardly/")
	v.AddConfigPath("$HOME/.rewardly")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("STORAGE", StorageFile)
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/rewardly")
	v.SetDefault("MONGO_DB_NAME", "rewardly")
	v.SetDefault("LINKS", LinksMemory)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 7*24*60)
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("SMTP_PORT", 587)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	switch cfg.Storage {
	case StorageMongo, StorageFile:
	default:
		return nil, fmt.Errorf("invalid STORAGE %q: must be %q or %q", cfg.Storage, StorageMongo, StorageFile)
	}
	switch cfg.Links {
	case LinksMemory, LinksRedis:
	default:
		return nil, fmt.Errorf("invalid LINKS %q: must be %q or %q", cfg.Links, LinksMemory, LinksRedis)
	}

	return &cfg, nil
}
