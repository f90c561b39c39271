// Package config loads the server configuration from the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every variable except the API key.
	EnvPrefix = "CHARGENOW"

	// APIKeyEnv holds the geocoding service key.
	APIKeyEnv = "GEOCODE_API_KEY"

	// DotEnvFile is read from the working directory when present.
	DotEnvFile = ".env"
)

// Config holds all server configuration.
type Config struct {
	GeocodeAPIKey      string        `mapstructure:"geocode_api_key" validate:"required"`
	GeocodeBaseURL     string        `mapstructure:"geocode_base_url" validate:"required,url"`
	NetworkURL         string        `mapstructure:"network_url" validate:"required,url"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	GeocodeRateLimit   float64       `mapstructure:"geocode_rate_limit" validate:"gte=0"`
	GeocodeBurst       int           `mapstructure:"geocode_burst" validate:"gte=1"`
	ReverseConcurrency int           `mapstructure:"reverse_concurrency" validate:"min=1,max=64"`
	Timezone           string        `mapstructure:"timezone" validate:"required"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
	LogLevel           string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	location *time.Location
}

// Location returns the time zone used to render status timestamps.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Load reads the .env file if present, then the environment:
// CHARGENOW_NETWORK_URL → network_url, GEOCODE_API_KEY → geocode_api_key.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "load %s", DotEnvFile)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("geocode_api_key", "")
	v.SetDefault("geocode_base_url", "https://geocode.maps.co")
	v.SetDefault("network_url", "")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("geocode_rate_limit", 10.0)
	v.SetDefault("geocode_burst", 10)
	v.SetDefault("reverse_concurrency", 8)
	v.SetDefault("timezone", "Local")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("geocode_api_key", APIKeyEnv, EnvPrefix+"_"+APIKeyEnv); err != nil {
		return nil, errors.Wrap(err, "bind api key")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and ranges and resolves the time zone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errors.Wrapf(err, "invalid configuration: timezone %q", c.Timezone)
	}
	c.location = loc
	return nil
}
