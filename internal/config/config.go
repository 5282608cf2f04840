package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environments accepted by the logger setup.
const (
	EnvLocal = "local"
	EnvDev   = "development"
	EnvProd  = "production"
)

// DefaultRequestTimeout bounds every outbound request when request_timeout is not configured.
const DefaultRequestTimeout = 10 * time.Second

// Config holds the configuration settings for the tract lookup service.
//
// Values are read from an optional YAML file and overridden by environment
// variables prefixed with TRACT_, e.g. TRACT_GEOCODER_API_KEY for geocoder.api_key.
type Config struct {
	Env            string         `mapstructure:"env"`             // Env is the current environment: local, development, production.
	Server         ServerConfig   `mapstructure:"server"`          // Server configures the HTTP API.
	Provider       ProviderConfig `mapstructure:"provider"`        // Provider selects the geocoding backend.
	Geocoder       APIConfig      `mapstructure:"geocoder"`        // Geocoder holds the geocoding API credentials.
	Census         APIConfig      `mapstructure:"census"`          // Census holds the census block API credentials.
	RequestTimeout time.Duration  `mapstructure:"request_timeout"` // RequestTimeout bounds each outbound request.
	Database       PostgresConfig `mapstructure:"postgres"`        // Database holds the lookup journal configuration.
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `mapstructure:"port"` // Port is the HTTP API port.
}

// ProviderConfig selects the geocoding backend.
type ProviderConfig struct {
	Type string `mapstructure:"type"` // Type is one of google, googlemaps, nominatim.
}

// APIConfig holds the endpoint and credentials of an upstream API.
type APIConfig struct {
	APIKey string `mapstructure:"api_key"` // APIKey is sent with every request when set.
	URL    string `mapstructure:"url"`     // URL overrides the public endpoint.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
// The journal is disabled when Host is empty.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     string `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"db_name"`  // Name is the name of the database.
}

// Enabled reports whether a journal database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// Load reads configuration from file and environment.
//
// When path is empty an optional config.yaml in the working directory is used.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv picks it up during Unmarshal.
	v.SetDefault("env", EnvProd)
	v.SetDefault("server.port", 8080)
	v.SetDefault("provider.type", "google")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.url", "")
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.url", "")
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("postgres.host", "")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("invalid env %q: must be one of local, development, production", c.Env)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request_timeout %s: must be positive", c.RequestTimeout)
	}

	if c.Provider.Type != "nominatim" && c.Geocoder.APIKey == "" {
		return errors.New("geocoder.api_key is required for the " + c.Provider.Type + " provider")
	}

	return nil
}
