package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
	Player      PlayerConfig      `toml:"player"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Storage StorageConfig `toml:"storage"`
}

// StorageConfig contains OAuth2 client credentials for the storage API proxy.
//
// When ClientID is empty requests are sent unauthenticated.
type StorageConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// APIConfig contains settings for the storage API proxy.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	RateLimit      float64 `toml:"rate_limit"`
	BatchWorkers   int     `toml:"batch_workers"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the configured request timeout as a [time.Duration].
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlayerConfig contains media playlist settings.
type PlayerConfig struct {
	MaxRetry    int   `toml:"max_retry"`
	ShuffleSeed int64 `toml:"shuffle_seed"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.API.BatchWorkers < 0 {
		return fmt.Errorf("%w: api.batch_workers must not be negative", ErrInvalidConfig)
	}
	if c.Player.MaxRetry < 0 {
		return fmt.Errorf("%w: player.max_retry must not be negative", ErrInvalidConfig)
	}
	if c.Credentials.Storage.ClientID != "" && c.Credentials.Storage.TokenURL == "" {
		return fmt.Errorf("%w: credentials.storage.token_url is required with client_id", ErrMissingCredentials)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
