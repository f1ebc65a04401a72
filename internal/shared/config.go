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
	Database DatabaseConfig `toml:"database"`
	Retry    RetryConfig    `toml:"retry"`
	Breaker  BreakerConfig  `toml:"breaker"`
	Cache    CacheConfig    `toml:"cache"`
	Watcher  WatcherConfig  `toml:"watcher"`
}

// DatabaseConfig contains database connection and tuning settings.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	MaxOpenConns  int    `toml:"max_open_conns"`
	MaxIdleConns  int    `toml:"max_idle_conns"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	CacheSizeKB   int    `toml:"cache_size_kb"`
	Synchronous   string `toml:"synchronous"`
}

// RetryConfig controls connection retry behavior.
type RetryConfig struct {
	MaxAttempts    int     `toml:"max_attempts"`
	InitialDelayMS int     `toml:"initial_delay_ms"`
	BackoffFactor  float64 `toml:"backoff_factor"`
	MaxJitterMS    int     `toml:"max_jitter_ms"`
}

// BreakerConfig controls the shared circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `toml:"failure_threshold"`
	CooldownSeconds  int `toml:"cooldown_seconds"`
}

// CacheConfig contains library cache settings.
type CacheConfig struct {
	InitTimeoutSeconds int `toml:"init_timeout_seconds"`
}

// WatcherConfig contains filesystem watcher settings.
type WatcherConfig struct {
	Enabled    bool     `toml:"enabled"`
	Paths      []string `toml:"paths"`
	DebounceMS int      `toml:"debounce_ms"`
}

// InitTimeout returns the cache initialization timeout as a [time.Duration].
// Zero means no timeout.
func (c CacheConfig) InitTimeout() time.Duration {
	return time.Duration(c.InitTimeoutSeconds) * time.Second
}

// Debounce returns the watcher debounce interval as a [time.Duration].
func (c WatcherConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
