package nettle

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all configuration options for the Nettle compiler
type Config struct {
	// CacheMaxSize is the maximum number of compiled templates to cache. 0 disables caching.
	CacheMaxSize int `yaml:"cacheMaxSize"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"logLevel"`
	// MaxRenderDepth controls the maximum depth of nested partial invocations
	MaxRenderDepth int `yaml:"maxRenderDepth"`
	// MaxLoopIterations caps while loops. 0 means unlimited.
	MaxLoopIterations int `yaml:"maxLoopIterations"`
	// MaxConcurrency bounds how many sibling blocks render at once. 0 means unlimited.
	MaxConcurrency int `yaml:"maxConcurrency"`
	// DefaultFlags are OR-ed into the flags of every compiled template
	DefaultFlags TemplateFlag `yaml:"-"`
}

// fileConfig mirrors Config for YAML documents, where flags are listed by name.
type fileConfig struct {
	CacheMaxSize      *int     `yaml:"cacheMaxSize"`
	CacheTTL          string   `yaml:"cacheTTL"`
	LogLevel          string   `yaml:"logLevel"`
	MaxRenderDepth    *int     `yaml:"maxRenderDepth"`
	MaxLoopIterations *int     `yaml:"maxLoopIterations"`
	MaxConcurrency    *int     `yaml:"maxConcurrency"`
	Flags             []string `yaml:"flags"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:      100,
		CacheTTL:          0,
		LogLevel:          "info",
		MaxRenderDepth:    100,
		MaxLoopIterations: 0,
		MaxConcurrency:    0,
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("NETTLE_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	if val := os.Getenv("NETTLE_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("NETTLE_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(val)
	}

	if val := os.Getenv("NETTLE_MAX_RENDER_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRenderDepth = depth
		}
	}

	if val := os.Getenv("NETTLE_MAX_LOOP_ITERATIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.MaxLoopIterations = n
		}
	}

	if val := os.Getenv("NETTLE_MAX_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.MaxConcurrency = n
		}
	}

	// NETTLE_FLAGS is a comma separated list of flag names
	if val := os.Getenv("NETTLE_FLAGS"); val != "" {
		if flags, err := ParseTemplateFlags(strings.Split(val, ",")); err == nil {
			config.DefaultFlags = flags
		}
	}

	return config
}

// LoadConfigFile reads a YAML (or JSON) configuration document. Unset keys keep
// their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML (or JSON) configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var doc fileConfig
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config := DefaultConfig()
	if doc.CacheMaxSize != nil {
		config.CacheMaxSize = *doc.CacheMaxSize
	}
	if doc.CacheTTL != "" {
		ttl, err := time.ParseDuration(doc.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid cacheTTL %q: %w", doc.CacheTTL, err)
		}
		config.CacheTTL = ttl
	}
	if doc.LogLevel != "" {
		config.LogLevel = strings.ToLower(doc.LogLevel)
	}
	if doc.MaxRenderDepth != nil {
		config.MaxRenderDepth = *doc.MaxRenderDepth
	}
	if doc.MaxLoopIterations != nil {
		config.MaxLoopIterations = *doc.MaxLoopIterations
	}
	if doc.MaxConcurrency != nil {
		config.MaxConcurrency = *doc.MaxConcurrency
	}
	if len(doc.Flags) > 0 {
		flags, err := ParseTemplateFlags(doc.Flags)
		if err != nil {
			return nil, err
		}
		config.DefaultFlags = flags
	}

	return config, config.Validate()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxRenderDepth <= 0 {
		return errors.New("max render depth must be positive")
	}

	if c.MaxLoopIterations < 0 {
		return errors.New("max loop iterations cannot be negative")
	}

	if c.MaxConcurrency < 0 {
		return errors.New("max concurrency cannot be negative")
	}

	return nil
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	GetLogger().SetLevel(parseLogLevel(GetGlobalConfig().LogLevel))
}
