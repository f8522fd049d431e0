// Package config provides configuration loading for the remote control server.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPassword is the placeholder secret used when nothing else is configured.
// It must be overridden for any real deployment.
const DefaultPassword = "change-me"

// EnvPrefix prefixes every recognized environment variable.
const EnvPrefix = "LRC_"

// Config represents the server configuration.
// It is read-only once Load returns.
type Config struct {
	// Password is the shared secret for the stream token and control channel auth
	Password string `yaml:"password"`

	// Host is the bind address (default: 0.0.0.0)
	Host string `yaml:"host"`

	// Port is the listen port (default: 8010)
	Port int `yaml:"port"`

	// FPS is the target frame rate of every viewer stream
	FPS int `yaml:"fps"`

	// JPEGQuality is the encoder quality, 0-100
	JPEGQuality int `yaml:"jpeg_quality"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Debug switches to the development logger and gin debug mode
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a new Config with the documented defaults
func DefaultConfig() *Config {
	return &Config{
		Password:    DefaultPassword,
		Host:        "0.0.0.0",
		Port:        8010,
		FPS:         10,
		JPEGQuality: 70,
		LogLevel:    "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// an optional .env file in the working directory and LRC_* environment
// variables, in that order of precedence (later wins).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// A missing .env file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML file into cfg. A missing file keeps the defaults.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from LRC_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "PASSWORD"); ok {
		c.Password = v
	}
	if v, ok := lookup(EnvPrefix + "HOST"); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PORT", &c.Port},
		{"FPS", &c.FPS},
		{"JPEG_QUALITY", &c.JPEGQuality},
	}
	for _, f := range ints {
		v, ok := lookup(EnvPrefix + f.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, f.name, v)
		}
		*f.dst = n
	}

	if v, ok := lookup(EnvPrefix + "DEBUG"); ok && v != "" {
		d, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: invalid boolean %q", EnvPrefix, v)
		}
		c.Debug = d
	}
	return nil
}

// Validate checks ranges. Out-of-range JPEG quality is clamped rather than rejected.
func (c *Config) Validate() error {
	if c.Password == "" {
		return errors.New("password must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.FPS < 1 {
		return fmt.Errorf("fps must be at least 1, got %d", c.FPS)
	}
	if c.JPEGQuality < 0 {
		c.JPEGQuality = 0
	}
	if c.JPEGQuality > 100 {
		c.JPEGQuality = 100
	}
	return nil
}

// Addr returns the host:port listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UsesDefaultPassword reports whether the insecure placeholder is still in use
func (c *Config) UsesDefaultPassword() bool {
	return c.Password == DefaultPassword
}
