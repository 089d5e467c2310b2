// Package config loads the CLI configuration from a YAML file and the environment
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/upgrowplan/upgrowplan/internal/constants"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/routes"
	"github.com/upgrowplan/upgrowplan/pkg/poller"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// DefaultClientTimeoutMs is the default per-request timeout of the API client
const DefaultClientTimeoutMs = 30000

// ServerConfig locates the job service
type ServerConfig struct {
	Address   string `yaml:"address"`
	AuthToken string `yaml:"authToken"`
}

// ClientConfig tunes the API client
type ClientConfig struct {
	TimeoutMs int    `yaml:"timeoutMs"`
	Language  string `yaml:"language"`
}

// PollerConfig tunes status polling
type PollerConfig struct {
	IntervalMs       int `yaml:"intervalMs"`
	MaxAttempts      int `yaml:"maxAttempts"`
	FailureThreshold int `yaml:"failureThreshold"`
}

// KindConfig overrides where a job kind lives on the backend
type KindConfig struct {
	Collection              string `yaml:"collection"`
	ResultPath              string `yaml:"resultPath"`
	SupportsRecommendations bool   `yaml:"supportsRecommendations"`
}

// SandboxConfig tunes the local simulated backend
type SandboxConfig struct {
	Port          string `yaml:"port"`
	StepsPerStage int    `yaml:"stepsPerStage"`
}

// Config is the complete CLI configuration
type Config struct {
	Server  ServerConfig          `yaml:"server"`
	Client  ClientConfig          `yaml:"client"`
	Poller  PollerConfig          `yaml:"poller"`
	Kinds   map[string]KindConfig `yaml:"kinds"`
	Sandbox SandboxConfig         `yaml:"sandbox"`
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: routes.DefaultBaseURL},
		Client: ClientConfig{TimeoutMs: DefaultClientTimeoutMs, Language: "en"},
		Poller: PollerConfig{
			IntervalMs:       int(poller.DefaultInterval / time.Millisecond),
			MaxAttempts:      poller.DefaultMaxAttempts,
			FailureThreshold: poller.DefaultFailureThreshold,
		},
		Sandbox: SandboxConfig{Port: routes.DefaultPort, StepsPerStage: 1},
	}
}

// Load reads the YAML file at path over the defaults and then applies the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close() //nolint:errcheck

		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with the environment
func (c *Config) ApplyEnv() error {
	c.Server.Address = GetEnv(constants.EnvServerAddress, c.Server.Address)
	c.Server.AuthToken = GetEnv(constants.EnvAuthToken, c.Server.AuthToken)

	if v := os.Getenv(constants.EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", constants.EnvPollInterval, v, err)
		}
		c.Poller.IntervalMs = int(d / time.Millisecond)
	}
	if v := os.Getenv(constants.EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", constants.EnvMaxAttempts, v, err)
		}
		c.Poller.MaxAttempts = n
	}
	return nil
}

// Validate rejects values the poller and client cannot work with
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Client.TimeoutMs < 0 {
		return fmt.Errorf("client.timeoutMs must not be negative")
	}
	if c.Poller.IntervalMs < 0 || c.Poller.MaxAttempts < 0 || c.Poller.FailureThreshold < 0 {
		return fmt.Errorf("poller settings must not be negative")
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("invalid kinds: %w", err)
	}
	return nil
}

// ClientTimeout returns the per-request timeout of the API client
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutMs) * time.Millisecond
}

// PollerOptions converts the poller section; zero values fall back to the poller defaults
func (c *Config) PollerOptions() poller.Options {
	return poller.Options{
		Interval:         time.Duration(c.Poller.IntervalMs) * time.Millisecond,
		MaxAttempts:      c.Poller.MaxAttempts,
		FailureThreshold: c.Poller.FailureThreshold,
	}
}

// Registry builds the job kind registry with the configured overrides
func (c *Config) Registry() (*jobs.Registry, error) {
	overrides := make([]jobs.Kind, 0, len(c.Kinds))
	for name, k := range c.Kinds {
		overrides = append(overrides, jobs.Kind{
			Name:                    jobs.KindName(strings.ToLower(strings.TrimSpace(name))),
			Collection:              k.Collection,
			ResultPath:              k.ResultPath,
			SupportsRecommendations: k.SupportsRecommendations,
		})
	}
	return jobs.NewRegistry(overrides...)
}
