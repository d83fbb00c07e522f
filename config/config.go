// Package config provides configuration loading and management for openai-client.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the root every request path is resolved against.
const DefaultBaseURL = "https://api.openai.com/v1/"

// Config represents the complete openai-client configuration
type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Parameters  ParametersConfig  `yaml:"parameters"`
}

// APIConfig configures the remote endpoint
type APIConfig struct {
	// BaseURL is the API root (default: https://api.openai.com/v1/)
	BaseURL string `yaml:"base_url"`
	// Timeout bounds the whole exchange, streaming included (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`
}

// CredentialsConfig configures where the API key and organization ID are looked up
type CredentialsConfig struct {
	// KeyEnv is the environment variable holding the API key
	KeyEnv string `yaml:"key_env"`
	// OrganizationEnv is the environment variable holding the organization ID
	OrganizationEnv string `yaml:"organization_env"`
	// Files are searched in order after the explicit files and the environment.
	// Entries may start with ~/ and may be glob patterns.
	Files []string `yaml:"files"`
}

// ParametersConfig configures where the request body is looked up
type ParametersConfig struct {
	// Files are searched in order after the explicit parameter file
	Files []string `yaml:"files"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 0,
		},
		Credentials: CredentialsConfig{
			KeyEnv:          "OPENAI_API_KEY",
			OrganizationEnv: "OPENAI_ORG_KEY",
			Files: []string{
				"openai.env",
				".openai_profile",
				".env",
				"~/openai.env",
				"~/.openai_profile",
				"~/.env",
			},
		},
		Parameters: ParametersConfig{
			Files: []string{
				"openai.json",
				"openai-parameters.json",
				"openai_parameters.json",
				"openai-parameters",
				"openai_parameters",
				"openai.config.json",
			},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Credentials.KeyEnv == "" {
		return fmt.Errorf("credentials.key_env is required")
	}
	if c.Credentials.OrganizationEnv == "" {
		return fmt.Errorf("credentials.organization_env is required")
	}
	return nil
}

// LoadFromFile reads one configuration layer from a YAML file. Keys the file
// does not set stay zero, so the result is meant to be merged over
// DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// API
	if other.API.BaseURL != "" {
		c.API.BaseURL = other.API.BaseURL
	}
	if other.API.Timeout != 0 {
		c.API.Timeout = other.API.Timeout
	}

	// Credentials
	if other.Credentials.KeyEnv != "" {
		c.Credentials.KeyEnv = other.Credentials.KeyEnv
	}
	if other.Credentials.OrganizationEnv != "" {
		c.Credentials.OrganizationEnv = other.Credentials.OrganizationEnv
	}
	if len(other.Credentials.Files) > 0 {
		c.Credentials.Files = other.Credentials.Files
	}

	// Parameters
	if len(other.Parameters.Files) > 0 {
		c.Parameters.Files = other.Parameters.Files
	}
}
