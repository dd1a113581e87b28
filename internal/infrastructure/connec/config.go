package connec

import (
	"errors"
	"strings"
	"time"
)

// Config holds the Connec data-store API credentials. One key pair
// covers every organization; requests are scoped by the organization
// uid in the path.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// DefaultBaseURL is the production Connec API root.
const DefaultBaseURL = "https://api-connec.maestrano.com/api/v2"

var (
	ErrConfigMissingAPIKey    = errors.New("connec: api key is required")
	ErrConfigMissingAPISecret = errors.New("connec: api secret is required")
)

// NewConfig creates a Connec configuration with defaults.
func NewConfig(apiKey, apiSecret string) *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Timeout:   30 * time.Second,
	}
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrConfigMissingAPISecret
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}
