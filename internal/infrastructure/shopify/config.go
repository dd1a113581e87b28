package shopify

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the credentials and API settings for one linked shop.
type Config struct {
	// ShopDomain is the myshopify domain, e.g. "acme.myshopify.com".
	ShopDomain string
	// AccessToken is the shop's Admin API access token.
	AccessToken string
	// APIVersion is the Admin API version segment, e.g. "2024-01".
	APIVersion string
	// APIBaseURL overrides the shop domain URL, used in tests.
	APIBaseURL string
	Timeout    time.Duration
}

// DefaultAPIVersion is the Admin API version used when none is configured.
const DefaultAPIVersion = "2024-01"

var (
	ErrConfigMissingShopDomain  = errors.New("shopify: shop domain is required")
	ErrConfigMissingAccessToken = errors.New("shopify: access token is required")
)

// NewConfig creates a shop configuration with defaults.
func NewConfig(shopDomain, accessToken string) *Config {
	return &Config{
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		APIVersion:  DefaultAPIVersion,
		Timeout:     30 * time.Second,
	}
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.ShopDomain == "" && c.APIBaseURL == "" {
		return ErrConfigMissingShopDomain
	}
	if c.AccessToken == "" {
		return ErrConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// BaseURL returns the Admin API root for the shop, without a trailing
// slash.
func (c *Config) BaseURL() string {
	if c.APIBaseURL != "" {
		return fmt.Sprintf("%s/admin/api/%s", c.APIBaseURL, c.APIVersion)
	}
	return fmt.Sprintf("https://%s/admin/api/%s", c.ShopDomain, c.APIVersion)
}
