package shopify

import (
	"net/http"
	"time"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// Provider builds Admin API clients per organization. The API version
// and timeout are process-wide; shop domain and token come from each
// organization's OAuth link.
type Provider struct {
	apiVersion string
	apiBaseURL string
	timeout    time.Duration
}

// NewProvider creates a client provider. baseURL overrides the per-shop
// myshopify URL and is empty outside tests.
func NewProvider(apiVersion, baseURL string, timeout time.Duration) *Provider {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{apiVersion: apiVersion, apiBaseURL: baseURL, timeout: timeout}
}

// ClientFor returns the Admin API client for the organization's linked
// shop. Callers check Organization.Linked before syncing.
func (p *Provider) ClientFor(org *sync.Organization) sync.ExternalClient {
	return &Client{
		config: &Config{
			ShopDomain:  org.ShopDomain,
			AccessToken: org.OAuthToken,
			APIVersion:  p.apiVersion,
			APIBaseURL:  p.apiBaseURL,
			Timeout:     p.timeout,
		},
		httpClient: &http.Client{Timeout: p.timeout},
	}
}
