package connec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the Connec
// API (10MB).
const maxResponseSize = 10 * 1024 * 1024

var (
	ErrUnavailable       = errors.New("connec: platform unavailable")
	ErrRequestFailed     = errors.New("connec: request failed")
	ErrInvalidResponse   = errors.New("connec: invalid response")
	ErrUnknownEntityType = errors.New("connec: unknown entity type")
)

// resourcePaths maps canonical entity type names onto their API path
// segments, which double as the envelope key of request and response
// bodies.
var resourcePaths = map[string]string{
	"Person":       "people",
	"Organization": "organizations",
	"Item":         "items",
	"Sales Order":  "sales_orders",
	"Invoice":      "invoices",
	"Payment":      "payments",
}

// Client is the canonical-store client for one organization. Paths are
// scoped by the organization uid; records travel wrapped under the
// resource key.
type Client struct {
	config     *Config
	orgUID     string
	httpClient *http.Client
}

// NewClient creates a Connec client scoped to the given organization.
func NewClient(config *Config, orgUID string) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		orgUID:     orgUID,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Find lists canonical records of the given entity type. Filter keys
// become query parameters.
func (c *Client) Find(ctx context.Context, entityType string, filter sync.Record) ([]sync.Record, error) {
	resource, ok := resourcePaths[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}

	path := fmt.Sprintf("/%s/%s", c.orgUID, resource)
	query := url.Values{}
	for key, value := range filter {
		query.Set(key, fmt.Sprintf("%v", value))
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	raw, err := unwrap(body, resource)
	if err != nil {
		return nil, err
	}
	var records []sync.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		// A single record comes back unwrapped from a list.
		var record sync.Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		records = []sync.Record{record}
	}
	return records, nil
}

// Create stores a new canonical record and returns it with its
// assigned id triples.
func (c *Client) Create(ctx context.Context, entityType string, record sync.Record) (sync.Record, error) {
	resource, ok := resourcePaths[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}
	path := fmt.Sprintf("/%s/%s", c.orgUID, resource)
	return c.write(ctx, http.MethodPost, path, resource, record)
}

// Update rewrites the canonical record with the given id.
func (c *Client) Update(ctx context.Context, entityType string, id string, record sync.Record) (sync.Record, error) {
	resource, ok := resourcePaths[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}
	path := fmt.Sprintf("/%s/%s/%s", c.orgUID, resource, id)
	return c.write(ctx, http.MethodPut, path, resource, record)
}

func (c *Client) write(ctx context.Context, method, path, resource string, record sync.Record) (sync.Record, error) {
	reqBody, err := json.Marshal(map[string]any{resource: record})
	if err != nil {
		return nil, fmt.Errorf("connec: failed to encode %s: %w", resource, err)
	}

	body, err := c.doRequest(ctx, method, path, reqBody)
	if err != nil {
		return nil, err
	}

	raw, err := unwrap(body, resource)
	if err != nil {
		return nil, err
	}
	var stored sync.Record
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return stored, nil
}

func unwrap(body []byte, resource string) (json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	raw, ok := envelope[resource]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q key", ErrInvalidResponse, resource)
	}
	return raw, nil
}

// doRequest performs one Connec API request and returns the response
// body.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("connec: failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.APIKey, c.config.APISecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("connec: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, resp.StatusCode, respBody)
	}
	return respBody, nil
}

var _ sync.ConnecClient = (*Client)(nil)

// Provider builds Connec clients per organization, sharing one key
// pair and HTTP configuration.
type Provider struct {
	config *Config
}

// NewProvider creates a client provider from a validated configuration.
func NewProvider(config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Provider{config: config}, nil
}

// ClientFor returns the canonical-store client scoped to the
// organization's uid.
func (p *Provider) ClientFor(org *sync.Organization) sync.ConnecClient {
	return &Client{
		config:     p.config,
		orgUID:     org.UID,
		httpClient: &http.Client{Timeout: p.config.Timeout},
	}
}
