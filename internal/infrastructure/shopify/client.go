package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cast"

	"github.com/connec/shopify-connector/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the Admin
// API (10MB).
const maxResponseSize = 10 * 1024 * 1024

var (
	ErrUnavailable       = errors.New("shopify: platform unavailable")
	ErrRequestFailed     = errors.New("shopify: request failed")
	ErrInvalidResponse   = errors.New("shopify: invalid response")
	ErrUnknownEntityType = errors.New("shopify: unknown entity type")
	ErrMissingOrderID    = errors.New("shopify: transaction lookup requires an order_id filter")
)

// resource maps an engine entity type onto its Admin API path segment
// and the singular key wrapping request and response bodies.
type resource struct {
	plural   string
	singular string
}

var resources = map[string]resource{
	"Customer":    {plural: "customers", singular: "customer"},
	"Product":     {plural: "products", singular: "product"},
	"Variant":     {plural: "variants", singular: "variant"},
	"Order":       {plural: "orders", singular: "order"},
	"Transaction": {plural: "transactions", singular: "transaction"},
}

// Client is the Admin REST client for one shop. Update doubles as
// create: a payload without an id posts a new resource, one with an id
// puts an update.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates an Admin API client for the given shop.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Find lists resources of the given entity type. Filter keys become
// query parameters; transactions are nested under their order and need
// an order_id filter.
func (c *Client) Find(ctx context.Context, entityType string, filter sync.Record) ([]sync.Record, error) {
	res, ok := resources[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}

	path := fmt.Sprintf("/%s.json", res.plural)
	if entityType == "Transaction" {
		orderID := filter.Get("order_id")
		if orderID == nil {
			return nil, ErrMissingOrderID
		}
		// JSON decodes numeric ids as float64; cast keeps them in
		// plain notation in the path.
		path = fmt.Sprintf("/orders/%s/transactions.json", cast.ToString(orderID))
		filter = filter.Clone()
		filter.Delete("order_id")
	}

	query := url.Values{}
	for key, value := range filter {
		query.Set(key, cast.ToString(value))
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	raw, ok := envelope[res.plural]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q key", ErrInvalidResponse, res.plural)
	}

	var records []sync.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return records, nil
}

// Update writes one resource: POST to create when the payload has no
// id, PUT to update when it does. Returns the stored resource as the
// platform echoes it back.
func (c *Client) Update(ctx context.Context, entityType string, payload sync.Record) (sync.Record, error) {
	res, ok := resources[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}

	method := http.MethodPost
	path := fmt.Sprintf("/%s.json", res.plural)
	if id := payload.Get("id"); id != nil {
		method = http.MethodPut
		path = fmt.Sprintf("/%s/%s.json", res.plural, cast.ToString(id))
	}

	reqBody, err := json.Marshal(map[string]any{res.singular: payload})
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to encode %s: %w", res.singular, err)
	}

	body, err := c.doRequest(ctx, method, path, reqBody)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	raw, ok := envelope[res.singular]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q key", ErrInvalidResponse, res.singular)
	}

	var record sync.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return record, nil
}

// doRequest performs one Admin API request and returns the response
// body.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)
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
		return nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRequestFailed, resp.StatusCode, respBody)
	}
	return respBody, nil
}

var _ sync.ExternalClient = (*Client)(nil)
