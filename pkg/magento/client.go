// Package magento is a thin client for the Magento 2 REST API used by the
// storefront: JSON in, raw JSON out, non-2xx responses as *ResponseError.
package magento

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nazeru/storefront-checkout-go/pkg/idempotency"
	"github.com/nazeru/storefront-checkout-go/pkg/metrics"
)

const restPrefix = "/rest/V1"

type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.ClientMetrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type RequestOption func(*http.Request)

func WithIdempotencyKey(key string) RequestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set(idempotency.Header, key)
		}
	}
}

// Do sends body as JSON (nil means no body) and returns the raw response body.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("magento: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Observe(method, 0, start)
		return nil, err
	}
	defer resp.Body.Close()
	c.metrics.Observe(method, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("magento: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newResponseError(resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// GuestCartPath builds /rest/V1/guest-carts/{id}[/suffix...].
func GuestCartPath(cartID string, suffix ...string) string {
	parts := append([]string{restPrefix, "guest-carts", url.PathEscape(cartID)}, suffix...)
	return strings.Join(parts, "/")
}

func Path(parts ...string) string {
	return restPrefix + "/" + strings.Join(parts, "/")
}
