package enhancely

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/enhancely/enhancely-go/pkg/httpclient"
)

// Option configures a Client.
type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = trimEndpoint(endpoint) }
}

// WithTransport injects the HTTP transport used for API calls.
func WithTransport(transport httpclient.Client) Option {
	return func(c *Client) { c.transport = transport }
}

// WithTimeouts sets the total and connect timeouts of the default transport.
func WithTimeouts(total, connect time.Duration) Option {
	return func(c *Client) {
		c.timeouts = httpclient.Options{Timeout: total, ConnectTimeout: connect}
	}
}

func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = ensureLogger(log) }
}

// Client holds the API configuration and lazily builds the ProtocolClient from it.
// Changing the key, endpoint, transport or timeouts discards the cached ProtocolClient
// so the next call sees the new settings. Client is safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	apiKey    string
	endpoint  string
	transport httpclient.Client
	timeouts  httpclient.Options
	log       Logger
	proto     *ProtocolClient
}

// New creates a Client. Without WithAPIKey every request fails with a configuration error.
func New(opts ...Option) *Client {
	c := &Client{log: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetAPIKey replaces the API key.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(key)
	c.proto = nil
}

// SetEndpoint replaces the API base URL. An empty endpoint restores DefaultBaseURL.
func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = trimEndpoint(endpoint)
	c.proto = nil
}

// SetTransport injects an HTTP transport; nil restores the default resty transport.
func (c *Client) SetTransport(transport httpclient.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = transport
	c.proto = nil
}

func (c *Client) SetTimeouts(total, connect time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeouts = httpclient.Options{Timeout: total, ConnectTimeout: connect}
	c.proto = nil
}

// Reset clears key, endpoint, transport and timeouts. The logger is kept.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = ""
	c.endpoint = ""
	c.transport = nil
	c.timeouts = httpclient.Options{}
	c.proto = nil
}

// Fetch requests the JSON-LD for url and reports failures as *APIError.
func (c *Client) Fetch(ctx context.Context, url, etag string) (Response, error) {
	proto, err := c.protocolClient()
	if err != nil {
		return Response{}, err
	}
	return proto.RequestJSONLD(ctx, url, etag)
}

// JSONLD requests the JSON-LD for url. It never returns an error: failures come back as a
// Response in the failed state, so callers only need to inspect the response.
func (c *Client) JSONLD(ctx context.Context, url, etag string) Response {
	resp, err := c.Fetch(ctx, url, etag)
	if err != nil {
		c.log.DebugObj("jsonld request folded into failed response", "jsonld_failure", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
		return FailedFromError(err)
	}
	return resp
}

func (c *Client) protocolClient() (*ProtocolClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proto != nil {
		return c.proto, nil
	}
	if c.apiKey == "" {
		return nil, missingAPIKeyError()
	}

	transport := c.transport
	if transport == nil {
		transport = httpclient.NewRestyClientWithOptions(c.timeouts)
	}
	proto, err := NewProtocolClient(c.apiKey, c.endpoint, transport, c.log)
	if err != nil {
		return nil, err
	}
	c.proto = proto
	return proto, nil
}

func trimEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}
