package clients

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"campusev/backend/libs/httpx"
)

const maxResponseBytes = 4 << 20

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Response is a buffered upstream reply.
type Response struct {
	Status      int
	ContentType string
	Headers     http.Header
	Body        []byte
}

// BaseClient sends requests relative to one upstream base URL.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *BaseClient) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Do executes the request and buffers the response.
func (c *BaseClient) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     resp.Header,
		Body:        respBody,
	}, nil
}

type gatewayDoer struct {
	next   HTTPDoer
	secret string
}

func (d gatewayDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set(httpx.GatewayTokenHeader, d.secret)
	return d.next.Do(req)
}

// WithGatewayToken stamps every request with the internal secret so
// upstreams accept the identity headers the gateway sets.
func WithGatewayToken(next HTTPDoer, secret string) HTTPDoer {
	return gatewayDoer{next: next, secret: secret}
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
