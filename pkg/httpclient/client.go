package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"candlefuse/config"
	"candlefuse/internal/market"

	"github.com/sony/gobreaker"
)

// StatusError is returned for a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Client is a REST client bound to one provider base URL.
// Every request passes through the provider's circuit breaker when one is configured.
// The breaker belongs to the Client, so every series and asset fetched through one
// provider shares it for the life of the process.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func New(name string, cfg config.RESTConfig) (*Client, error) {
	httpClient, err := NewHTTPClient(cfg.Timeout, cfg.Proxy, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("%s http client: %w", name, err)
	}

	c := &Client{
		name:       name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
	if cfg.Breaker.MaxFailures > 0 {
		c.breaker = newBreaker(name, cfg.Breaker)
	}
	return c, nil
}

// NewHTTPClient builds an http.Client with an explicit proxy and User-Agent.
// An empty proxy means direct connections; the process environment is not consulted.
func NewHTTPClient(timeout time.Duration, proxy, userAgent string) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	var rt http.RoundTripper = transport
	if userAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: userAgent}
	}

	return &http.Client{Transport: rt, Timeout: timeout}, nil
}

// Get issues GET baseURL+path with the query and returns the body of a 200 response.
// Transport failures and an open breaker come back as transport-kind FetchErrors.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	do := func() (interface{}, error) {
		return c.do(ctx, endpoint)
	}

	var (
		out interface{}
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(do)
	} else {
		out, err = do()
	}
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}
		return nil, market.NewFetchError(c.name, market.KindTransport, err)
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// Execute the HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
