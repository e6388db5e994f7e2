// Package gem talks to the BidPlus portal: session bootstrap, paginated listing
// queries, bid detail pages and document route selection.
package gem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultBaseURL is the public BidPlus portal.
const DefaultBaseURL = "https://bidplus.gem.gov.in"

// DefaultUserAgent identifies the harvester to the portal.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) BidPlusHarvester/1.0"

const (
	listingPagePath = "/all-bids"
	listingDataPath = "/all-bids-data"
	detailViewPath  = "/bidding/bid/getBidResultView/"
)

// StatusError reports a non-2xx response from the portal.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Client is a session-scoped portal client. Cookies set by the listing page are
// replayed on every later request made through HTTPClient.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	timeout   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds each listing, token and detail request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient builds a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the portal origin without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// UserAgent returns the User-Agent sent on every request.
func (c *Client) UserAgent() string { return c.userAgent }

// HTTPClient exposes the session client so document requests share its cookies.
func (c *Client) HTTPClient() *http.Client { return c.http }

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
