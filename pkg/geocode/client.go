// Package geocode resolves zip-code/municipality strings to coordinates
// via the Nominatim API, with rate limiting and a degraded-query fallback.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/egon-data/mastr-geocoding/internal/resilience"
)

// DefaultEndpoint is the public Nominatim search endpoint.
const DefaultEndpoint = "https://nominatim.openstreetmap.org/search"

// Client issues a single geocode lookup for a query string.
type Client interface {
	// Geocode resolves a query string to coordinates. A query the service
	// cannot match yields Matched=false, not an error; errors indicate the
	// service could not be reached after all retries.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the coordinates for a matched query.
type Result struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Matched   bool
}

// Option configures the Nominatim client.
type Option func(*nominatimClient)

// WithEndpoint overrides the Nominatim search URL.
func WithEndpoint(url string) Option {
	return func(c *nominatimClient) {
		c.endpoint = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *nominatimClient) {
		c.httpClient = hc
	}
}

// WithMinDelay sets the minimum interval between consecutive requests.
// Nominatim's usage policy requires at least one second.
func WithMinDelay(d time.Duration) Option {
	return func(c *nominatimClient) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithRetry sets the number of retries and the wait between attempts for
// transient request failures.
func WithRetry(maxRetries int, wait time.Duration) Option {
	return func(c *nominatimClient) {
		c.retry.MaxRetries = maxRetries
		c.retry.Wait = wait
	}
}

type nominatimClient struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a rate-limited Nominatim client. The user agent
// identifies the application to the service and must not be empty.
func NewClient(userAgent string, opts ...Option) Client {
	c := &nominatimClient{
		endpoint:   DefaultEndpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		retry: resilience.RetryConfig{
			MaxRetries: 3,
			Wait:       5 * time.Second,
			OnRetry:    resilience.RetryLogger("nominatim", "search"),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client. Each attempt, retries included, passes
// through the shared limiter so the minimum interval holds process-wide.
func (c *nominatimClient) Geocode(ctx context.Context, query string) (*Result, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		return c.search(ctx, query)
	})
}
