// Package xmlapi performs GET requests against XML web services and decodes the
// response into a typed model.
package xmlapi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/models"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches and decodes XML documents for one upstream service.
type Client struct {
	service string           // service names the upstream in errors, logs and metrics
	client  HTTPClient       // HTTP client for making requests
	log     *slog.Logger     // Logger for logging operations
	metrics *metrics.Metrics // optional
	agent   string           // User-Agent header, if set
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithMetrics records request durations and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.agent = agent
	}
}

// New creates a Client for the named service. Requests time out after timeout;
// a non-positive value falls back to DefaultTimeout.
func New(service string, timeout time.Duration, log *slog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		service: service,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Service returns the upstream name the client was created for.
func (c *Client) Service() string {
	return c.service
}

// Get issues a GET request to reqURL and decodes the XML body into v.
//
// An empty body yields models.ErrNotFound. Network failures and non-2xx statuses
// yield a *models.TransportError, and undecodable bodies yield models.ErrMalformedResponse.
func (c *Client) Get(ctx context.Context, reqURL string, v any) error {
	startTime := time.Now()
	err := c.get(ctx, reqURL, v)

	if c.metrics != nil {
		c.metrics.RequestSeconds.WithLabelValues(c.service).Observe(time.Since(startTime).Seconds())
		if err != nil {
			c.metrics.UpstreamErrors.WithLabelValues(c.service, models.Outcome(err)).Inc()
		}
	}

	return err
}

func (c *Client) get(ctx context.Context, reqURL string, v any) error {
	c.log.DebugContext(ctx, "Sending request", "service", c.service, "url", Redact(reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	if c.agent != "" {
		req.Header.Set("User-Agent", c.agent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &models.TransportError{Service: c.service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		c.log.ErrorContext(ctx, "Upstream API error",
			"service", c.service, "status", resp.StatusCode, "body", string(body))
		return &models.TransportError{Service: c.service, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.TransportError{Service: c.service, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		c.log.WarnContext(ctx, "No response body", "service", c.service, "url", Redact(reqURL))
		return fmt.Errorf("%s: empty response for %s: %w", c.service, Redact(reqURL), models.ErrNotFound)
	}

	c.log.DebugContext(ctx, "Raw response", "service", c.service, "body", string(body))

	if err = Decode(body, v); err != nil {
		c.log.ErrorContext(ctx, "Failed to parse response", "service", c.service, "error", err)
		return fmt.Errorf("%s: %w", c.service, err)
	}

	return nil
}

// Decode unmarshals an XML document into v. Documents are read as UTF-8 unless
// their prolog declares another encoding.
func Decode(body []byte, v any) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: failed to decode XML: %w", models.ErrMalformedResponse, err)
	}

	return nil
}

// Redact masks the API key in a request URL so it can be logged.
func Redact(reqURL string) string {
	parsed, err := url.Parse(reqURL)
	if err != nil {
		return reqURL
	}

	query := parsed.Query()
	if query.Get("key") == "" {
		return reqURL
	}
	query.Set("key", "REDACTED")
	parsed.RawQuery = query.Encode()

	return parsed.String()
}
