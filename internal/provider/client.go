// Package provider fetches current conditions from the OpenWeatherMap API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lox/citywx/internal/htmlutil"
	"github.com/lox/citywx/internal/httputil"
	"github.com/lox/citywx/internal/metrics"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var (
	ErrCityNotFound = errors.New("city not found")
	ErrNoAPIKey     = errors.New("openweather api key is not configured")
	ErrCircuitOpen  = errors.New("provider circuit breaker open")
)

// StatusError is a non-200 response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider: status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrCityNotFound
	}
	return nil
}

// StatusCode extracts the HTTP status from a Fetch error, or 0 when the
// request never got a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

type Client struct {
	apiKey          string
	baseURL         string
	units           string
	client          *http.Client
	circuit         *gobreaker.CircuitBreaker
	initialInterval time.Duration
	maxElapsed      time.Duration
	log             *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRetry sets the first backoff interval and the total time spent
// retrying rate limits and server errors.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = initial
		c.maxElapsed = maxElapsed
	}
}

// New returns a client that requests imperial units when fahrenheit is set
// and metric units otherwise, so stored readings match the alert table in use.
func New(apiKey string, fahrenheit bool, opts ...Option) *Client {
	units := "metric"
	if fahrenheit {
		units = "imperial"
	}
	c := &Client{
		apiKey:          apiKey,
		baseURL:         DefaultBaseURL,
		units:           units,
		client:          httputil.NewClient(httputil.DefaultTimeout),
		initialInterval: 500 * time.Millisecond,
		maxElapsed:      2 * time.Minute,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// A missing city is an answer, not a provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCityNotFound)
		},
	})
	return c
}

// Units is the units parameter sent with each request.
func (c *Client) Units() string { return c.units }

// Fetch returns the raw current-weather payload for city. A 404 is reported
// as ErrCityNotFound; rate limits and server errors are retried with
// exponential backoff until the retry budget or ctx runs out.
func (c *Client) Fetch(ctx context.Context, city string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", c.units)
	reqURL := c.baseURL + "?" + values.Encode()

	var body []byte
	operation := func() error {
		result, err := c.circuit.Execute(func() (interface{}, error) {
			return c.do(ctx, reqURL)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrCircuitOpen, err))
		}
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && retryable(se.StatusCode) {
				c.log.Warn("provider: retrying", zap.String("city", city), zap.Int("status", se.StatusCode))
				return err
			}
			return backoff.Permanent(err)
		}
		body = result.([]byte)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, reqURL string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch current weather: %w", err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	metrics.ProviderCallsTotal.WithLabelValues(status).Inc()
	metrics.ProviderLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       htmlutil.Snippet(string(b), resp.Header.Get("Content-Type"), 200),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
