// Package datasource provides the two upstream adapters: NSE India for live
// quotes, index rows, equity detail and the pre-open universe, and Yahoo
// Finance for historical bars and company fundamentals. Both return
// provider-shaped records; normalisation happens in the engine.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/seenimoa/bazaar/internal/infra"
	"github.com/seenimoa/bazaar/internal/logging"
)

//go:generate mockgen -package=datasource -destination=mock_http_client_test.go -source=datasource.go

// HTTPClient is the subset of *http.Client the adapters depend on.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a symbol or index cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = errors.New("rate limited by data source")

// ErrEmptyResponse is returned when a source answers with no usable payload.
var ErrEmptyResponse = errors.New("empty response from data source")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// NSEError is the error type of the NSE adapter.
type NSEError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *NSEError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("nse %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("nse %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *NSEError) Unwrap() error { return e.Err }

// YFinanceError is the error type of the Yahoo Finance adapter.
type YFinanceError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *YFinanceError) Error() string {
	return fmt.Sprintf("yfinance %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *YFinanceError) Unwrap() error { return e.Err }

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// Option configures an adapter.
type Option func(*clientOptions)

type clientOptions struct {
	client  HTTPClient
	timeout time.Duration
	limiter *rate.Limiter
	log     *logging.Log
	now     infra.Clock
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c HTTPClient) Option {
	return func(o *clientOptions) { o.client = c }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRateLimit limits the adapter to rps requests per second.
func WithRateLimit(rps int) Option {
	return func(o *clientOptions) { o.limiter = infra.NewLimiter(rps) }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Log) Option {
	return func(o *clientOptions) { o.log = l }
}

// WithClock overrides the clock used for cookie expiry.
func WithClock(c infra.Clock) Option {
	return func(o *clientOptions) { o.now = c }
}

func buildOptions(defaultRPS int, opts []Option) clientOptions {
	o := clientOptions{
		timeout: 30 * time.Second,
		limiter: infra.NewLimiter(defaultRPS),
		now:     infra.SystemClock,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Discard()
	}
	return o
}

// doGet performs a rate-limited GET and returns the body. Status 429 maps to
// ErrRateLimited, 404 to ErrTickerNotFound and any other status >= 400 to
// *ErrHTTP.
func doGet(ctx context.Context, client HTTPClient, limiter *rate.Limiter, url string, headers map[string]string) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTickerNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// FlexFloat64 decodes JSON numbers that may arrive as numbers, numeric
// strings, or placeholders like "-" and "N/A" (decoded as 0).
type FlexFloat64 float64

func (f *FlexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// Float returns the value as a float64.
func (f FlexFloat64) Float() float64 { return float64(f) }
