// Package client is a Go client for the Performance Insights HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

type Config struct {
	// BaseURL is the service root, e.g. http://localhost:8080.
	BaseURL string
	Timeout time.Duration
	Retry   RetryPolicy
	// FailureThreshold consecutive server failures open the circuit
	// breaker. 0 disables it.
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HTTPClient       *http.Client
}

func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:8080",
		Timeout:          30 * time.Second,
		Retry:            DefaultRetryPolicy(),
		FailureThreshold: 5,
		RecoveryTimeout:  10 * time.Second,
	}
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	retry   RetryPolicy
	breaker *CircuitBreaker
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL must be provided")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Retry.Multiplier < 1 {
		cfg.Retry.Multiplier = 1
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		retry:   cfg.Retry,
		breaker: NewCircuitBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout),
	}, nil
}

// Compare runs a comparison. Requests that save to history are never
// retried, so a lost response cannot store the comparison twice.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	var resp CompareResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/compare", nil, req, !req.Save, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export returns the diff table in format (csv or json).
func (c *Client) Export(ctx context.Context, req CompareRequest, format string) ([]byte, error) {
	query := url.Values{"format": {format}}
	var raw rawBody
	if err := c.do(ctx, http.MethodPost, "/api/v1/export", query, req, !req.Save, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Normalize validates one payload. An invalid payload is not an error: the
// result lists why it was rejected.
func (c *Client) Normalize(ctx context.Context, payload json.RawMessage, name string) (*insights.ValidationResult, error) {
	var query url.Values
	if name != "" {
		query = url.Values{"name": {name}}
	}

	var res insights.ValidationResult
	err := c.do(ctx, http.MethodPost, "/api/v1/normalize", query, payload, true, &res)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusBadRequest && apiErr.body != nil {
		if jsonErr := json.Unmarshal(apiErr.body, &res); jsonErr == nil {
			return &res, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// History lists saved comparisons, newest first. limit 0 uses the server
// default.
func (c *Client) History(ctx context.Context, limit int) ([]RecordSummary, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}

	var resp struct {
		Records []RecordSummary `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", query, nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) Record(ctx context.Context, id string) (*Record, error) {
	var record Record
	if err := c.do(ctx, http.MethodGet, "/api/v1/history/"+url.PathEscape(id), nil, nil, true, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/history/"+url.PathEscape(id), nil, nil, true, nil)
}

// Health returns the service status. An unhealthy service answers 503 with
// a status document, which is returned without error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, false, &status)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusServiceUnavailable && apiErr.body != nil {
		if jsonErr := json.Unmarshal(apiErr.body, &status); jsonErr == nil && status.Status != "" {
			return &status, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// BreakerStats exposes the circuit breaker counters.
func (c *Client) BreakerStats() CircuitBreakerStats {
	return c.breaker.Stats()
}

// rawBody receives a response body untouched.
type rawBody []byte

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, retry bool, out interface{}) error {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		payload = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	attempts := 1
	if retry {
		attempts += c.retry.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.retry.delay(attempt-1)); err != nil {
				return err
			}
		}

		if err := c.breaker.Allow(); err != nil {
			return err
		}

		lastErr = c.send(ctx, method, path, query, payload, out)
		if lastErr == nil {
			c.breaker.RecordSuccess()
			return nil
		}
		if !retryable(lastErr) {
			// the server answered; only its failures count against it
			c.breaker.RecordSuccess()
			return lastErr
		}
		c.breaker.RecordFailure()
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, out interface{}) error {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	logging.PropagateCorrelationID(ctx, req)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), body: data}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *rawBody:
		*dst = data
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}
