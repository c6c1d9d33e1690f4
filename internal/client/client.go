// Package client is a typed Go client for the relay's REST API. Wallet
// backends and scripts use it instead of hand-rolling HTTP calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cyphera/delegation-relay/internal/handlers"
)

// APIError carries a non-2xx response through to the caller.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries           int
	InitialInterval      time.Duration
	MaxInterval          time.Duration
	Multiplier           float64
	MaxElapsedTime       time.Duration
	RetryableStatusCodes []int
}

// DefaultRetryConfig retries transient failures a few times with
// exponential backoff. Broadcast submissions go through the relay's own
// single-attempt policy; retrying here only re-presents the request.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:           3,
		InitialInterval:      100 * time.Millisecond,
		MaxInterval:          5 * time.Second,
		Multiplier:           2.0,
		MaxElapsedTime:       30 * time.Second,
		RetryableStatusCodes: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// Client talks to a delegation relay instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      *RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithRetryConfig overrides the retry policy. Nil disables retries.
func WithRetryConfig(cfg *RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a client for the relay at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks whether the relay is up.
func (c *Client) Health(ctx context.Context) error {
	var resp handlers.HealthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &resp)
}

// BuildAuthorization asks the relay to sign an authorization with its
// configured authority key. Only available on relays running in demo
// mode with a server-side authority.
func (c *Client) BuildAuthorization(ctx context.Context, req handlers.BuildAuthorizationRequest) (handlers.BuildAuthorizationResponse, error) {
	var resp handlers.BuildAuthorizationResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/authorizations", req, &resp)
	return resp, err
}

// SubmitDelegation submits a client-signed authorization for sponsored
// broadcast.
func (c *Client) SubmitDelegation(ctx context.Context, req handlers.SubmitDelegationRequest) (handlers.SubmitDelegationResponse, error) {
	var resp handlers.SubmitDelegationResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/delegations", req, &resp)
	return resp, err
}

// RevokeDelegation clears the relay authority's delegation.
func (c *Client) RevokeDelegation(ctx context.Context) (handlers.SubmitDelegationResponse, error) {
	var resp handlers.SubmitDelegationResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/delegations/revoke", struct{}{}, &resp)
	return resp, err
}

// BatchHash returns the signing digest for a batch request.
func (c *Client) BatchHash(ctx context.Context, req handlers.BatchHashRequest) (handlers.HashResponse, error) {
	var resp handlers.HashResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/executor/hashes/batch", req, &resp)
	return resp, err
}

// AdminChangeHash returns the signing digest for an admin rotation.
func (c *Client) AdminChangeHash(ctx context.Context, req handlers.AdminChangeHashRequest) (handlers.HashResponse, error) {
	var resp handlers.HashResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/executor/hashes/admin", req, &resp)
	return resp, err
}

// CallerUpdateHash returns the signing digest for an allow-list update.
func (c *Client) CallerUpdateHash(ctx context.Context, req handlers.CallerUpdateHashRequest) (handlers.HashResponse, error) {
	var resp handlers.HashResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/executor/hashes/callers", req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}
	url := c.baseURL + path

	attempt := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Method:     method,
				URL:        url,
				Body:       string(bodyBytes),
			}
			if c.isRetryable(resp.StatusCode) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	}

	if c.retry == nil || c.retry.MaxRetries <= 0 {
		err := attempt()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retry.InitialInterval
	expBackoff.MaxInterval = c.retry.MaxInterval
	expBackoff.Multiplier = c.retry.Multiplier
	expBackoff.MaxElapsedTime = c.retry.MaxElapsedTime

	return backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(expBackoff, uint64(c.retry.MaxRetries)), ctx))
}

func (c *Client) isRetryable(statusCode int) bool {
	for _, code := range c.retry.RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}
