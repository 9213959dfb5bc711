// Package gateway is the single outbound path to the risk-calculation
// backend. Every request carries the current credential; every response is
// observed for the two global failure signals (credential rejected,
// entitlement rejected) independently of the calling code.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RWilker87/lightning-client/internal/events"
)

const defaultHTTPTimeout = 30 * time.Second

const maxErrorBodyBytes int64 = 4096

// Gateway errors.
var (
	ErrCredentialRejected = errors.New("credential rejected by backend")
	ErrEntitlementDenied  = errors.New("entitlement denied by backend")
)

// CredentialSource returns the current bearer credential, or "" when logged
// out. It is consulted on every request, never cached at construction.
type CredentialSource func() string

// Navigator steers the client between routes when a global failure signal
// fires. Implementations must make Redirect idempotent at the entry point.
type Navigator interface {
	// AtEntry reports whether the client is already at the unauthenticated
	// entry point.
	AtEntry() bool
	// ToEntry steers the client to the unauthenticated entry point.
	ToEntry()
}

// Config configures the gateway client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP client for the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents an HTTP-level error from the backend.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request %s %s failed: status=%d body=%q", e.Method, e.Path, e.StatusCode, e.Body)
}

// Message returns the backend's human-readable error message when one was
// provided, falling back to the HTTP status text.
func (e *APIError) Message() string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return http.StatusText(e.StatusCode)
}

// NewClient creates a gateway client. The credential source is read on each
// request; bus and navigator receive the global failure reactions.
func NewClient(config Config, credential CredentialSource, bus *events.Bus, navigator Navigator) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway base URL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("gateway base URL %q: scheme must be http or https", config.BaseURL)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &authTransport{
				base:       http.DefaultTransport,
				credential: credential,
				bus:        bus,
				navigator:  navigator,
			},
		},
	}, nil
}

// do issues the request and decodes a JSON response body into destination
// (which may be nil for calls whose body is irrelevant).
func (c *Client) do(ctx context.Context, method, path string, body any, destination any) (err error) {
	request, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			wrapped := fmt.Errorf("close response body for %s %s: %w", method, path, closeErr)
			if err != nil {
				err = errors.Join(err, wrapped)
				return
			}
			err = wrapped
		}
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
		if readErr != nil {
			return fmt.Errorf("read error response body for %s %s: %w", method, path, readErr)
		}
		apiErr := &APIError{
			StatusCode: response.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(errorBody)),
		}
		switch response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrCredentialRejected, apiErr.Message())
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrEntitlementDenied, apiErr.Message())
		}
		return apiErr
	}

	if destination == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(destination); err != nil {
		return fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return request, nil
}

func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}
