// Package apiclient is the Go client of the SoloDesk REST API. It is used by
// the template editor and the deskctl command.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

const defaultTimeout = 15 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// envelope is the response body shape of every API route.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client talks to the API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	// DemoMode makes a 404 from the template endpoints count as a successful
	// save that persisted nothing. When false a 404 is returned as an error.
	DemoMode bool

	mu      sync.Mutex
	profile *templating.Profile
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithDemoMode(enabled bool) Option {
	return func(c *Client) { c.DemoMode = enabled }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     &http.Client{Timeout: defaultTimeout},
		DemoMode: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends a JSON request and decodes the data member of the response
// envelope into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = firstNonEmpty(env.Error, env.Message)
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, decodeErr)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: firstNonEmpty(env.Error, env.Message, "request was not successful")}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data from %s: %w", path, err)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Profile returns the business profile used to render templates. Any failure
// is logged and the mock profile is returned instead so that the editor stays
// usable before the profile is set up. A successful result is cached until
// InvalidateProfile is called.
func (c *Client) Profile(ctx context.Context) templating.Profile {
	c.mu.Lock()
	if c.profile != nil {
		p := *c.profile
		c.mu.Unlock()
		return p
	}
	c.mu.Unlock()

	var p templating.Profile
	if err := c.do(ctx, http.MethodGet, "/api/users/email-template-data", nil, nil, &p); err != nil {
		log.Printf("Failed to load profile, using mock profile: %v", err)
		return templating.MockProfile()
	}

	c.mu.Lock()
	c.profile = &p
	c.mu.Unlock()
	return p
}

// InvalidateProfile drops the cached profile.
func (c *Client) InvalidateProfile() {
	c.mu.Lock()
	c.profile = nil
	c.mu.Unlock()
}

// UpdateProfile stores p as the user's profile and refreshes the cache.
func (c *Client) UpdateProfile(ctx context.Context, p templating.Profile) (templating.Profile, error) {
	var updated templating.Profile
	if err := c.do(ctx, http.MethodPut, "/api/users/profile", nil, p, &updated); err != nil {
		return templating.Profile{}, err
	}
	c.mu.Lock()
	c.profile = &updated
	c.mu.Unlock()
	return updated, nil
}

// Ping checks that the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil, nil)
}
