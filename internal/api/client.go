// Package api wraps outbound HTTP calls to the Padosi backend. It attaches
// the bearer credential on every request, decodes the backend's response
// envelope, and translates failures into the Transport/Http taxonomy the
// stores absorb at their boundaries.
//
// The client is the only layer allowed to trigger the forced-logout side
// effect, and only for a 401 received outside the authentication endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/models"
)

// TokenSource supplies the current bearer credential. The credential store
// implements it; the client reads it on every outbound request.
type TokenSource interface {
	AccessToken() string
}

// UnauthorizedHook is invoked once per 401 response received outside the
// auth endpoints, carrying the request path as the intended destination for
// post-login redirect. The session store wires its teardown into it.
type UnauthorizedHook func(intendedPath string)

// Envelope is the backend's uniform response shape. Data stays raw so each
// caller decodes its own payload type.
type Envelope struct {
	Success     bool               `json:"success"`
	Data        json.RawMessage    `json:"data"`
	Pagination  *models.Pagination `json:"pagination,omitempty"`
	UnreadCount *int               `json:"unread_count,omitempty"`
	Error       string             `json:"error,omitempty"`
	Message     string             `json:"message,omitempty"`
}

// DecodeData unmarshals the envelope's data payload into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Options configures a Client.
type Options struct {
	Timeout        time.Duration
	Tokens         TokenSource
	OnUnauthorized UnauthorizedHook
	Logger         *zap.SugaredLogger
	Metrics        *Metrics
	HTTPClient     *http.Client // overrides Timeout when set
}

// Client performs requests against the backend REST API.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedHook
	logger         *zap.SugaredLogger
	metrics        *Metrics
}

// NewClient creates a client for the API rooted at baseURL (including any
// /api prefix).
func NewClient(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           httpClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger,
		metrics:        opts.Metrics,
	}
}

// SetUnauthorizedHook installs the 401 teardown hook. Used during wiring:
// the session store needs the client, so the hook is attached after both
// exist.
func (c *Client) SetUnauthorizedHook(hook UnauthorizedHook) {
	c.onUnauthorized = hook
}

// isAuthPath reports whether path is a login/register endpoint, where a 401
// means bad credentials rather than an expired session.
func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/login") || strings.Contains(path, "/auth/register")
}

// Request issues an HTTP request and returns the decoded envelope. A nil
// error means a 2xx response whose payload was accepted. Failures come back
// as *Error: KindTransport when no response was received, KindHTTP
// otherwise (including 2xx responses the backend marked success=false).
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values) (*Envelope, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Message: "failed to encode request body", cause: err}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "invalid request", cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(method, 0, time.Since(start).Seconds())
		c.logger.Warnw("Request failed before response", "method", method, "path", path, "error", err)
		return nil, &Error{Kind: KindTransport, Message: "network error", cause: err}
	}
	defer resp.Body.Close()
	c.metrics.observe(method, resp.StatusCode, time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "failed to read response", cause: err}
	}

	var env Envelope
	if len(raw) > 0 {
		// Tolerate non-JSON bodies; status handling below still applies.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
		c.logger.Infow("Session rejected by backend", "path", path)
		if c.onUnauthorized != nil {
			c.onUnauthorized(path)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 403/404/429/500 are observed but not auto-handled; they propagate
		// to the calling store as typed failures.
		switch resp.StatusCode {
		case http.StatusForbidden:
			c.logger.Warnw("Access denied", "path", path)
		case http.StatusNotFound:
			c.logger.Warnw("Resource not found", "path", path)
		case http.StatusTooManyRequests:
			c.logger.Warnw("Rate limited", "path", path)
		default:
			if resp.StatusCode >= 500 {
				c.logger.Errorw("Server error", "path", path, "status", resp.StatusCode)
			}
		}
		return nil, &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: env.Error}
	}

	// 2xx but semantically rejected: surfaced like any HTTP failure.
	if !env.Success && env.Error != "" {
		return nil, &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: env.Error}
	}

	return &env, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.Request(ctx, http.MethodGet, path, nil, query)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, path, body, nil)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Request(ctx, http.MethodPut, path, body, nil)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Request(ctx, http.MethodPatch, path, body, nil)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}
