// Package api implements the HTTP client for the lead-automation backend.
//
// Every call resolves to a typed result or an *Error; handled HTTP
// failures never surface as transport-level panics or untyped errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	// KindTransport means the request never produced an HTTP response
	// (connection refused, DNS failure, timeout, cancelled context).
	KindTransport ErrorKind = "transport"
	// KindServer means the backend answered with a non-2xx status.
	KindServer ErrorKind = "server"
)

// Error is the uniform failure type for all API calls.
// Status is the HTTP status code, or 0 for transport failures.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Kind == KindTransport {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// TokenProvider supplies the bearer token at call time. Tokens are never
// cached inside the client, so a re-login is picked up by the next call.
type TokenProvider interface {
	Token() string
}

// TokenFunc adapts a plain function to a TokenProvider.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client talks to the lead-automation backend.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
}

// New creates a Client for the given base URL. tokens may be nil for a
// client that only performs unauthenticated calls.
func New(baseURL string, tokens TokenProvider, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// do performs a request and decodes a JSON response body into out.
//
// A 2xx response with an empty or non-JSON body leaves out untouched
// and returns nil: "no data" is not an error. A non-2xx response yields
// a *Error with the server's message/detail field when one is present,
// or a generic fallback. A request that never reached the server yields
// a *Error with Status 0.
func (c *Client) do(ctx context.Context, method, path string, body, out any, requiresAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Message: fmt.Sprintf("encoding request: %v", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if requiresAuth && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("request failed with status %d", resp.StatusCode)
		var eb errorBody
		if jsonBody(resp, raw) && json.Unmarshal(raw, &eb) == nil {
			if eb.Message != "" {
				msg = eb.Message
			} else if eb.Detail != "" {
				msg = eb.Detail
			}
		}
		return &Error{Kind: KindServer, Message: msg, Status: resp.StatusCode}
	}

	if out != nil && jsonBody(resp, raw) {
		// Best-effort decode: an empty or malformed success body is
		// treated as "no data", matching the error contract above.
		_ = json.Unmarshal(raw, out)
	}
	return nil
}

func jsonBody(resp *http.Response, raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/json"
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out, true)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, true)
}
