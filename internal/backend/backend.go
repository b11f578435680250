// Package backend talks to the REST API that owns blog and forum data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hoppafit/website/internal/logging"
)

// StatusError is a non-2xx backend response. Body is kept verbatim so the
// proxy can replay it.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	Token  string
}

// Observer receives the outcome of every call. Status is 0 on transport errors.
type Observer interface {
	BackendRequest(ctx context.Context, method string, status int, elapsed time.Duration)
}

type Client struct {
	http.Client
	BaseURL  string
	Observer Observer
}

func New(baseURL string, timeout time.Duration, obs Observer) *Client {
	return &Client{
		Client:   http.Client{Timeout: timeout},
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Observer: obs,
	}
}

// Do sends req and returns the raw response body on success.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	u := c.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("backend: new request: %w", err)
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		hreq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	resp, err := c.Client.Do(hreq)
	if err != nil {
		c.observe(ctx, req.Method, 0, start)
		logging.FromContext(ctx).Errorw("backend request failed", "method", req.Method, "path", req.Path, "error", err)

		return nil, fmt.Errorf("backend %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.observe(ctx, req.Method, resp.StatusCode, start)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: read body: %w", req.Method, req.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.FromContext(ctx).Warnw("backend error response",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode, "body", string(raw))

		return nil, &StatusError{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Body: raw}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}

	return raw, nil
}

// Get is a convenience wrapper for public reads.
func (c *Client) Get(ctx context.Context, path string, query url.Values, token string) (json.RawMessage, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Token: token})
}

func (c *Client) observe(ctx context.Context, method string, status int, start time.Time) {
	if c.Observer != nil {
		c.Observer.BackendRequest(ctx, method, status, time.Since(start))
	}
}
