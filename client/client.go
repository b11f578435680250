// Package client is the site's data layer over its same-origin /api. Reads
// are cached by tag; writes invalidate the tags they affect, and every
// watched read holding one of those tags is fetched again.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hoppafit/website/internal/cachetag"
)

// TokenSource supplies the bearer token for a request. An empty token sends
// the request anonymously. identity.Session implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	http.Client
	// Addr is the site origin, e.g. http://localhost:3333.
	Addr   string
	Tokens TokenSource
	Cache  *cachetag.Store
}

// New returns a client for the site at addr. opts configure its cache.
func New(addr string, tokens TokenSource, opts ...cachetag.Option) *Client {
	return &Client{
		Addr:   strings.TrimRight(addr, "/"),
		Tokens: tokens,
		Cache:  cachetag.New(opts...),
	}
}

const networkMessage = "Network error. Please check your connection."

// APIError is a failed call. Message is safe to show to the visitor.
type APIError struct {
	Method     string
	Path       string
	StatusCode int // 0 when the request never completed
	Message    string
	Body       json.RawMessage
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}

	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

type call struct {
	method string
	path   string
	query  url.Values
	body   interface{}
}

// do sends c under /api and decodes a successful response into out, which
// may be nil.
func (c *Client) do(ctx context.Context, rc call, out interface{}) error {
	u := c.Addr + "/api" + rc.path
	if len(rc.query) > 0 {
		u += "?" + rc.query.Encode()
	}

	var body io.Reader
	if rc.body != nil {
		raw, err := json.Marshal(rc.body)
		if err != nil {
			return fmt.Errorf("client: encode %s: %w", rc.path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, u, body)
	if err != nil {
		return fmt.Errorf("client: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		// A failed token lookup sends the request anonymously.
		if tok, err := c.Tokens.Token(ctx); err == nil && tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return &APIError{Method: rc.method, Path: rc.path, Message: networkMessage, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Method: rc.method, Path: rc.path, Message: networkMessage, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     rc.method,
			Path:       rc.path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, raw),
			Body:       raw,
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", rc.path, err)
	}

	return nil
}

// errorMessage digs the displayable text out of an {"error": ...} body,
// where the value is a string or an object with a message.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}

	return http.StatusText(status)
}

// Ping checks that the site is up.
func (c *Client) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Addr+"/ping", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
