package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Delivery is an event addressed to one visitor.
type Delivery struct {
	Event
	UserID         string
	DeviceID       string
	InsertID       string
	Platform       string
	Time           time.Time
	UserProperties map[string]interface{}
}

// Identity sets user properties for a visitor.
type Identity struct {
	UserID     string
	DeviceID   string
	Properties map[string]interface{}
}

// Sink is an analytics provider.
type Sink interface {
	Name() string
	Send(ctx context.Context, d Delivery) error
	Identify(ctx context.Context, id Identity) error
}

// SinkError is a provider rejecting a request.
type SinkError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("analytics %s: status %d: %s", e.Sink, e.StatusCode, e.Body)
}

func post(ctx context.Context, client *http.Client, sink, url, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("analytics %s: new request: %w", sink, err)
	}
	req.Header.Set("Content-Type", contentType)

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics %s: %w", sink, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))

		return &SinkError{Sink: sink, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func postJSON(ctx context.Context, client *http.Client, sink, url string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("analytics %s: encode: %w", sink, err)
	}

	return post(ctx, client, sink, url, "application/json", bytes.NewReader(raw))
}
