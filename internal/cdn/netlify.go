// Package cdn purges edge-cached pages on Netlify.
package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultEndpoint = "https://api.netlify.com/api/v1/purge"

var ErrNotConfigured = errors.New("cdn: netlify site id or token not set")

// Netlify purges cache tags through the Netlify purge API. Site paths are
// used as cache tags.
type Netlify struct {
	Endpoint string
	SiteID   string
	Token    string
	HTTP     *http.Client
}

func NewNetlify(endpoint, siteID, token string) *Netlify {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Netlify{
		Endpoint: endpoint,
		SiteID:   siteID,
		Token:    token,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

type purgeRequest struct {
	SiteID    string   `json:"site_id"`
	CacheTags []string `json:"cache_tags"`
}

func (n *Netlify) Purge(ctx context.Context, paths []string) error {
	if n.SiteID == "" || n.Token == "" {
		return ErrNotConfigured
	}

	raw, err := json.Marshal(purgeRequest{SiteID: n.SiteID, CacheTags: paths})
	if err != nil {
		return fmt.Errorf("cdn: encode purge: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("cdn: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.Token)

	client := n.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("cdn: purge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))

		return fmt.Errorf("cdn: purge: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
