package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AmplitudeSink sends events through the Amplitude HTTP V2 API and user
// properties through the Identify API.
type AmplitudeSink struct {
	APIKey string
	// BaseURL defaults to https://api2.amplitude.com.
	BaseURL string
	HTTP    *http.Client
}

type amplitudeEvent struct {
	EventType       string                 `json:"event_type"`
	UserID          string                 `json:"user_id,omitempty"`
	DeviceID        string                 `json:"device_id,omitempty"`
	Time            int64                  `json:"time,omitempty"`
	EventProperties map[string]interface{} `json:"event_properties,omitempty"`
	Platform        string                 `json:"platform,omitempty"`
	InsertID        string                 `json:"insert_id,omitempty"`
}

type amplitudeBatch struct {
	APIKey string           `json:"api_key"`
	Events []amplitudeEvent `json:"events"`
}

type amplitudeIdentify struct {
	UserID         string                 `json:"user_id,omitempty"`
	DeviceID       string                 `json:"device_id,omitempty"`
	UserProperties map[string]interface{} `json:"user_properties"`
}

func (s *AmplitudeSink) Name() string { return "amplitude" }

func (s *AmplitudeSink) Send(ctx context.Context, d Delivery) error {
	ev := amplitudeEvent{
		EventType:       d.Name,
		UserID:          d.UserID,
		DeviceID:        d.DeviceID,
		EventProperties: d.Properties,
		Platform:        d.Platform,
		InsertID:        d.InsertID,
	}
	if !d.Time.IsZero() {
		ev.Time = d.Time.UnixMilli()
	}

	return postJSON(ctx, s.HTTP, s.Name(), s.base()+"/2/httpapi", amplitudeBatch{
		APIKey: s.APIKey,
		Events: []amplitudeEvent{ev},
	})
}

// Identify applies the properties with the $set operation.
func (s *AmplitudeSink) Identify(ctx context.Context, id Identity) error {
	ident, err := json.Marshal([]amplitudeIdentify{{
		UserID:         id.UserID,
		DeviceID:       id.DeviceID,
		UserProperties: map[string]interface{}{"$set": id.Properties},
	}})
	if err != nil {
		return fmt.Errorf("analytics %s: encode identify: %w", s.Name(), err)
	}

	form := url.Values{
		"api_key":        {s.APIKey},
		"identification": {string(ident)},
	}

	return post(ctx, s.HTTP, s.Name(), s.base()+"/identify",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (s *AmplitudeSink) base() string {
	if s.BaseURL == "" {
		return "https://api2.amplitude.com"
	}

	return strings.TrimRight(s.BaseURL, "/")
}
