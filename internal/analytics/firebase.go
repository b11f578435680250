package analytics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// FirebaseSink sends events to Firebase Analytics through the GA4
// Measurement Protocol. The protocol has no standalone identify call, so
// user properties ride along with every event.
type FirebaseSink struct {
	MeasurementID string
	APISecret     string
	// Endpoint defaults to https://www.google-analytics.com/mp/collect.
	Endpoint string
	HTTP     *http.Client
}

type gaEvent struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type gaUserProperty struct {
	Value string `json:"value"`
}

type gaPayload struct {
	ClientID        string                    `json:"client_id"`
	UserID          string                    `json:"user_id,omitempty"`
	TimestampMicros int64                     `json:"timestamp_micros,omitempty"`
	UserProperties  map[string]gaUserProperty `json:"user_properties,omitempty"`
	Events          []gaEvent                 `json:"events"`
}

func (s *FirebaseSink) Name() string { return "firebase" }

func (s *FirebaseSink) Send(ctx context.Context, d Delivery) error {
	p := gaPayload{
		ClientID: d.DeviceID,
		UserID:   d.UserID,
		Events:   []gaEvent{{Name: d.Name, Params: d.Properties}},
	}
	if !d.Time.IsZero() {
		p.TimestampMicros = d.Time.UnixMicro()
	}
	if len(d.UserProperties) > 0 {
		p.UserProperties = make(map[string]gaUserProperty, len(d.UserProperties))
		for k, v := range d.UserProperties {
			p.UserProperties[k] = gaUserProperty{Value: fmt.Sprint(v)}
		}
	}

	return postJSON(ctx, s.HTTP, s.Name(), s.url(), p)
}

// Identify is a no-op: properties are attached to the next Send.
func (s *FirebaseSink) Identify(context.Context, Identity) error { return nil }

func (s *FirebaseSink) url() string {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = "https://www.google-analytics.com/mp/collect"
	}
	q := url.Values{
		"measurement_id": {s.MeasurementID},
		"api_secret":     {s.APISecret},
	}

	return endpoint + "?" + q.Encode()
}
