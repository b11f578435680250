// Package analytics fans visitor events out to Amplitude and Firebase
// Analytics, gated on the visitor's cookie consent.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// FailureObserver is told about every send a sink rejected.
type FailureObserver interface {
	SinkFailure(ctx context.Context, sink string)
}

type Options struct {
	// Enabled is the global feature flag. A disabled dispatcher never
	// initializes a tracker.
	Enabled  bool
	Platform string
	// Timeout bounds each sink call. Zero means 5s.
	Timeout  time.Duration
	Logger   *zap.SugaredLogger
	Observer FailureObserver
}

// Dispatcher owns the sinks. Every delivery goes to every sink on its own
// goroutine; sink failures are logged and counted, never returned.
type Dispatcher struct {
	sinks    []Sink
	enabled  bool
	platform string
	timeout  time.Duration
	log      *zap.SugaredLogger
	observer FailureObserver

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:    sinks,
		enabled:  opts.Enabled,
		platform: opts.Platform,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		observer: opts.Observer,
	}
	if d.platform == "" {
		d.platform = "web"
	}
	if d.timeout <= 0 {
		d.timeout = 5 * time.Second
	}
	if d.log == nil {
		d.log = zap.NewNop().Sugar()
	}

	return d
}

func (d *Dispatcher) Enabled() bool    { return d.enabled }
func (d *Dispatcher) Platform() string { return d.platform }

// Dispatch hands d to every sink. It returns immediately.
func (d *Dispatcher) Dispatch(del Delivery) {
	d.fanOut("send", func(ctx context.Context, s Sink) error { return s.Send(ctx, del) })
}

// Identify hands id to every sink. It returns immediately.
func (d *Dispatcher) Identify(id Identity) {
	d.fanOut("identify", func(ctx context.Context, s Sink) error { return s.Identify(ctx, id) })
}

func (d *Dispatcher) fanOut(op string, call func(ctx context.Context, s Sink) error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return
	}
	d.wg.Add(len(d.sinks))
	d.mu.Unlock()

	for _, s := range d.sinks {
		go func(s Sink) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := call(ctx, s); err != nil {
				d.log.Warnw("analytics sink failed", "sink", s.Name(), "op", op, "error", err)
				if d.observer != nil {
					d.observer.SinkFailure(ctx, s.Name())
				}
			}
		}(s)
	}
}

// Close stops accepting deliveries and waits for in-flight sends.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}

// Tracker is one visitor's view of analytics: their consent, device id
// and, once signed in, user id. Nothing is sent until the tracker is
// initialized, which needs both the feature flag and consent.
type Tracker struct {
	d        *Dispatcher
	consent  ConsentStore
	deviceID string

	initialized atomic.Bool

	mu     sync.Mutex
	userID string
	props  map[string]interface{}
}

// Tracker returns a tracker for the visitor identified by deviceID.
func (d *Dispatcher) Tracker(consent ConsentStore, deviceID string) *Tracker {
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	return &Tracker{d: d, consent: consent, deviceID: deviceID}
}

func (t *Tracker) DeviceID() string { return t.deviceID }

func (t *Tracker) Initialized() bool { return t.initialized.Load() }

// HasConsent reports whether the visitor has granted consent.
func (t *Tracker) HasConsent() bool {
	return t.consent != nil && t.consent.Consent() == ConsentGranted
}

// Init initializes the tracker when analytics is enabled and the visitor
// has consented, and identifies the platform to the sinks the first time.
// It is idempotent and reports the resulting state.
func (t *Tracker) Init() bool {
	if !t.initialize() {
		return t.Initialized()
	}

	t.d.Identify(Identity{
		UserID:     t.UserID(),
		DeviceID:   t.deviceID,
		Properties: map[string]interface{}{"platform": t.d.platform},
	})

	return true
}

// Resume initializes the tracker of a visitor whose consent was granted
// earlier and who has already been identified. It sends nothing.
func (t *Tracker) Resume() bool {
	t.initialize()

	return t.Initialized()
}

// initialize reports whether this call moved the tracker to initialized.
func (t *Tracker) initialize() bool {
	if !t.d.enabled || !t.HasConsent() {
		return false
	}

	return t.initialized.CAS(false, true)
}

// SetConsent persists the choice. A grant from a visitor who had not
// consented before initializes and identifies; a repeated grant resumes.
func (t *Tracker) SetConsent(granted bool) error {
	if t.consent == nil {
		return nil
	}
	already := t.HasConsent()
	if err := t.consent.SetConsent(granted); err != nil {
		return err
	}
	switch {
	case granted && already:
		t.Resume()
	case granted:
		t.Init()
	}

	return nil
}

// Track sends e to every sink. It is a no-op until initialized.
func (t *Tracker) Track(e Event) bool {
	if !t.Initialized() {
		return false
	}

	props := make(map[string]interface{}, len(e.Properties)+1)
	for k, v := range e.Properties {
		props[k] = v
	}
	props["platform"] = t.d.platform

	t.mu.Lock()
	del := Delivery{
		Event:          Event{Name: e.Name, Properties: props},
		UserID:         t.userID,
		DeviceID:       t.deviceID,
		InsertID:       uuid.NewString(),
		Platform:       t.d.platform,
		Time:           time.Now(),
		UserProperties: copyProps(t.props),
	}
	t.mu.Unlock()

	t.d.Dispatch(del)

	return true
}

// SetUserID attaches id to later events. An empty id reverts the visitor
// to anonymous.
func (t *Tracker) SetUserID(id string) {
	if !t.Initialized() {
		return
	}

	t.mu.Lock()
	t.userID = id
	if id == "" {
		t.props = nil
	}
	t.mu.Unlock()
}

func (t *Tracker) UserID() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.userID
}

// SetUserProperties merges props into the visitor's properties and pushes
// them to the sinks.
func (t *Tracker) SetUserProperties(props map[string]interface{}) {
	if !t.Initialized() || len(props) == 0 {
		return
	}

	t.mu.Lock()
	if t.props == nil {
		t.props = make(map[string]interface{}, len(props))
	}
	for k, v := range props {
		t.props[k] = v
	}
	id := Identity{UserID: t.userID, DeviceID: t.deviceID, Properties: copyProps(props)}
	t.mu.Unlock()

	t.d.Identify(id)
}

func copyProps(in map[string]interface{}) map[string]interface{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
