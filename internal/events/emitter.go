package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event represents a single NDJSON record.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
type Emitter struct {
	writer io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithoutTimestamps leaves Timestamp unset so identical runs produce identical output.
func WithoutTimestamps() Option {
	return func(e *Emitter) { e.now = nil }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.now = now }
}

// NewEmitter returns a new NDJSON emitter that stamps events with the current UTC time.
func NewEmitter(w io.Writer, opts ...Option) *Emitter {
	e := &Emitter{writer: w, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp == nil && e.now != nil {
		ts := e.now()
		evt.Timestamp = &ts
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}
