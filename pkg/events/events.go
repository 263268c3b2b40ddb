// Package events carries the structured notifications every state-changing
// operation emits for external observers.
package events

import (
	"context"
	"log/slog"
	"sync"
)

// Event is one notification: a kind, the key fields of the operation, and
// the operation's unix-seconds timestamp.
type Event struct {
	Kind   string         `json:"kind"`
	At     int64          `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Sink receives events. Emission is fire-and-forget: a sink must never fail
// the operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// LogSink writes events to a slog logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event", "kind", e.Kind, "at", e.At, "fields", e.Fields)
}

// Recorder keeps every emitted event in memory. Test helper.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns how many events of each kind were emitted.
func (r *Recorder) Kinds() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.events))
	for _, e := range r.events {
		out[e.Kind]++
	}
	return out
}

// Multi fans one event out to several sinks.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}
