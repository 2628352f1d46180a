// Package audit records structured events for every authentication attempt
// and every security-relevant mutation. Events are delivered to an injected
// [Sink]; there is no process-wide audit logger.
package audit

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/utils"
	"github.com/MKhiriev/go-license-keeper/models"
)

//go:generate mockgen -source=audit.go -destination=../mock/audit_mock.go -package=mock

// Sink receives audit events. Implementations must be safe for concurrent
// use and must not block for long; they are called while the store lock is
// held.
type Sink interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// Auditor stamps events with an identifier, a timestamp and the actor taken
// from the context before handing them to a Sink.
type Auditor struct {
	sink  Sink
	clock clock.Clock
	ids   *utils.UUIDGenerator
}

// NewAuditor returns an Auditor writing to sink. A nil sink discards events.
func NewAuditor(sink Sink, clk clock.Clock) *Auditor {
	if sink == nil {
		sink = Nop()
	}
	return &Auditor{sink: sink, clock: clk, ids: utils.NewUUIDGenerator()}
}

// Record completes event and passes it to the sink.
func (a *Auditor) Record(ctx context.Context, event models.AuditEvent) {
	if event.ID == "" {
		event.ID = a.ids.Generate()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.clock.Now().UTC()
	}
	if event.Actor == "" {
		if actor, ok := utils.GetActorFromContext(ctx); ok {
			event.Actor = actor
		}
	}
	a.sink.Record(ctx, event)
}

// Success records a successful action.
func (a *Auditor) Success(ctx context.Context, action models.AuditAction, event models.AuditEvent) {
	event.Action = action
	event.Outcome = models.AuditSuccess
	a.Record(ctx, event)
}

// Failure records a failed action with err as the reason.
func (a *Auditor) Failure(ctx context.Context, action models.AuditAction, event models.AuditEvent, err error) {
	event.Action = action
	event.Outcome = models.AuditFailure
	if err != nil && event.Reason == "" {
		event.Reason = err.Error()
	}
	a.Record(ctx, event)
}

type nopSink struct{}

func (nopSink) Record(context.Context, models.AuditEvent) {}

// Nop returns a Sink that drops every event.
func Nop() Sink {
	return nopSink{}
}

type multiSink []Sink

// Multi fans every event out to all sinks in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Record(ctx context.Context, event models.AuditEvent) {
	for _, s := range m {
		s.Record(ctx, event)
	}
}

// Recorder keeps events in memory. It is handy in tests and for showing the
// most recent activity.
type Recorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
	limit  int
}

// NewRecorder returns a Recorder keeping at most limit events; zero means
// unlimited.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Record(_ context.Context, event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append(r.events[:0:0], r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEvent(nil), r.events...)
}

// Filter returns the recorded events with the given action.
func (r *Recorder) Filter(action models.AuditAction) []models.AuditEvent {
	var out []models.AuditEvent
	for _, e := range r.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
