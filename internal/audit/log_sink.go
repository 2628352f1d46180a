package audit

import (
	"context"

	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/models"
)

// LogSink writes audit events as structured log lines.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink returns a Sink that logs through log with an "audit" component.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.Component("audit")}
}

func (s *LogSink) Record(_ context.Context, e models.AuditEvent) {
	ev := s.logger.Info()
	if e.Outcome == models.AuditFailure {
		ev = s.logger.Warn()
	}

	ev.Str("event_id", e.ID).
		Str("action", string(e.Action)).
		Str("outcome", string(e.Outcome)).
		Time("at", e.Timestamp)

	if e.Username != "" {
		ev.Str("username", e.Username)
	}
	if e.UserID != 0 {
		ev.Int64("user_id", e.UserID)
	}
	if e.Actor != "" {
		ev.Str("actor", e.Actor)
	}
	if e.Subject != "" {
		ev.Str("subject", e.Subject)
	}
	if e.Reason != "" {
		ev.Str("reason", e.Reason)
	}

	ev.Msg("audit")
}
