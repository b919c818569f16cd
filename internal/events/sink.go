package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

// LogSink is the default event log sink. Every event is written as a
// structured log entry and published to the hub for live subscribers
type LogSink struct {
	hub *Hub
}

// NewLogSink creates a sink that writes to slog and fans out through hub.
// A nil hub is allowed; events are then only logged
func NewLogSink(hub *Hub) *LogSink {
	return &LogSink{hub: hub}
}

// Log records a workflow event. Missing IDs and timestamps are filled in
func (s *LogSink) Log(ev *api.Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		slog.String("event", string(ev.Type)),
		log.FormID(ev.FormID),
		log.EntryID(ev.EntryID),
		log.StepID(ev.StepID),
	}
	if ev.Status != "" {
		attrs = append(attrs, log.Status(ev.Status))
	}
	if ev.Assignee != "" {
		attrs = append(attrs, log.Assignee(ev.Assignee))
	}
	if ev.Duration > 0 {
		attrs = append(attrs, slog.Int64("duration_ms", ev.Duration))
	}
	slog.Info("Workflow event", attrs...)

	if s.hub != nil {
		s.hub.Publish(ev)
	}
}
