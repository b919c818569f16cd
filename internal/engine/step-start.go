package engine

import (
	"context"
	"log/slog"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// Start triggers one invocation of the step against the entry. The first
// invocation to record the step's first-seen timestamp wins the anchor; a
// not-yet-due schedule parks the step as queued and returns false. Otherwise
// the step begins processing and the return value reports whether it already
// reached a terminal status
func (r *Run) Start(ctx context.Context) (bool, error) {
	// A step that already ended reports complete without re-running its
	// kind; re-processing would resurrect released assignee records and
	// repeat notification sends
	if r.Ended() {
		slog.Debug("Step already ended",
			logStepAttrs(r)...)
		return true, nil
	}

	firstSeen, err := r.setMetaIfAbsent(
		ctx, api.MetaStepTimestamp(r.step.ID),
		api.FormatTimestamp(r.eng.Now()))
	if err != nil {
		return false, err
	}

	due, err := r.ValidateSchedule(ctx)
	if err != nil {
		return false, err
	}
	if !due {
		if err := r.persistStatus(ctx, api.StatusQueued); err != nil {
			return false, err
		}
		r.emit(api.EventStepQueued, api.Event{Status: api.StatusQueued})
		return false, nil
	}

	// The started timestamp anchors duration reporting and delay-based
	// expiration; a step coming out of the queue stamps it here, not at
	// first sight
	if _, ok := r.metaTimestamp(api.MetaStepStarted(r.step.ID)); !ok {
		if err := r.setMeta(
			ctx, api.MetaStepStarted(r.step.ID),
			api.FormatTimestamp(r.eng.Now()),
		); err != nil {
			return false, err
		}
	}

	if err := r.persistStatus(ctx, api.StatusPending); err != nil {
		return false, err
	}
	if err := r.setMeta(
		ctx, api.MetaWorkflowStep, string(r.step.ID),
	); err != nil {
		return false, err
	}

	if firstSeen {
		r.emit(api.EventStepStarted, api.Event{Status: api.StatusPending})
	} else {
		slog.Debug("Step re-entered",
			logStepAttrs(r)...)
	}

	return r.kind.Process(ctx, r)
}

func logStepAttrs(r *Run) []any {
	return []any{
		slog.String("step_id", string(r.step.ID)),
		slog.String("entry_id", string(r.entryID)),
		slog.String("invocation_id", r.invocationID),
	}
}
