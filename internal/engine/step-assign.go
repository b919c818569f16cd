package engine

import (
	"context"
	"log/slog"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

// Assign materializes the step's resolved assignees into persisted
// per-assignee records and reports the step's resulting completion state.
// A step with no resolvable assignees has nobody to wait for and reports
// complete. The first invocation to record an assignee wins and sends the
// assignee notification; later passes observe the record and do nothing,
// so re-triggering a step never re-notifies
func (r *Run) Assign(ctx context.Context) (bool, error) {
	assignees, err := r.Assignees(ctx)
	if err != nil {
		return false, err
	}
	if len(assignees) == 0 {
		slog.Info("Step resolved no assignees",
			log.StepID(r.step.ID),
			log.EntryID(r.entryID))
		return true, nil
	}

	for _, a := range assignees {
		key := api.MetaAssigneeStatus(a.Type, a.ID, r.step.ID)
		won, err := r.setMetaIfAbsent(ctx, key, string(api.StatusPending))
		if err != nil {
			return false, err
		}
		if !won {
			continue
		}

		tsKey := api.MetaAssigneeStatusTimestamp(a.Type, a.ID, r.step.ID)
		if err := r.setMeta(
			ctx, tsKey, api.FormatTimestamp(r.eng.Now()),
		); err != nil {
			return false, err
		}

		r.emit(api.EventAssigneeAdded, api.Event{Assignee: a.Key()})
		if err := r.MaybeSendAssigneeNotification(ctx, a); err != nil {
			return false, err
		}
	}
	return r.IsComplete(ctx)
}
