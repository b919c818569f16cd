package engine

import (
	"context"
	"log/slog"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

// End finalizes the step run. The final status is evaluated once and
// persisted, per-assignee records are released, and the workflow-level
// current status is updated for kinds with more than one possible outcome.
// The returned destination is the step's configured next step, defaulting to
// the symbolic next
func (r *Run) End(ctx context.Context) (api.NextStep, error) {
	status, err := r.EvaluateStatus(ctx)
	if err != nil {
		return "", err
	}

	expired, err := r.IsExpired(ctx)
	if err != nil {
		return "", err
	}

	if err := r.persistStatus(ctx, status); err != nil {
		return "", err
	}

	started, hasStarted := r.metaTimestamp(api.MetaStepStarted(r.step.ID))
	completedAt := r.eng.Now()
	var duration int64
	if hasStarted {
		duration = completedAt.Sub(started).Milliseconds()
	}

	assignees, err := r.Assignees(ctx)
	if err != nil {
		return "", err
	}
	if err := r.releaseAssignees(ctx); err != nil {
		return "", err
	}

	if r.CanSetWorkflowStatus() {
		if err := r.setMeta(
			ctx, api.MetaCurrentStatus, string(status),
		); err != nil {
			return "", err
		}
		if err := r.setMeta(
			ctx, api.MetaCurrentStatusTimestamp,
			api.FormatTimestamp(completedAt),
		); err != nil {
			return "", err
		}
	}

	if expired {
		r.emit(api.EventStepExpired, api.Event{
			Status:   status,
			Duration: duration,
		})
		if err := r.MaybeSendNotification(
			ctx, api.NotificationExpired,
		); err != nil {
			return "", err
		}
	} else {
		r.emit(api.EventStepCompleted, api.Event{
			Status:   status,
			Duration: duration,
		})
	}

	slog.Info("Step ended",
		log.StepID(r.step.ID),
		log.EntryID(r.entryID),
		log.Status(status),
		slog.Int64("duration_ms", duration))

	next := r.NextStepID()
	if next == api.NextStepComplete {
		if err := r.deleteMeta(ctx, api.MetaWorkflowStep); err != nil {
			return "", err
		}
	}

	if r.eng.archiver != nil {
		rec := &api.RunRecord{
			InvocationID: r.invocationID,
			FormID:       r.step.FormID,
			EntryID:      r.entryID,
			StepID:       r.step.ID,
			StepName:     r.step.Name,
			Status:       status,
			NextStepID:   next,
			StartedAt:    started,
			CompletedAt:  completedAt,
			DurationMs:   duration,
		}
		for _, a := range assignees {
			rec.Assignees = append(rec.Assignees, api.AssigneeRecord{
				Type:   a.Type,
				ID:     a.ID,
				Status: a.Status,
			})
		}
		if err := r.eng.archiver.ArchiveRun(ctx, rec); err != nil {
			slog.Warn("Run archival failed",
				log.StepID(r.step.ID),
				log.EntryID(r.entryID),
				log.Error(err))
		}
	}

	return next, nil
}

// Ended reports whether a terminal status has already been persisted for
// the step. An ended step must not be finalized again; its per-assignee
// records were released and its completion side effects already happened
func (r *Run) Ended() bool {
	return isTerminalStatus(r.metaStatus(api.MetaStepStatus(r.step.ID)))
}

// EndIfComplete finalizes the step only when it has reached a terminal
// status and has not been finalized before. It returns the destination and
// whether finalization happened in this call
func (r *Run) EndIfComplete(ctx context.Context) (api.NextStep, bool, error) {
	if r.Ended() {
		return r.NextStepID(), false, nil
	}
	complete, err := r.IsComplete(ctx)
	if err != nil {
		return "", false, err
	}
	if !complete {
		return "", false, nil
	}
	next, err := r.End(ctx)
	if err != nil {
		return "", false, err
	}
	return next, true, nil
}

// NextStepID resolves the step's configured destination, defaulting to the
// symbolic next step in form order
func (r *Run) NextStepID() api.NextStep {
	if r.step.Settings.NextStepID == "" {
		return api.NextStepNext
	}
	return r.step.Settings.NextStepID
}
