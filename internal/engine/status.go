package engine

import (
	"context"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// EvaluateStatus computes the step's current status from persisted state and
// live time checks. Evaluation order, first match wins: queued marker, then
// expiration, then never-started, then a recorded terminal outcome, then the
// kind's own condition
func (r *Run) EvaluateStatus(ctx context.Context) (api.Status, error) {
	persisted := r.metaStatus(api.MetaStepStatus(r.step.ID))

	if persisted == api.StatusQueued {
		return api.StatusQueued, nil
	}

	expired, err := r.IsExpired(ctx)
	if err != nil {
		return "", err
	}
	if expired && !isTerminalStatus(persisted) {
		return r.statusOnExpiration(), nil
	}

	if persisted == "" {
		return api.StatusPending, nil
	}

	// A finished step keeps reporting its recorded outcome; per-assignee
	// records are released at the end, so the kind cannot recompute it
	if isTerminalStatus(persisted) {
		return persisted, nil
	}

	return r.kind.EvaluateStatus(ctx, r)
}

// IsComplete reports whether the step has reached a terminal status
func (r *Run) IsComplete(ctx context.Context) (bool, error) {
	status, err := r.EvaluateStatus(ctx)
	if err != nil {
		return false, err
	}
	return isTerminalStatus(status), nil
}

// CanSetWorkflowStatus reports whether this step may overwrite the
// workflow-level current status record. Steps whose status vocabulary is
// exactly one complete entry have no alternate outcomes to report
func (r *Run) CanSetWorkflowStatus() bool {
	return !api.IsOnlyComplete(r.kind.StatusConfig())
}

// StatusConfig exposes the kind's declared status vocabulary
func (r *Run) StatusConfig() []api.StatusConfig {
	return r.kind.StatusConfig()
}

// persistStatus writes a status and its timestamp, guarded by the transition
// table so a concurrent invocation can never advance a step past completion
func (r *Run) persistStatus(ctx context.Context, status api.Status) error {
	current := r.metaStatus(api.MetaStepStatus(r.step.ID))
	if current != "" && !canAdvanceStatus(current, status) {
		return nil
	}

	key := api.MetaStepStatus(r.step.ID)
	if err := r.setMeta(ctx, key, string(status)); err != nil {
		return err
	}
	return r.setMeta(ctx, api.MetaStepStatusTimestamp(r.step.ID),
		api.FormatTimestamp(r.eng.Now()))
}
