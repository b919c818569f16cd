package engine

import (
	"context"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// StepNotification is the step type tag for notification steps
const StepNotification api.StepType = "notification"

// NotificationKind sends its configured notification and completes in the
// same invocation. Its vocabulary is the single complete status, so it never
// overwrites the workflow-level status record
type NotificationKind struct {
	BaseKind
}

func (*NotificationKind) Type() api.StepType {
	return StepNotification
}

func (*NotificationKind) Process(ctx context.Context, r *Run) (bool, error) {
	if _, err := r.Assign(ctx); err != nil {
		return false, err
	}
	if err := r.MaybeSendNotification(ctx, api.NotificationStep); err != nil {
		return false, err
	}
	return true, nil
}
