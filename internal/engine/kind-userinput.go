package engine

import (
	"context"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// StepUserInput is the step type tag for user input steps
const StepUserInput api.StepType = "user_input"

// UserInputKind waits for its assignees to update the entry and mark their
// part complete. A partial save parks the assignee at in_progress
type UserInputKind struct {
	BaseKind
}

func (*UserInputKind) Type() api.StepType {
	return StepUserInput
}

func (*UserInputKind) Process(ctx context.Context, r *Run) (bool, error) {
	return r.Assign(ctx)
}

func (*UserInputKind) EvaluateStatus(
	ctx context.Context, r *Run,
) (api.Status, error) {
	assignees, err := r.Assignees(ctx)
	if err != nil {
		return "", err
	}

	inProgress := false
	for _, a := range assignees {
		switch a.Status {
		case api.StatusComplete:
		case api.StatusInProgress:
			inProgress = true
		default:
			return api.StatusPending, nil
		}
	}
	if inProgress {
		return api.StatusInProgress, nil
	}
	return api.StatusComplete, nil
}

func (*UserInputKind) StatusConfig() []api.StatusConfig {
	return []api.StatusConfig{
		{Status: api.StatusPending, Label: "Pending"},
		{Status: api.StatusInProgress, Label: "In Progress"},
		{Status: api.StatusComplete, Label: "Complete"},
	}
}

func (*UserInputKind) SupportsExpiration() bool {
	return true
}
