package engine

import (
	"context"
	"strings"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// StepApproval is the step type tag for approval steps
const StepApproval api.StepType = "approval"

// ApprovalKind waits for its assignees to approve or reject the entry. Any
// rejection rejects the step; otherwise every assignee must approve
type ApprovalKind struct{}

func (*ApprovalKind) Type() api.StepType {
	return StepApproval
}

func (*ApprovalKind) Process(ctx context.Context, r *Run) (bool, error) {
	return r.Assign(ctx)
}

func (*ApprovalKind) EvaluateStatus(
	ctx context.Context, r *Run,
) (api.Status, error) {
	assignees, err := r.Assignees(ctx)
	if err != nil {
		return "", err
	}

	allApproved := true
	for _, a := range assignees {
		switch a.Status {
		case api.StatusRejected:
			return api.StatusRejected, nil
		case api.StatusApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return api.StatusApproved, nil
	}
	return api.StatusPending, nil
}

func (*ApprovalKind) StatusConfig() []api.StatusConfig {
	return []api.StatusConfig{
		{Status: api.StatusPending, Label: "Pending"},
		{Status: api.StatusApproved, Label: "Approved"},
		{Status: api.StatusRejected, Label: "Rejected"},
	}
}

func (*ApprovalKind) SupportsExpiration() bool {
	return true
}

// ValidateNote requires an explanation when rejecting; approvals may omit one
func (*ApprovalKind) ValidateNote(
	status api.Status, note string,
) (bool, string) {
	if status == api.StatusRejected && strings.TrimSpace(note) == "" {
		return false, "a note is required when rejecting"
	}
	return true, ""
}
