package helpers

import (
	"github.com/google/uuid"

	"github.com/turnstilehq/turnstile/internal/engine"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// NewApprovalStep creates an active approval step assigned to the given
// user IDs
func NewApprovalStep(formID api.FormID, userIDs ...string) *api.Step {
	refs := make([]api.AssigneeRef, len(userIDs))
	for i, id := range userIDs {
		refs[i] = api.AssigneeRef{Type: api.AssigneeUser, ID: id}
	}
	return &api.Step{
		ID:     api.StepID("approval-" + uuid.New().String()[:8]),
		Type:   engine.StepApproval,
		FormID: formID,
		Name:   "Approval",
		Active: true,
		Settings: api.StepSettings{
			Assignment: api.AssignmentSettings{
				Mode:      api.AssignmentSelect,
				Assignees: refs,
			},
		},
	}
}

// NewUserInputStep creates an active user input step assigned to the given
// user IDs
func NewUserInputStep(formID api.FormID, userIDs ...string) *api.Step {
	step := NewApprovalStep(formID, userIDs...)
	step.ID = api.StepID("input-" + uuid.New().String()[:8])
	step.Type = engine.StepUserInput
	step.Name = "User Input"
	return step
}

// NewNotificationStep creates an active notification step with the step
// notification enabled for the given user IDs
func NewNotificationStep(formID api.FormID, userIDs ...string) *api.Step {
	step := NewApprovalStep(formID, userIDs...)
	step.ID = api.StepID("notify-" + uuid.New().String()[:8])
	step.Type = engine.StepNotification
	step.Name = "Notification"
	step.Settings.Notifications = map[api.NotificationType]*api.NotificationSettings{
		api.NotificationStep: {
			Enabled: true,
			Subject: "Heads up",
			Message: "Something happened",
		},
	}
	return step
}

// WithNotification enables a notification type on a step
func WithNotification(
	step *api.Step, typ api.NotificationType, n *api.NotificationSettings,
) *api.Step {
	if step.Settings.Notifications == nil {
		step.Settings.Notifications =
			map[api.NotificationType]*api.NotificationSettings{}
	}
	n.Enabled = true
	step.Settings.Notifications[typ] = n
	return step
}
