package api

type (
	// NotificationType scopes a notification to the lifecycle moment that
	// produced it
	NotificationType string

	// NotificationSettings is the per-type template configured on a step
	NotificationSettings struct {
		Enabled           bool   `json:"enabled"`
		From              string `json:"from,omitempty"`
		FromName          string `json:"from_name,omitempty"`
		ReplyTo           string `json:"reply_to,omitempty"`
		BCC               string `json:"bcc,omitempty"`
		Subject           string `json:"subject,omitempty"`
		Message           string `json:"message,omitempty"`
		AttachDocument    bool   `json:"attach_document,omitempty"`
		DisableAutoformat bool   `json:"disable_autoformat,omitempty"`
	}

	// Notification is the assembled outbound object handed to the transport
	Notification struct {
		Type              NotificationType `json:"type"`
		To                string           `json:"to,omitempty"`
		From              string           `json:"from"`
		FromName          string           `json:"from_name"`
		ReplyTo           string           `json:"reply_to,omitempty"`
		BCC               string           `json:"bcc,omitempty"`
		Subject           string           `json:"subject"`
		Message           string           `json:"message"`
		Attachments       []string         `json:"attachments,omitempty"`
		DisableAutoformat bool             `json:"disable_autoformat,omitempty"`
	}
)

const (
	NotificationAssignee  NotificationType = "assignee"
	NotificationApproval  NotificationType = "approval"
	NotificationRejection NotificationType = "rejection"
	NotificationExpired   NotificationType = "expired"
	NotificationStep      NotificationType = "step"
)
