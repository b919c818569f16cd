package api

import "time"

type (
	// EventType names a workflow lifecycle event
	EventType string

	// Event is the record handed to the event log sink and fanned out to
	// live subscribers
	Event struct {
		ID        string    `json:"id"`
		Type      EventType `json:"type"`
		FormID    FormID    `json:"form_id"`
		EntryID   EntryID   `json:"entry_id"`
		StepID    StepID    `json:"step_id"`
		Status    Status    `json:"status,omitempty"`
		Assignee  string    `json:"assignee,omitempty"`
		Recipient string    `json:"recipient,omitempty"`
		Duration  int64     `json:"duration_ms,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}
)

const (
	// EventStepQueued is emitted when a scheduled step is recorded as queued
	EventStepQueued EventType = "step_queued"

	// EventStepStarted is emitted when a step begins processing
	EventStepStarted EventType = "step_started"

	// EventStepCompleted is emitted when a step finalizes, carrying the
	// elapsed duration since processing began
	EventStepCompleted EventType = "step_completed"

	// EventStepExpired is emitted when a step ends via its expiration
	// deadline
	EventStepExpired EventType = "step_expired"

	// EventAssigneeAdded is emitted when reconciliation adds an assignee
	EventAssigneeAdded EventType = "assignee_added"

	// EventAssigneeRemoved is emitted when reconciliation removes an
	// assignee
	EventAssigneeRemoved EventType = "assignee_removed"

	// EventAssigneeStatus is emitted when an assignee records a response
	EventAssigneeStatus EventType = "assignee_status"

	// EventNotificationSent is emitted after a successful delivery
	EventNotificationSent EventType = "notification_sent"
)
