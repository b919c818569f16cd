package api

import "time"

type (
	// AssigneeRecord is the archived snapshot of one assignee's final state
	AssigneeRecord struct {
		Type   AssigneeType `json:"type"`
		ID     string       `json:"id"`
		Status Status       `json:"status,omitempty"`
	}

	// RunRecord is the archived summary of a completed step run
	RunRecord struct {
		InvocationID string           `json:"invocation_id"`
		FormID       FormID           `json:"form_id"`
		EntryID      EntryID          `json:"entry_id"`
		StepID       StepID           `json:"step_id"`
		StepName     string           `json:"step_name,omitempty"`
		Status       Status           `json:"status"`
		NextStepID   NextStep         `json:"next_step_id,omitempty"`
		Assignees    []AssigneeRecord `json:"assignees,omitempty"`
		StartedAt    time.Time        `json:"started_at,omitempty"`
		CompletedAt  time.Time        `json:"completed_at"`
		DurationMs   int64            `json:"duration_ms"`
	}
)
