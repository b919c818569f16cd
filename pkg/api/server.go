package api

type (
	// ErrorResponse is the standard error envelope returned by the HTTP API
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// HealthResponse reports service liveness
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// StartRequest triggers a step against an entry
	StartRequest struct {
		Actor Actor `json:"actor,omitempty"`
	}

	// StartResult reports where the workflow landed after a trigger. When the
	// triggered step completed, the engine advances through any immediately
	// completing successors and reports the final resting step
	StartResult struct {
		StepID   StepID `json:"step_id"`
		Status   Status `json:"status"`
		Complete bool   `json:"complete"`
	}

	// AssigneeStatusRequest records one assignee's response to a step
	AssigneeStatusRequest struct {
		Assignee AssigneeRef `json:"assignee"`
		Status   Status      `json:"status"`
		Note     string      `json:"note,omitempty"`
		Actor    Actor       `json:"actor,omitempty"`
	}

	// AssigneeStatusResult reports the outcome of an assignee response
	AssigneeStatusResult struct {
		Accepted      bool   `json:"accepted"`
		InvalidReason string `json:"invalid_reason,omitempty"`
		StepStatus    Status `json:"step_status,omitempty"`
		Complete      bool   `json:"complete"`
	}

	// StatusResponse reports a step's evaluated status for an entry
	StatusResponse struct {
		StepID  StepID  `json:"step_id"`
		EntryID EntryID `json:"entry_id"`
		Status  Status  `json:"status"`
	}

	// AssigneesResponse lists a step's resolved assignees for an entry
	AssigneesResponse struct {
		StepID    StepID      `json:"step_id"`
		EntryID   EntryID     `json:"entry_id"`
		Assignees []*Assignee `json:"assignees"`
		Count     int         `json:"count"`
	}

	// StepListRequest replaces a form's ordered step list
	StepListRequest struct {
		Steps []*Step `json:"steps"`
	}

	// SubscribeRequest is the message a WebSocket client sends to scope its
	// event feed
	SubscribeRequest struct {
		Type       string      `json:"type"`
		FormID     FormID      `json:"form_id,omitempty"`
		EntryID    EntryID     `json:"entry_id,omitempty"`
		EventTypes []EventType `json:"event_types,omitempty"`
	}
)
