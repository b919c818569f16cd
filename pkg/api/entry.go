package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type (
	// Entry is a read-mostly snapshot of the external record a workflow runs
	// against. Field values live in the JSON payload; workflow bookkeeping
	// lives in keyed entry meta
	Entry struct {
		ID      EntryID         `json:"id"`
		FormID  FormID          `json:"form_id"`
		Payload json.RawMessage `json:"payload,omitempty"`
		Created time.Time       `json:"created"`
	}

	// Meta is one consistent snapshot of an entry's workflow meta records
	Meta map[string]string

	// Form is the definition an entry belongs to
	Form struct {
		ID     FormID   `json:"id"`
		Title  string   `json:"title"`
		Fields []*Field `json:"fields,omitempty"`
	}

	// FieldType informs predicate evaluation and schedule field parsing
	FieldType string

	// Field is the metadata for one form field
	Field struct {
		ID    FieldID   `json:"id"`
		Label string    `json:"label"`
		Type  FieldType `json:"type"`
	}
)

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldTime   FieldType = "time"
	FieldSelect FieldType = "select"

	// FieldCheckbox holds a comma-separated multi-select value
	FieldCheckbox FieldType = "checkbox"
)

// Meta key vocabulary. All per-entry workflow state is persisted under these
// keys in the shared entry meta store
const (
	MetaWorkflowStep           = "workflow_step"
	MetaCurrentStatus          = "workflow_current_status"
	MetaCurrentStatusTimestamp = "workflow_current_status_timestamp"
)

// Field returns the string value of a field from the entry payload. Dotted
// field IDs address nested payload values
func (e *Entry) Field(id FieldID) (string, bool) {
	if e == nil || len(e.Payload) == 0 {
		return "", false
	}
	res := gjson.GetBytes(e.Payload, string(id))
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// FieldRaw returns the raw gjson result for a field, used by the predicate
// evaluator for typed comparisons
func (e *Entry) FieldRaw(id FieldID) gjson.Result {
	if e == nil || len(e.Payload) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.Payload, string(id))
}

// Field returns the field definition for an ID, or nil when unknown
func (f *Form) Field(id FieldID) *Field {
	if f == nil {
		return nil
	}
	for _, fld := range f.Fields {
		if fld.ID == id {
			return fld
		}
	}
	return nil
}

// MetaStepTimestamp is the first-seen timestamp key for a step. It is written
// once per step+entry with compare-and-set semantics
func MetaStepTimestamp(id StepID) string {
	return fmt.Sprintf("workflow_step_%s_timestamp", id)
}

// MetaStepStarted is the processing-began timestamp key for a step. It is
// written once, on the first non-queued pass, and anchors duration reporting
// and delay-based expiration
func MetaStepStarted(id StepID) string {
	return fmt.Sprintf("workflow_step_started_%s_timestamp", id)
}

// MetaStepStatus is the persisted status key for a step
func MetaStepStatus(id StepID) string {
	return fmt.Sprintf("workflow_step_status_%s", id)
}

// MetaStepStatusTimestamp records when the step status was last written
func MetaStepStatusTimestamp(id StepID) string {
	return fmt.Sprintf("workflow_step_status_%s_timestamp", id)
}

// MetaAssigneeStatus is the per-assignee status key, scoped by assignee type,
// assignee ID, and step
func MetaAssigneeStatus(t AssigneeType, id string, step StepID) string {
	return fmt.Sprintf("workflow_%s_%s_%s", t, id, step)
}

// MetaAssigneeStatusTimestamp records when an assignee status was written
func MetaAssigneeStatusTimestamp(
	t AssigneeType, id string, step StepID,
) string {
	return MetaAssigneeStatus(t, id, step) + "_timestamp"
}

// Timestamp parses a meta timestamp value written by FormatTimestamp
func (m Meta) Timestamp(key string) (time.Time, bool) {
	raw, ok := m[key]
	if !ok || raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// Status returns the status stored under key, or empty when absent
func (m Meta) Status(key string) Status {
	return Status(m[key])
}

// FormatTimestamp renders an instant for meta storage
func FormatTimestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
