package api

import "fmt"

type (
	// AssigneeType discriminates the principal kind behind an assignee
	AssigneeType string

	// AssigneeRef names a principal in step configuration before it has been
	// materialized against the directory
	AssigneeRef struct {
		Type AssigneeType `json:"type"`
		ID   string       `json:"id"`
	}

	// Assignee is a principal currently responsible for a step. It is a view
	// over persisted per-assignee meta; the value itself is constructed fresh
	// on each resolution
	Assignee struct {
		Type           AssigneeType `json:"type"`
		ID             string       `json:"id"`
		Status         Status       `json:"status,omitempty"`
		EditableFields []FieldID    `json:"editable_fields,omitempty"`
	}

	// Operator is the comparison vocabulary for routing rules
	Operator string

	// RoutingRule conditionally contributes an assignee to a step. Rules are
	// evaluated independently; every satisfied rule adds its assignee
	RoutingRule struct {
		FieldID  FieldID     `json:"field_id"`
		Operator Operator    `json:"operator"`
		Value    string      `json:"value"`
		Assignee AssigneeRef `json:"assignee"`
	}
)

const (
	AssigneeUser  AssigneeType = "user_id"
	AssigneeRole  AssigneeType = "role"
	AssigneeEmail AssigneeType = "email"

	OpIs          Operator = "is"
	OpIsNot       Operator = "isnot"
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
)

// Key returns the unique identity of an assignee within a step's resolved
// set: "<type>|<id>"
func (a *Assignee) Key() string {
	return fmt.Sprintf("%s|%s", a.Type, a.ID)
}

// Key returns the unique identity of a configured assignee reference
func (r AssigneeRef) Key() string {
	return fmt.Sprintf("%s|%s", r.Type, r.ID)
}
