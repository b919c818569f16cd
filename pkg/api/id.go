package api

import (
	"regexp"
	"strings"
)

type (
	// StepID is a unique identifier for a workflow step
	StepID string

	// EntryID is a unique identifier for a form entry
	EntryID string

	// FormID is a unique identifier for a form definition
	FormID string

	// FieldID addresses a field value within an entry. Nested values may be
	// addressed with dotted paths into the entry payload
	FieldID string

	// Actor identifies who is acting on a step. It is threaded explicitly
	// through every operation that needs an identity; there is no ambient
	// current-user state
	Actor struct {
		UserID      string `json:"user_id,omitempty"`
		DisplayName string `json:"display_name,omitempty"`
		System      bool   `json:"system,omitempty"`
	}

	// StepEntry identifies one step execution against one entry
	StepEntry struct {
		StepID  StepID  `json:"step_id"`
		EntryID EntryID `json:"entry_id"`
	}
)

// SystemActor is the identity used for sweeps and other unattended triggers
var SystemActor = Actor{DisplayName: "system", System: true}

// InvalidIDChars matches characters not permitted in step and entry IDs.
// Valid characters are: letters, digits, underscore, dot, hyphen, plus, space
var InvalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

// SanitizeID lowercases an ID, removes invalid characters, replaces spaces
// with hyphens, and trims leading and trailing hyphens
func SanitizeID[T ~string](id T) T {
	lower := strings.ToLower(string(id))
	sanitized := InvalidIDChars.ReplaceAllString(lower, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return T(strings.Trim(sanitized, "-"))
}
