package api

type (
	// Status is the observable state of a step+entry pair. Step kinds may
	// declare additional values beyond the core vocabulary
	Status string

	// StatusConfig describes one status a step kind can report
	StatusConfig struct {
		Status Status `json:"status"`
		Label  string `json:"label"`
	}
)

const (
	// StatusPending indicates the step is active and awaiting its kind's
	// internal condition
	StatusPending Status = "pending"

	// StatusQueued indicates the step is scheduled and not yet due
	StatusQueued Status = "queued"

	// StatusComplete indicates the step finished normally
	StatusComplete Status = "complete"

	// StatusExpired indicates the step aged past its expiration deadline
	StatusExpired Status = "expired"

	// StatusInProgress is reported by kinds with partial progress, such as
	// user input steps where some assignees have responded
	StatusInProgress Status = "in_progress"

	// StatusApproved and StatusRejected are the approval kind's outcomes
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsOnlyComplete reports whether a status vocabulary consists of exactly one
// entry equal to complete. Steps with no alternate outcomes do not overwrite
// the workflow-level current status record
func IsOnlyComplete(cfg []StatusConfig) bool {
	return len(cfg) == 1 && cfg[0].Status == StatusComplete
}
