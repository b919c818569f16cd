package engine

import (
	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// statusTransitions validates step status changes. The empty status is the
// not-started state. Terminal statuses have no outgoing transitions, which
// is what prevents a re-entrant invocation from advancing a step past
// completion
var statusTransitions = util.StateTransitions[api.Status]{
	"": util.SetOf(
		api.StatusQueued,
		api.StatusPending,
	),
	// A queued step leaves the queue only by beginning processing. The
	// queued marker wins the status evaluation order, so expiration
	// cannot fire from the queue
	api.StatusQueued: util.SetOf(
		api.StatusPending,
	),
	api.StatusPending: util.SetOf(
		api.StatusInProgress,
		api.StatusComplete,
		api.StatusExpired,
		api.StatusApproved,
		api.StatusRejected,
	),
	api.StatusInProgress: util.SetOf(
		api.StatusComplete,
		api.StatusExpired,
		api.StatusApproved,
		api.StatusRejected,
	),
	api.StatusComplete: {},
	api.StatusExpired:  {},
	api.StatusApproved: {},
	api.StatusRejected: {},
}

// isTerminalStatus reports whether a status ends the step. Kind-specific
// outcomes (approved, rejected) are terminal alongside complete and expired
func isTerminalStatus(s api.Status) bool {
	return statusTransitions.IsTerminal(s)
}

// canAdvanceStatus reports whether writing to may proceed from the currently
// persisted status. Unknown custom statuses are allowed only from a
// non-terminal state
func canAdvanceStatus(from, to api.Status) bool {
	if from == to {
		return true
	}
	if _, known := statusTransitions[to]; !known {
		return !isTerminalStatus(from)
	}
	return statusTransitions.CanTransition(from, to)
}
