package engine

import (
	"testing"

	testify "github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/pkg/api"
)

func TestTerminalStatuses(t *testing.T) {
	as := testify.New(t)

	for _, s := range []api.Status{
		api.StatusComplete, api.StatusExpired,
		api.StatusApproved, api.StatusRejected,
	} {
		as.True(isTerminalStatus(s), string(s))
	}

	for _, s := range []api.Status{
		"", api.StatusQueued, api.StatusPending, api.StatusInProgress,
	} {
		as.False(isTerminalStatus(s), string(s))
	}
}

func TestCanAdvanceStatus(t *testing.T) {
	as := testify.New(t)

	// Normal lifecycle
	as.True(canAdvanceStatus("", api.StatusQueued))
	as.True(canAdvanceStatus("", api.StatusPending))
	as.True(canAdvanceStatus(api.StatusQueued, api.StatusPending))
	as.True(canAdvanceStatus(api.StatusPending, api.StatusApproved))
	as.True(canAdvanceStatus(api.StatusPending, api.StatusInProgress))
	as.True(canAdvanceStatus(api.StatusInProgress, api.StatusComplete))

	// Queued steps never end without beginning processing first
	as.False(canAdvanceStatus(api.StatusQueued, api.StatusExpired))
	as.False(canAdvanceStatus(api.StatusQueued, api.StatusComplete))

	// Re-persisting the same status is a no-op, not a violation
	as.True(canAdvanceStatus(api.StatusPending, api.StatusPending))
	as.True(canAdvanceStatus(api.StatusComplete, api.StatusComplete))

	// Terminal statuses never move
	as.False(canAdvanceStatus(api.StatusComplete, api.StatusPending))
	as.False(canAdvanceStatus(api.StatusApproved, api.StatusRejected))
	as.False(canAdvanceStatus(api.StatusExpired, api.StatusPending))

	// Steps never return to the queue
	as.False(canAdvanceStatus(api.StatusPending, api.StatusQueued))

	// Custom kind statuses are allowed from non-terminal states only
	as.True(canAdvanceStatus(api.StatusPending, "reverted"))
	as.False(canAdvanceStatus(api.StatusComplete, "reverted"))
}
