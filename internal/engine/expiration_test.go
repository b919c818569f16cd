package engine_test

import (
	"context"
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/internal/assert/helpers"
	"github.com/turnstilehq/turnstile/pkg/api"
)

func delayExpiration(offset int, unit api.OffsetUnit) api.ExpirationSettings {
	return api.ExpirationSettings{
		Enabled: true,
		Type:    api.ScheduleDelay,
		Offset:  offset,
		Unit:    unit,
	}
}

func TestExpirationRequiresKindSupport(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	// Notification steps complete immediately and never expire
	step := helpers.NewNotificationStep("f1", "alice")
	step.Settings.Expiration = delayExpiration(1, api.UnitHours)

	run := env.Run(t, step, entry.ID)
	as.False(run.SupportsExpiration())

	_, ok, err := run.ExpirationTimestamp(context.Background())
	as.NoError(err)
	as.False(ok)
}

func TestExpirationDisabledByDefault(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)
	step := helpers.NewApprovalStep("f1", "alice")

	run := env.Run(t, step, entry.ID)
	as.True(run.SupportsExpiration())

	expired, err := run.IsExpired(context.Background())
	as.NoError(err)
	as.False(expired)
}

func TestExpirationDelayFromStart(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Expiration = delayExpiration(1, api.UnitDays)

	run := env.Run(t, step, entry.ID)
	complete, err := run.Start(ctx)
	as.NoError(err)
	as.False(complete)

	expired, err := run.IsExpired(ctx)
	as.NoError(err)
	as.False(expired)

	env.Clock.Advance(time.Hour)
	run = env.Run(t, step, entry.ID)
	expired, err = run.IsExpired(ctx)
	as.NoError(err)
	as.False(expired)

	env.Clock.Advance(24 * time.Hour)
	run = env.Run(t, step, entry.ID)
	expired, err = run.IsExpired(ctx)
	as.NoError(err)
	as.True(expired)

	status, err := run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusComplete, status)
}

func TestExpirationCustomStatus(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Expiration = delayExpiration(1, api.UnitHours)
	step.Settings.Expiration.StatusOnExpiration = api.StatusRejected

	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	env.Clock.Advance(2 * time.Hour)
	run = env.Run(t, step, entry.ID)
	status, err := run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusRejected, status)
}

func TestExpirationDoesNotReviveFinishedStep(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Expiration = delayExpiration(1, api.UnitHours)

	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	// Alice approves; the step ends approved
	invalid, err := run.UpdateAssigneeStatus(ctx,
		api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
		api.StatusApproved, "")
	as.NoError(err)
	as.Nil(invalid)

	_, ended, err := run.EndIfComplete(ctx)
	as.NoError(err)
	as.True(ended)

	// Aging past the deadline afterward does not change the outcome
	env.Clock.Advance(2 * time.Hour)
	run = env.Run(t, step, entry.ID)
	status, err := run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusApproved, status)
}

func TestQueuedMarkerWinsOverExpiration(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled: true,
		Type:    api.ScheduleDate,
		Date:    "2030-01-01",
	}
	step.Settings.Expiration = delayExpiration(1, api.UnitHours)

	run := env.Run(t, step, entry.ID)
	complete, err := run.Start(ctx)
	as.NoError(err)
	as.False(complete)

	// The queued marker is reported even though the first-seen anchor has
	// aged past the expiration delay
	env.Clock.Advance(2 * time.Hour)
	run = env.Run(t, step, entry.ID)
	status, err := run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusQueued, status)
}
