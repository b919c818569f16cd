package engine_test

import (
	"context"
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/internal/assert/helpers"
	"github.com/turnstilehq/turnstile/pkg/api"
)

func TestUnscheduledStepAlwaysDue(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)
	step := helpers.NewApprovalStep("f1", "alice")

	run := env.Run(t, step, entry.ID)

	_, ok, err := run.ScheduleTimestamp(context.Background())
	as.NoError(err)
	as.False(ok)

	due, err := run.ValidateSchedule(context.Background())
	as.NoError(err)
	as.True(due)
}

func TestScheduleDateMode(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled: true,
		Type:    api.ScheduleDate,
		Date:    "2024-06-02",
	}

	run := env.Run(t, step, entry.ID)
	due, err := run.ValidateSchedule(context.Background())
	as.NoError(err)
	as.False(due)

	env.Clock.Set(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	run = env.Run(t, step, entry.ID)
	due, err = run.ValidateSchedule(context.Background())
	as.NoError(err)
	as.True(due)
}

func TestScheduleDateFieldMode(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1",
		&api.Field{ID: "due_date", Type: api.FieldDate})
	entry := env.SeedEntry(t, "f1", `{"due_date":"2024-06-03"}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled:     true,
		Type:        api.ScheduleDateField,
		DateFieldID: "due_date",
		Offset:      1,
		Unit:        api.UnitDays,
		Direction:   api.DirectionBefore,
	}

	run := env.Run(t, step, entry.ID)
	at, ok, err := run.ScheduleTimestamp(context.Background())
	as.NoError(err)
	as.True(ok)
	as.Equal(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), at)
}

func TestScheduleTimeFieldMode(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1",
		&api.Field{ID: "day", Type: api.FieldDate},
		&api.Field{ID: "at", Type: api.FieldTime})
	entry := env.SeedEntry(t, "f1", `{"day":"2024-06-05","at":"2:30 PM"}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled:     true,
		Type:        api.ScheduleTimeField,
		DateFieldID: "day",
		TimeFieldID: "at",
	}

	run := env.Run(t, step, entry.ID)
	at, ok, err := run.ScheduleTimestamp(context.Background())
	as.NoError(err)
	as.True(ok)
	as.Equal(time.Date(2024, 6, 5, 14, 30, 0, 0, time.UTC), at)
}

func TestScheduleTimeFieldBlankClockIsMidnight(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1",
		&api.Field{ID: "day", Type: api.FieldDate},
		&api.Field{ID: "at", Type: api.FieldTime})
	entry := env.SeedEntry(t, "f1", `{"day":"2024-06-05","at":""}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled:     true,
		Type:        api.ScheduleTimeField,
		DateFieldID: "day",
		TimeFieldID: "at",
	}

	run := env.Run(t, step, entry.ID)
	at, ok, err := run.ScheduleTimestamp(context.Background())
	as.NoError(err)
	as.True(ok)
	as.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), at)
}

func TestScheduleConfigGapIsNotAnError(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{"due_date":"not a date"}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled:     true,
		Type:        api.ScheduleDateField,
		DateFieldID: "due_date",
	}

	// Unparseable field value resolves to no instant; the step may proceed
	run := env.Run(t, step, entry.ID)
	_, ok, err := run.ScheduleTimestamp(context.Background())
	as.NoError(err)
	as.False(ok)

	due, err := run.ValidateSchedule(context.Background())
	as.NoError(err)
	as.True(due)
}

func TestScheduleDelayMonotonic(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled: true,
		Type:    api.ScheduleDelay,
		Offset:  1,
		Unit:    api.UnitDays,
	}

	// First trigger anchors the delay and queues the step
	run := env.Run(t, step, entry.ID)
	complete, err := run.Start(ctx)
	as.NoError(err)
	as.False(complete)

	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusQueued),
		meta[api.MetaStepStatus(step.ID)])

	// One hour later the delay has not elapsed
	env.Clock.Advance(time.Hour)
	run = env.Run(t, step, entry.ID)
	due, err := run.ValidateSchedule(ctx)
	as.NoError(err)
	as.False(due)

	// Twenty-five hours after the anchor it has
	env.Clock.Advance(24 * time.Hour)
	run = env.Run(t, step, entry.ID)
	due, err = run.ValidateSchedule(ctx)
	as.NoError(err)
	as.True(due)
}

func TestScheduleDelayAnchorStableAcrossInvocations(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled: true,
		Type:    api.ScheduleDelay,
		Offset:  2,
		Unit:    api.UnitHours,
	}

	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	at1, ok, err := run.ScheduleTimestamp(ctx)
	as.NoError(err)
	as.True(ok)

	// Re-triggering later does not move the anchor
	env.Clock.Advance(time.Hour)
	run = env.Run(t, step, entry.ID)
	_, err = run.Start(ctx)
	as.NoError(err)

	at2, ok, err := run.ScheduleTimestamp(ctx)
	as.NoError(err)
	as.True(ok)
	as.Equal(at1, at2)
}
