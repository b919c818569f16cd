package engine_test

import (
	"context"
	"testing"

	testify "github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/internal/assert/helpers"
	"github.com/turnstilehq/turnstile/pkg/api"
)

func drainEventTypes(ch <-chan *api.Event) []api.EventType {
	var out []api.EventType
	for {
		select {
		case ev := <-ch:
			out = append(out, ev.Type)
		default:
			return out
		}
	}
}

func TestApprovalStepApproveToEnd(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice", "bob")
	run := env.Run(t, step, entry.ID)

	complete, err := run.Start(ctx)
	as.NoError(err)
	as.False(complete)

	meta := env.Meta(t, entry.ID)
	as.Equal(string(step.ID), meta[api.MetaWorkflowStep])
	as.Equal(string(api.StatusPending), meta[api.MetaStepStatus(step.ID)])
	as.Equal(string(api.StatusPending),
		meta[api.MetaAssigneeStatus(api.AssigneeUser, "alice", step.ID)])
	as.Equal(string(api.StatusPending),
		meta[api.MetaAssigneeStatus(api.AssigneeUser, "bob", step.ID)])

	// One approval of two is still pending
	invalid, err := run.UpdateAssigneeStatus(ctx,
		api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
		api.StatusApproved, "")
	as.NoError(err)
	as.Nil(invalid)

	_, ended, err := run.EndIfComplete(ctx)
	as.NoError(err)
	as.False(ended)

	invalid, err = run.UpdateAssigneeStatus(ctx,
		api.AssigneeRef{Type: api.AssigneeUser, ID: "bob"},
		api.StatusApproved, "")
	as.NoError(err)
	as.Nil(invalid)

	next, ended, err := run.EndIfComplete(ctx)
	as.NoError(err)
	as.True(ended)
	as.Equal(api.NextStepNext, next)

	meta = env.Meta(t, entry.ID)
	as.Equal(string(api.StatusApproved), meta[api.MetaStepStatus(step.ID)])
	as.Equal(string(api.StatusApproved), meta[api.MetaCurrentStatus])

	// Per-assignee records are released at the end
	_, ok := meta[api.MetaAssigneeStatus(api.AssigneeUser, "alice", step.ID)]
	as.False(ok)
	_, ok = meta[api.MetaAssigneeStatus(api.AssigneeUser, "bob", step.ID)]
	as.False(ok)
}

func TestApprovalStepSingleRejectionEndsStep(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice", "bob")
	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	// One rejection decides the step regardless of the other assignee
	invalid, err := run.UpdateAssigneeStatus(ctx,
		api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
		api.StatusRejected, "missing receipts")
	as.NoError(err)
	as.Nil(invalid)

	_, ended, err := run.EndIfComplete(ctx)
	as.NoError(err)
	as.True(ended)

	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusRejected), meta[api.MetaStepStatus(step.ID)])
	as.Equal(string(api.StatusRejected), meta[api.MetaCurrentStatus])
}

func TestUserInputStepProgression(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewUserInputStep("f1", "alice", "bob")
	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	// One participant starts working; the step reports in progress
	invalid, err := run.UpdateAssigneeStatus(ctx,
		api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
		api.StatusInProgress, "")
	as.NoError(err)
	as.Nil(invalid)

	status, err := run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusInProgress, status)

	for _, id := range []string{"alice", "bob"} {
		invalid, err = run.UpdateAssigneeStatus(ctx,
			api.AssigneeRef{Type: api.AssigneeUser, ID: id},
			api.StatusComplete, "")
		as.NoError(err)
		as.Nil(invalid)
	}

	status, err = run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusComplete, status)

	_, ended, err := run.EndIfComplete(ctx)
	as.NoError(err)
	as.True(ended)

	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusComplete), meta[api.MetaCurrentStatus])
}

func TestNotificationStepCompletesImmediately(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewNotificationStep("f1", "alice")
	run := env.Run(t, step, entry.ID)

	complete, err := run.Start(ctx)
	as.NoError(err)
	as.True(complete)
	as.Equal([]string{"alice@example.com"}, env.Transport.Recipients())

	next, err := run.End(ctx)
	as.NoError(err)
	as.Equal(api.NextStepNext, next)

	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusComplete), meta[api.MetaStepStatus(step.ID)])

	// A single-outcome kind never writes the workflow-level status
	_, ok := meta[api.MetaCurrentStatus]
	as.False(ok)
}

func TestStartReentryEmitsNoDuplicateEvents(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	ch, cancel := env.Hub.Subscribe()
	defer cancel()

	step := helpers.NewApprovalStep("f1", "alice")
	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	first := drainEventTypes(ch)
	as.Equal([]api.EventType{
		api.EventStepStarted, api.EventAssigneeAdded,
	}, first)

	// A second invocation re-enters quietly: no started event, no repeat
	// assignee event
	run = env.Run(t, step, entry.ID)
	_, err = run.Start(ctx)
	as.NoError(err)
	as.Empty(drainEventTypes(ch))
}

func TestRestartOfEndedStepHasNoSideEffects(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice")
	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	invalid, err := run.UpdateAssigneeStatus(ctx,
		api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
		api.StatusApproved, "")
	as.NoError(err)
	as.Nil(invalid)

	next, ended, err := run.EndIfComplete(ctx)
	as.NoError(err)
	as.True(ended)
	as.Equal(api.NextStepNext, next)
	delivered := env.Transport.Count()

	ch, cancel := env.Hub.Subscribe()
	defer cancel()

	// Re-triggering the ended step reports complete without re-running the
	// kind: no resurrected assignee records, no repeat notifications, no
	// events
	again := env.Run(t, step, entry.ID)
	complete, err := again.Start(ctx)
	as.NoError(err)
	as.True(complete)
	as.Empty(drainEventTypes(ch))
	as.Equal(delivered, env.Transport.Count())

	meta := env.Meta(t, entry.ID)
	_, ok := meta[api.MetaAssigneeStatus(api.AssigneeUser, "alice", step.ID)]
	as.False(ok)

	// A second finalization does not happen either; only the recorded
	// destination is reported
	next, ended, err = again.EndIfComplete(ctx)
	as.NoError(err)
	as.False(ended)
	as.Equal(api.NextStepNext, next)
	as.Empty(drainEventTypes(ch))
}

func TestQueuedStepEmitsQueuedEvent(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	ch, cancel := env.Hub.Subscribe()
	defer cancel()

	step := helpers.NewApprovalStep("f1", "alice")
	step.Settings.Schedule = api.ScheduleSettings{
		Enabled: true,
		Type:    api.ScheduleDate,
		Date:    "2030-01-01",
	}

	run := env.Run(t, step, entry.ID)
	complete, err := run.Start(ctx)
	as.NoError(err)
	as.False(complete)

	as.Equal([]api.EventType{api.EventStepQueued}, drainEventTypes(ch))

	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusQueued), meta[api.MetaStepStatus(step.ID)])

	// A queued step has not begun processing and is not assigned
	_, ok := meta[api.MetaAssigneeStatus(api.AssigneeUser, "alice", step.ID)]
	as.False(ok)
	_, ok = meta.Timestamp(api.MetaStepStarted(step.ID))
	as.False(ok)
}

func TestConfiguredNextStepDestination(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewNotificationStep("f1", "alice")
	step.Settings.NextStepID = api.NextStepComplete

	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	next, err := run.End(ctx)
	as.NoError(err)
	as.Equal(api.NextStepComplete, next)

	// Completing the workflow clears the current step marker
	meta := env.Meta(t, entry.ID)
	_, ok := meta[api.MetaWorkflowStep]
	as.False(ok)
}
