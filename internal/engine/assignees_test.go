package engine_test

import (
	"context"
	"testing"

	testify "github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/internal/assert/helpers"
	"github.com/turnstilehq/turnstile/pkg/api"
)

func TestSelectAssigneesDeduplicated(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice", "bob", "alice")
	run := env.Run(t, step, entry.ID)

	assignees, err := run.Assignees(context.Background())
	as.NoError(err)
	as.Len(assignees, 2)
	as.Equal("alice", assignees[0].ID)
	as.Equal("bob", assignees[1].ID)
}

func TestUnresolvableAssigneesExcluded(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "alice", "nobody")
	step.Settings.Assignment.Assignees = append(
		step.Settings.Assignment.Assignees,
		api.AssigneeRef{Type: api.AssigneeRole, ID: "missing-role"},
		api.AssigneeRef{Type: api.AssigneeEmail, ID: "not-an-address"},
		api.AssigneeRef{Type: api.AssigneeEmail, ID: "carol@example.com"},
	)

	run := env.Run(t, step, entry.ID)
	assignees, err := run.Assignees(context.Background())
	as.NoError(err)
	as.Len(assignees, 2)
	as.Equal("alice", assignees[0].ID)
	as.Equal("carol@example.com", assignees[1].ID)
}

func TestRoutingEverySatisfiedRuleContributes(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	env.SeedForm(t, "f1",
		&api.Field{ID: "amount", Type: api.FieldNumber},
		&api.Field{ID: "category", Type: api.FieldText})
	entry := env.SeedEntry(t, "f1",
		`{"amount":"1500","category":"hardware"}`)

	step := helpers.NewApprovalStep("f1")
	step.Settings.Assignment = api.AssignmentSettings{
		Mode: api.AssignmentRouting,
		Rules: []api.RoutingRule{
			{
				FieldID: "amount", Operator: api.OpGreaterThan,
				Value:    "1000",
				Assignee: api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
			},
			{
				FieldID: "category", Operator: api.OpIs, Value: "hardware",
				Assignee: api.AssigneeRef{Type: api.AssigneeUser, ID: "bob"},
			},
			{
				FieldID: "category", Operator: api.OpIs, Value: "travel",
				Assignee: api.AssigneeRef{
					Type: api.AssigneeEmail, ID: "travel@example.com",
				},
			},
			{
				// A second satisfied rule for an already-added assignee
				// contributes nothing new
				FieldID: "amount", Operator: api.OpGreaterThan, Value: "100",
				Assignee: api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
			},
		},
	}

	run := env.Run(t, step, entry.ID)
	assignees, err := run.Assignees(context.Background())
	as.NoError(err)
	as.Len(assignees, 2)
	as.Equal("alice", assignees[0].ID)
	as.Equal("bob", assignees[1].ID)
}

func assigneeKeys(assignees []*api.Assignee) []string {
	keys := make([]string, 0, len(assignees))
	for _, a := range assignees {
		keys = append(keys, a.Key())
	}
	return keys
}

func TestAssigneesStableAcrossCalls(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	step := helpers.NewApprovalStep("f1", "bob", "alice")
	run := env.Run(t, step, entry.ID)

	first, err := run.Assignees(ctx)
	as.NoError(err)
	second, err := run.Assignees(ctx)
	as.NoError(err)
	as.Equal(assigneeKeys(first), assigneeKeys(second))

	// A fresh invocation resolves the same keys in the same order
	third, err := env.Run(t, step, entry.ID).Assignees(ctx)
	as.NoError(err)
	as.Equal(assigneeKeys(first), assigneeKeys(third))
}

func TestAssignReportsCompletionState(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1")
	entry := env.SeedEntry(t, "f1", `{}`)

	// With a pending assignee the step is not complete
	step := helpers.NewApprovalStep("f1", "alice")
	done, err := env.Run(t, step, entry.ID).Assign(ctx)
	as.NoError(err)
	as.False(done)

	// Nobody resolvable means nobody to wait for
	orphan := helpers.NewApprovalStep("f1", "nobody")
	done, err = env.Run(t, orphan, entry.ID).Assign(ctx)
	as.NoError(err)
	as.True(done)
}

func TestAdjustAssignmentDiffsByKey(t *testing.T) {
	as := testify.New(t)
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	env.SeedForm(t, "f1",
		&api.Field{ID: "owner", Type: api.FieldText})
	entry := env.SeedEntry(t, "f1", `{"owner":"alice"}`)

	step := helpers.NewApprovalStep("f1")
	step.Settings.Assignment = api.AssignmentSettings{
		Mode: api.AssignmentRouting,
		Rules: []api.RoutingRule{
			{
				FieldID: "owner", Operator: api.OpIs, Value: "alice",
				Assignee: api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"},
			},
			{
				FieldID: "owner", Operator: api.OpIs, Value: "bob",
				Assignee: api.AssigneeRef{Type: api.AssigneeUser, ID: "bob"},
			},
		},
	}

	run := env.Run(t, step, entry.ID)
	_, err := run.Start(ctx)
	as.NoError(err)

	previous, err := run.Assignees(ctx)
	as.NoError(err)
	as.Len(previous, 1)
	as.Equal("alice", previous[0].ID)

	// The owner field changes hands
	entry.Payload = []byte(`{"owner":"bob"}`)
	as.NoError(env.Store.PutEntry(ctx, entry))

	added, removed, err := run.AdjustAssignment(ctx, previous)
	as.NoError(err)
	as.Len(added, 1)
	as.Equal("bob", added[0].ID)
	as.Len(removed, 1)
	as.Equal("alice", removed[0].ID)

	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusPending),
		meta[api.MetaAssigneeStatus(api.AssigneeUser, "bob", step.ID)])
	_, ok := meta[api.MetaAssigneeStatus(api.AssigneeUser, "alice", step.ID)]
	as.False(ok)
}

func TestAdjustAssignmentNoChangeIsEmptyDiff(t *testing.T) {
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

	previous, err := run.Assignees(ctx)
	as.NoError(err)

	added, removed, err := run.AdjustAssignment(ctx, previous)
	as.NoError(err)
	as.Empty(added)
	as.Empty(removed)
}

func TestUpdateAssigneeStatusRejectionRequiresNote(t *testing.T) {
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

	ref := api.AssigneeRef{Type: api.AssigneeUser, ID: "alice"}

	invalid, err := run.UpdateAssigneeStatus(
		ctx, ref, api.StatusRejected, "   ",
	)
	as.NoError(err)
	as.NotNil(invalid)
	as.NotEmpty(invalid.Reason)

	// The failed validation left no status behind
	meta := env.Meta(t, entry.ID)
	as.Equal(string(api.StatusPending),
		meta[api.MetaAssigneeStatus(api.AssigneeUser, "alice", step.ID)])

	invalid, err = run.UpdateAssigneeStatus(
		ctx, ref, api.StatusRejected, "budget exceeded",
	)
	as.NoError(err)
	as.Nil(invalid)

	status, err := run.EvaluateStatus(ctx)
	as.NoError(err)
	as.Equal(api.StatusRejected, status)
}
