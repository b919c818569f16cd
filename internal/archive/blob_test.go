package archive

import (
	"context"
	"testing"
	"time"

	testify "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnstilehq/turnstile/pkg/api"
)

func newMemArchiver(t *testing.T, prefix string) *BlobArchiver {
	t.Helper()
	a, err := NewBlobArchiver(context.Background(), "mem://", prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
	})
	return a
}

func TestArchiveRunRoundTrip(t *testing.T) {
	as := testify.New(t)
	a := newMemArchiver(t, "")
	ctx := context.Background()

	rec := &api.RunRecord{
		InvocationID: "inv-1",
		FormID:       "f1",
		EntryID:      "e1",
		StepID:       "s1",
		StepName:     "Approval",
		Status:       api.StatusApproved,
		NextStepID:   api.NextStepNext,
		Assignees: []api.AssigneeRecord{
			{Type: api.AssigneeUser, ID: "alice", Status: api.StatusApproved},
		},
		StartedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC),
		DurationMs:  9_000_000,
	}
	as.NoError(a.ArchiveRun(ctx, rec))

	got, err := a.ReadRun(ctx, "e1", "s1", "inv-1")
	as.NoError(err)
	require.NotNil(t, got)
	as.Equal(rec.Status, got.Status)
	as.Equal(rec.StepName, got.StepName)
	as.Equal(rec.DurationMs, got.DurationMs)
	require.Len(t, got.Assignees, 1)
	as.Equal("alice", got.Assignees[0].ID)
}

func TestReadRunAbsent(t *testing.T) {
	as := testify.New(t)
	a := newMemArchiver(t, "")

	got, err := a.ReadRun(context.Background(), "e1", "s1", "never-ran")
	as.NoError(err)
	as.Nil(got)
}

func TestArchivePrefixScopesKeys(t *testing.T) {
	as := testify.New(t)
	ctx := context.Background()

	prefixed := newMemArchiver(t, "prod/")
	rec := &api.RunRecord{
		InvocationID: "inv-1",
		EntryID:      "e1",
		StepID:       "s1",
		Status:       api.StatusComplete,
	}
	as.NoError(prefixed.ArchiveRun(ctx, rec))

	got, err := prefixed.ReadRun(ctx, "e1", "s1", "inv-1")
	as.NoError(err)
	as.NotNil(got)
}
