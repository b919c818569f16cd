package helpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/turnstilehq/turnstile/internal/directory"
	"github.com/turnstilehq/turnstile/internal/engine"
	"github.com/turnstilehq/turnstile/internal/events"
	"github.com/turnstilehq/turnstile/internal/store"
	"github.com/turnstilehq/turnstile/pkg/api"
)

type (
	// TestEnv holds the components needed for engine testing: an in-memory
	// store, a capturing transport, a static directory, and a settable clock
	TestEnv struct {
		Engine    *engine.Engine
		Store     *store.MemoryStore
		Directory *directory.Static
		Transport *CapturingTransport
		Dedupe    *store.MemoryDeduper
		Hub       *events.Hub
		Clock     *Clock
		Cleanup   func()
	}

	// Clock is a settable time source for schedule and expiration tests
	Clock struct {
		now time.Time
		mu  sync.Mutex
	}

	// CapturingTransport records notifications instead of delivering them
	CapturingTransport struct {
		Deliveries []*api.Notification
		mu         sync.Mutex
	}
)

// BaseTime is the fixed instant test clocks start from
var BaseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// NewClock creates a clock fixed at BaseTime
func NewClock() *Clock {
	return &Clock{now: BaseTime}
}

// Now returns the clock's current instant
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to an absolute instant
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Deliver records the notification
func (t *CapturingTransport) Deliver(
	_ context.Context, n *api.Notification, _ *api.Form, _ *api.Entry,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := *n
	t.Deliveries = append(t.Deliveries, &copied)
	return nil
}

// Recipients returns the addresses delivered to, in order
func (t *CapturingTransport) Recipients() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.Deliveries))
	for i, n := range t.Deliveries {
		out[i] = n.To
	}
	return out
}

// Count returns the number of recorded deliveries
func (t *CapturingTransport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Deliveries)
}

// NewTestEnv builds an engine wired to in-memory collaborators. The
// directory starts with two users and a reviewers role
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	memStore := store.NewMemoryStore()
	dir := directory.NewStatic(
		&directory.User{
			ID:    "alice",
			Email: "alice@example.com",
			Roles: []string{"reviewers"},
		},
		&directory.User{
			ID:    "bob",
			Email: "bob@example.com",
			Roles: []string{"reviewers"},
		},
	)
	transport := &CapturingTransport{}
	dedupe := store.NewMemoryDeduper()
	hub := events.NewHub()
	clock := NewClock()

	eng, err := engine.New(engine.Dependencies{
		Store:     memStore,
		Forms:     memStore,
		Directory: dir,
		Transport: transport,
		Sink:      events.NewLogSink(hub),
		Dedupe:    dedupe,
		Clock:     clock.Now,
		Site: engine.SiteIdentity{
			Name:  "Turnstile Test",
			Email: "workflow@example.com",
		},
	})
	require.NoError(t, err)

	return &TestEnv{
		Engine:    eng,
		Store:     memStore,
		Directory: dir,
		Transport: transport,
		Dedupe:    dedupe,
		Hub:       hub,
		Clock:     clock,
		Cleanup:   hub.Close,
	}
}

// SeedForm stores a form with the given fields
func (env *TestEnv) SeedForm(
	t *testing.T, id api.FormID, fields ...*api.Field,
) *api.Form {
	t.Helper()
	form := &api.Form{
		ID:     id,
		Title:  "Test Form",
		Fields: fields,
	}
	require.NoError(t, env.Store.PutForm(context.Background(), form))
	return form
}

// SeedEntry stores an entry with the given JSON payload
func (env *TestEnv) SeedEntry(
	t *testing.T, formID api.FormID, payload string,
) *api.Entry {
	t.Helper()
	entry := &api.Entry{
		ID:      api.EntryID("entry-" + uuid.New().String()[:8]),
		FormID:  formID,
		Payload: []byte(payload),
		Created: env.Clock.Now(),
	}
	require.NoError(t, env.Store.PutEntry(context.Background(), entry))
	return entry
}

// Run creates a run for the step and entry with the system actor
func (env *TestEnv) Run(
	t *testing.T, step *api.Step, entryID api.EntryID,
) *engine.Run {
	t.Helper()
	run, err := env.Engine.NewRun(
		context.Background(), step, entryID, api.SystemActor,
	)
	require.NoError(t, err)
	return run
}

// Meta fetches the entry's current meta snapshot
func (env *TestEnv) Meta(t *testing.T, entryID api.EntryID) api.Meta {
	t.Helper()
	meta, err := env.Store.EntryMeta(context.Background(), entryID)
	require.NoError(t, err)
	return meta
}
