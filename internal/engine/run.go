package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// Run binds one step definition to one entry for the duration of a single
// invocation. The meta snapshot is taken once at creation; writes during the
// invocation are overlaid so later reads observe them (read-your-writes)
// without picking up concurrent writers mid-decision
type Run struct {
	eng          *Engine
	step         *api.Step
	kind         Kind
	entryID      api.EntryID
	actor        api.Actor
	invocationID string
	entry        *api.Entry
	form         *api.Form
	meta         api.Meta
	assignees    []*api.Assignee
	notified     util.Set[string]
}

// NewRun creates a run for a step+entry pair, capturing the meta snapshot
// the rest of the invocation decides against
func (e *Engine) NewRun(
	ctx context.Context, step *api.Step, entryID api.EntryID, actor api.Actor,
) (*Run, error) {
	if !step.Active {
		return nil, fmt.Errorf("%w: %s", ErrStepInactive, step.ID)
	}

	kind, err := e.kinds.Lookup(step.Type)
	if err != nil {
		return nil, err
	}

	meta, err := e.store.EntryMeta(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntryUnavailable, err)
	}

	return &Run{
		eng:          e,
		step:         step,
		kind:         kind,
		entryID:      entryID,
		actor:        actor,
		invocationID: uuid.New().String(),
		meta:         meta,
		notified:     util.Set[string]{},
	}, nil
}

// Step returns the step definition this run executes
func (r *Run) Step() *api.Step {
	return r.step
}

// EntryID returns the entry this run executes against
func (r *Run) EntryID() api.EntryID {
	return r.entryID
}

// Actor returns the identity that triggered this invocation
func (r *Run) Actor() api.Actor {
	return r.actor
}

// InvocationID returns the unique identifier of this invocation
func (r *Run) InvocationID() string {
	return r.invocationID
}

// Entry returns the entry snapshot, fetched lazily and cached for the run.
// An unreachable store is fatal; treating an unreadable entry as empty would
// corrupt scheduling and expiration decisions
func (r *Run) Entry(ctx context.Context) (*api.Entry, error) {
	if r.entry != nil {
		return r.entry, nil
	}
	entry, err := r.eng.store.Entry(ctx, r.entryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntryUnavailable, err)
	}
	r.entry = entry
	return entry, nil
}

// Form returns the form definition for the step's form
func (r *Run) Form(ctx context.Context) (*api.Form, error) {
	if r.form != nil {
		return r.form, nil
	}
	form, err := r.eng.form(ctx, r.step.FormID)
	if err != nil {
		return nil, err
	}
	r.form = form
	return form, nil
}

func (r *Run) metaValue(key string) (string, bool) {
	v, ok := r.meta[key]
	return v, ok
}

func (r *Run) metaStatus(key string) api.Status {
	return r.meta.Status(key)
}

func (r *Run) metaTimestamp(key string) (time.Time, bool) {
	return r.meta.Timestamp(key)
}

func (r *Run) setMeta(ctx context.Context, key, value string) error {
	if err := r.eng.store.SetMeta(ctx, r.entryID, key, value); err != nil {
		return err
	}
	r.meta[key] = value
	return nil
}

// setMetaIfAbsent writes only when no value exists, using the store's
// compare-and-set. The overlay is updated with whichever value won
func (r *Run) setMetaIfAbsent(
	ctx context.Context, key, value string,
) (bool, error) {
	if _, ok := r.meta[key]; ok {
		return false, nil
	}
	set, err := r.eng.store.SetMetaIfAbsent(ctx, r.entryID, key, value)
	if err != nil {
		return false, err
	}
	if set {
		r.meta[key] = value
		return true, nil
	}
	latest, err := r.eng.store.EntryMeta(ctx, r.entryID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrEntryUnavailable, err)
	}
	if v, ok := latest[key]; ok {
		r.meta[key] = v
	}
	return false, nil
}

func (r *Run) deleteMeta(ctx context.Context, key string) error {
	if err := r.eng.store.DeleteMeta(ctx, r.entryID, key); err != nil {
		return err
	}
	delete(r.meta, key)
	return nil
}

func (r *Run) emit(typ api.EventType, ev api.Event) {
	ev.Type = typ
	ev.FormID = r.step.FormID
	ev.EntryID = r.entryID
	ev.StepID = r.step.ID
	ev.Timestamp = r.eng.Now()
	r.eng.sink.Log(&ev)
}
