package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

// Assignees resolves the current set of parties responsible for this step,
// cached for the invocation. The returned slice preserves resolution order
// and contains no duplicate keys
func (r *Run) Assignees(ctx context.Context) ([]*api.Assignee, error) {
	if r.assignees != nil {
		return r.assignees, nil
	}
	resolved, err := r.resolveAssignees(ctx)
	if err != nil {
		return nil, err
	}
	r.assignees = resolved
	return resolved, nil
}

// FlushAssignees clears the invocation's assignee cache so the next call to
// Assignees recomputes against current entry data
func (r *Run) FlushAssignees() {
	r.assignees = nil
}

func (r *Run) resolveAssignees(ctx context.Context) ([]*api.Assignee, error) {
	assignment := &r.step.Settings.Assignment

	var out []*api.Assignee
	seen := util.Set[string]{}

	switch assignment.Mode {
	case api.AssignmentRouting:
		form, err := r.Form(ctx)
		if err != nil {
			return nil, err
		}
		entry, err := r.Entry(ctx)
		if err != nil {
			return nil, err
		}
		// Every satisfied rule contributes its assignee; rules are not
		// first-match
		for i := range assignment.Rules {
			rule := &assignment.Rules[i]
			actual, _ := entry.Field(rule.FieldID)
			field := form.Field(rule.FieldID)
			if !r.eng.matcher.IsMatch(actual, rule, field) {
				continue
			}
			out = r.maybeAddAssignee(out, seen, rule.Assignee)
		}

	default:
		for _, ref := range assignment.Assignees {
			out = r.maybeAddAssignee(out, seen, ref)
		}
	}

	return out, nil
}

// maybeAddAssignee appends a candidate only when its backing principal
// resolves and its key is not already present. Candidates that no longer
// exist are excluded silently rather than failing the step
func (r *Run) maybeAddAssignee(
	out []*api.Assignee, seen util.Set[string], ref api.AssigneeRef,
) []*api.Assignee {
	if seen.Contains(ref.Key()) {
		return out
	}
	if !r.principalExists(ref) {
		slog.Debug("Assignee candidate does not resolve",
			log.Assignee(ref.Key()),
			log.StepID(r.step.ID))
		return out
	}

	seen.Add(ref.Key())
	a := &api.Assignee{Type: ref.Type, ID: ref.ID}
	key := api.MetaAssigneeStatus(a.Type, a.ID, r.step.ID)
	if status := r.metaStatus(key); status != "" {
		a.Status = status
	} else {
		a.Status = api.StatusPending
	}
	return append(out, a)
}

func (r *Run) principalExists(ref api.AssigneeRef) bool {
	switch ref.Type {
	case api.AssigneeUser:
		return r.eng.directory.UserExists(ref.ID)
	case api.AssigneeRole:
		return r.eng.directory.RoleExists(ref.ID)
	case api.AssigneeEmail:
		return strings.Contains(ref.ID, "@")
	default:
		return false
	}
}

// AdjustAssignment reconciles the step's assignees after entry data has
// changed. The previous set must be captured before any entry mutation used
// in resolution; this is an ordering contract on the caller. Keys present
// only in the new set are added as pending and notified; keys present only
// in the previous set have their persisted status cleared
func (r *Run) AdjustAssignment(
	ctx context.Context, previous []*api.Assignee,
) (added, removed []*api.Assignee, err error) {
	r.FlushAssignees()
	r.entry = nil

	current, err := r.Assignees(ctx)
	if err != nil {
		return nil, nil, err
	}

	prevKeys := util.Set[string]{}
	for _, a := range previous {
		prevKeys.Add(a.Key())
	}
	currentKeys := util.Set[string]{}
	for _, a := range current {
		currentKeys.Add(a.Key())
	}

	for _, a := range current {
		if prevKeys.Contains(a.Key()) {
			continue
		}
		if err := r.addAssignee(ctx, a); err != nil {
			return nil, nil, err
		}
		added = append(added, a)
	}

	for _, a := range previous {
		if currentKeys.Contains(a.Key()) {
			continue
		}
		if err := r.removeAssignee(ctx, a); err != nil {
			return nil, nil, err
		}
		removed = append(removed, a)
	}

	return added, removed, nil
}

func (r *Run) addAssignee(ctx context.Context, a *api.Assignee) error {
	a.Status = api.StatusPending
	key := api.MetaAssigneeStatus(a.Type, a.ID, r.step.ID)
	if err := r.setMeta(ctx, key, string(api.StatusPending)); err != nil {
		return err
	}
	tsKey := api.MetaAssigneeStatusTimestamp(a.Type, a.ID, r.step.ID)
	if err := r.setMeta(
		ctx, tsKey, api.FormatTimestamp(r.eng.Now()),
	); err != nil {
		return err
	}

	r.emit(api.EventAssigneeAdded, api.Event{Assignee: a.Key()})
	return r.MaybeSendAssigneeNotification(ctx, a)
}

func (r *Run) removeAssignee(ctx context.Context, a *api.Assignee) error {
	key := api.MetaAssigneeStatus(a.Type, a.ID, r.step.ID)
	if err := r.deleteMeta(ctx, key); err != nil {
		return err
	}
	tsKey := api.MetaAssigneeStatusTimestamp(a.Type, a.ID, r.step.ID)
	if err := r.deleteMeta(ctx, tsKey); err != nil {
		return err
	}

	r.emit(api.EventAssigneeRemoved, api.Event{Assignee: a.Key()})
	return nil
}

// releaseAssignees removes every current assignee's per-assignee status
// records; called when the step ends
func (r *Run) releaseAssignees(ctx context.Context) error {
	assignees, err := r.Assignees(ctx)
	if err != nil {
		return err
	}
	for _, a := range assignees {
		key := api.MetaAssigneeStatus(a.Type, a.ID, r.step.ID)
		if err := r.deleteMeta(ctx, key); err != nil {
			return err
		}
		tsKey := api.MetaAssigneeStatusTimestamp(a.Type, a.ID, r.step.ID)
		if err := r.deleteMeta(ctx, tsKey); err != nil {
			return err
		}
	}
	return nil
}

// InvalidNote is the structured result of a failed note validation. The
// caller re-renders input for correction; this is not an error
type InvalidNote struct {
	Reason string
}

// UpdateAssigneeStatus records an assignee's response to the step. The
// kind's note policy is checked first; approval and rejection outcomes fire
// their notifications
func (r *Run) UpdateAssigneeStatus(
	ctx context.Context, ref api.AssigneeRef, status api.Status, note string,
) (*InvalidNote, error) {
	if ok, reason := r.kind.ValidateNote(status, note); !ok {
		return &InvalidNote{Reason: reason}, nil
	}

	key := api.MetaAssigneeStatus(ref.Type, ref.ID, r.step.ID)
	if err := r.setMeta(ctx, key, string(status)); err != nil {
		return nil, err
	}
	tsKey := api.MetaAssigneeStatusTimestamp(ref.Type, ref.ID, r.step.ID)
	if err := r.setMeta(
		ctx, tsKey, api.FormatTimestamp(r.eng.Now()),
	); err != nil {
		return nil, err
	}

	for _, a := range r.assignees {
		if a.Key() == ref.Key() {
			a.Status = status
		}
	}

	r.emit(api.EventAssigneeStatus, api.Event{
		Assignee: ref.Key(),
		Status:   status,
	})

	switch status {
	case api.StatusApproved:
		if err := r.MaybeSendNotification(
			ctx, api.NotificationApproval,
		); err != nil {
			return nil, err
		}
	case api.StatusRejected:
		if err := r.MaybeSendNotification(
			ctx, api.NotificationRejection,
		); err != nil {
			return nil, err
		}
	}

	return nil, nil
}
