package engine

import (
	"context"
	"time"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// SupportsExpiration reports whether this step's kind has opted into
// expiration evaluation
func (r *Run) SupportsExpiration() bool {
	return r.kind.SupportsExpiration()
}

// ExpirationTimestamp computes the absolute deadline after which the step is
// expired. The second return is false when the kind does not support
// expiration, expiration is unconfigured, or the configuration cannot
// produce an instant
func (r *Run) ExpirationTimestamp(
	ctx context.Context,
) (time.Time, bool, error) {
	s := &r.step.Settings.Expiration
	if !r.kind.SupportsExpiration() || !s.Enabled {
		return time.Time{}, false, nil
	}

	spec := timingSpec{
		typ:       s.Type,
		date:      s.Date,
		dateField: s.DateFieldID,
		timeField: s.TimeFieldID,
		offset:    s.Offset,
		unit:      s.Unit,
		dir:       s.Direction,
	}

	// Delay-based expiration ages from when processing began, falling back
	// to the first-seen timestamp when the step has only been queued
	anchor, hasAnchor := r.metaTimestamp(api.MetaStepStarted(r.step.ID))
	if !hasAnchor {
		anchor, hasAnchor = r.metaTimestamp(api.MetaStepTimestamp(r.step.ID))
	}

	at, ok, err := r.computeInstant(ctx, spec, anchor, hasAnchor)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return r.eng.hooks.applyExpiration(r, at), true, nil
}

// IsExpired reports whether the step has aged past its expiration deadline
func (r *Run) IsExpired(ctx context.Context) (bool, error) {
	at, ok, err := r.ExpirationTimestamp(ctx)
	if err != nil || !ok {
		return false, err
	}
	return !r.eng.Now().Before(at), nil
}

// statusOnExpiration returns the status an expired step ends with
func (r *Run) statusOnExpiration() api.Status {
	if s := r.step.Settings.Expiration.StatusOnExpiration; s != "" {
		return s
	}
	return api.StatusComplete
}
