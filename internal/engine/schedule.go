package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/turnstilehq/turnstile/pkg/api"
	"github.com/turnstilehq/turnstile/pkg/log"
)

// timingSpec is the shared shape of schedule and expiration configuration.
// Both evaluators compute an instant the same way; only the settings
// namespace and the delay anchor differ
type timingSpec struct {
	typ       api.ScheduleType
	date      string
	dateField api.FieldID
	timeField api.FieldID
	offset    int
	unit      api.OffsetUnit
	dir       api.OffsetDirection
}

// ScheduleTimestamp computes the absolute instant before which the step must
// remain queued. The second return is false when the step is unscheduled or
// the configuration cannot produce an instant (a config gap, not an error)
func (r *Run) ScheduleTimestamp(
	ctx context.Context,
) (time.Time, bool, error) {
	s := &r.step.Settings.Schedule
	if !s.Enabled {
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

	anchor, hasAnchor := r.metaTimestamp(api.MetaStepTimestamp(r.step.ID))
	at, ok, err := r.computeInstant(ctx, spec, anchor, hasAnchor)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return r.eng.hooks.applySchedule(r, at), true, nil
}

// ValidateSchedule reports whether the step may begin processing now. An
// unscheduled step may always proceed; so may one whose schedule cannot be
// computed from the current configuration
func (r *Run) ValidateSchedule(ctx context.Context) (bool, error) {
	at, ok, err := r.ScheduleTimestamp(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return !r.eng.Now().Before(at), nil
}

// computeInstant resolves a timing spec to a UTC instant. The delay mode
// uses the provided anchor; the field modes read the entry. Unparseable or
// missing values resolve to no instant and a warning, never a failure
func (r *Run) computeInstant(
	ctx context.Context, spec timingSpec, anchor time.Time, hasAnchor bool,
) (time.Time, bool, error) {
	switch spec.typ {
	case api.ScheduleDate:
		at, err := parseLocalDate(spec.date, r.eng.tz)
		if err != nil {
			r.timingGap("date", string(r.step.ID), err)
			return time.Time{}, false, nil
		}
		return at, true, nil

	case api.ScheduleDateField:
		entry, err := r.Entry(ctx)
		if err != nil {
			return time.Time{}, false, err
		}
		raw, present := entry.Field(spec.dateField)
		if !present {
			r.timingGap("date_field", string(spec.dateField), nil)
			return time.Time{}, false, nil
		}
		at, perr := parseLocalDate(raw, r.eng.tz)
		if perr != nil {
			r.timingGap("date_field", string(spec.dateField), perr)
			return time.Time{}, false, nil
		}
		return applyOffset(at, spec.offset, spec.unit, spec.dir), true, nil

	case api.ScheduleTimeField:
		entry, err := r.Entry(ctx)
		if err != nil {
			return time.Time{}, false, err
		}
		rawDate, present := entry.Field(spec.dateField)
		if !present {
			r.timingGap("time_field", string(spec.dateField), nil)
			return time.Time{}, false, nil
		}
		day, perr := parseLocalDate(rawDate, r.eng.tz)
		if perr != nil {
			r.timingGap("time_field", string(spec.dateField), perr)
			return time.Time{}, false, nil
		}
		// The clock value comes from the settings' own configured time
		// field; a blank value means midnight
		rawClock, _ := entry.Field(spec.timeField)
		clock, cerr := parseClock(rawClock)
		if cerr != nil {
			r.timingGap("time_field", string(spec.timeField), cerr)
			return time.Time{}, false, nil
		}
		at := day.Add(clock)
		return applyOffset(at, spec.offset, spec.unit, spec.dir), true, nil

	default:
		// Delay from the step's own anchor timestamp
		if !hasAnchor {
			return time.Time{}, false, nil
		}
		return anchor.Add(offsetDuration(spec.offset, spec.unit)), true, nil
	}
}

func (r *Run) timingGap(mode, ref string, err error) {
	slog.Warn("Timing configuration gap",
		slog.String("mode", mode),
		slog.String("ref", ref),
		log.StepID(r.step.ID),
		log.EntryID(r.entryID),
		log.Error(err))
}
