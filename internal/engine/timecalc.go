package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// Time arithmetic for schedule and expiration instants. Configuration is
// expressed in site-local wall-clock time; every computed instant is
// converted to UTC before comparison.

var (
	ErrBadDateValue  = errors.New("unparseable date value")
	ErrBadClockValue = errors.New("unparseable clock value")
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
}

// parseLocalDate parses a wall-clock date string in the given location and
// returns the equivalent UTC instant
func parseLocalDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrBadDateValue
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateValue, value)
}

// parseClock parses "H:MM", "HH:MM", or "H:MM AM/PM" into a duration past
// midnight. A blank value defaults to midnight
func parseClock(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	upper := strings.ToUpper(value)
	meridiem := ""
	for _, m := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, m) {
			meridiem = m
			upper = strings.TrimSpace(strings.TrimSuffix(upper, m))
			break
		}
	}

	parts := strings.SplitN(upper, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadClockValue, value)
	}

	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClockValue, value)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClockValue, value)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadClockValue, value)
	}

	switch meridiem {
	case "PM":
		if hours < 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute, nil
}

// offsetDuration converts a count of schedule units to a duration. Days and
// weeks are fixed 24h multiples so that offsets are exactly monotonic
func offsetDuration(n int, unit api.OffsetUnit) time.Duration {
	switch unit {
	case api.UnitMinutes:
		return time.Duration(n) * time.Minute
	case api.UnitHours:
		return time.Duration(n) * time.Hour
	case api.UnitWeeks:
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return time.Duration(n) * 24 * time.Hour
	}
}

// applyOffset shifts an anchor instant by a signed configured offset
func applyOffset(
	anchor time.Time, n int, unit api.OffsetUnit, dir api.OffsetDirection,
) time.Time {
	d := offsetDuration(n, unit)
	if dir == api.DirectionBefore {
		return anchor.Add(-d)
	}
	return anchor.Add(d)
}
