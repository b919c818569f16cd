package api

import (
	"errors"
	"fmt"
)

type (
	// StepType discriminates step behavior. Kind implementations are selected
	// from a registry by this tag rather than by inheritance
	StepType string

	// NextStep is either a concrete StepID or one of the symbolic values
	// NextStepNext / NextStepComplete
	NextStep string

	// Step is the persisted definition of one workflow step. It is created
	// from feed configuration, mutated only in memory during an invocation,
	// and never written back; all per-entry state lives in entry meta
	Step struct {
		ID       StepID       `json:"id"`
		Type     StepType     `json:"type"`
		FormID   FormID       `json:"form_id"`
		Name     string       `json:"name"`
		Active   bool         `json:"active"`
		Settings StepSettings `json:"settings"`
	}

	// StepSettings is the typed configuration of a step. Optional settings
	// have explicit zero-value defaults instead of dynamic map lookups
	StepSettings struct {
		Schedule      ScheduleSettings             `json:"schedule"`
		Expiration    ExpirationSettings           `json:"expiration"`
		Assignment    AssignmentSettings           `json:"assignment"`
		Notifications map[NotificationType]*NotificationSettings `json:"notifications,omitempty"`
		NextStepID    NextStep                     `json:"next_step_id,omitempty"`
	}

	// OffsetUnit is the vocabulary for schedule and expiration offsets
	OffsetUnit string

	// OffsetDirection applies an offset before or after its anchor instant
	OffsetDirection string

	// ScheduleType selects how a schedule or expiration instant is computed
	ScheduleType string

	// ScheduleSettings decides when a step may begin processing. The zero
	// value means unscheduled: the step may always proceed
	ScheduleSettings struct {
		Enabled     bool            `json:"enabled"`
		Type        ScheduleType    `json:"type,omitempty"`
		Date        string          `json:"date,omitempty"`
		DateFieldID FieldID         `json:"date_field_id,omitempty"`
		TimeFieldID FieldID         `json:"time_field_id,omitempty"`
		Offset      int             `json:"offset,omitempty"`
		Unit        OffsetUnit      `json:"unit,omitempty"`
		Direction   OffsetDirection `json:"direction,omitempty"`
	}

	// ExpirationSettings decides when a step ages out. Shape mirrors
	// ScheduleSettings with an independent configuration namespace
	ExpirationSettings struct {
		Enabled            bool            `json:"enabled"`
		Type               ScheduleType    `json:"type,omitempty"`
		Date               string          `json:"date,omitempty"`
		DateFieldID        FieldID         `json:"date_field_id,omitempty"`
		TimeFieldID        FieldID         `json:"time_field_id,omitempty"`
		Offset             int             `json:"offset,omitempty"`
		Unit               OffsetUnit      `json:"unit,omitempty"`
		Direction          OffsetDirection `json:"direction,omitempty"`
		StatusOnExpiration Status          `json:"status_on_expiration,omitempty"`
	}

	// AssignmentMode selects explicit assignee lists or rule-based routing
	AssignmentMode string

	// AssignmentSettings configures how the step's responsible parties are
	// resolved
	AssignmentSettings struct {
		Mode      AssignmentMode `json:"mode,omitempty"`
		Assignees []AssigneeRef  `json:"assignees,omitempty"`
		Rules     []RoutingRule  `json:"rules,omitempty"`
	}
)

const (
	NextStepNext     NextStep = "next"
	NextStepComplete NextStep = "complete"

	ScheduleDate      ScheduleType = "date"
	ScheduleDateField ScheduleType = "date_field"
	ScheduleTimeField ScheduleType = "time_field"
	ScheduleDelay     ScheduleType = "delay"

	UnitMinutes OffsetUnit = "minutes"
	UnitHours   OffsetUnit = "hours"
	UnitDays    OffsetUnit = "days"
	UnitWeeks   OffsetUnit = "weeks"

	DirectionBefore OffsetDirection = "before"
	DirectionAfter  OffsetDirection = "after"

	AssignmentSelect  AssignmentMode = "select"
	AssignmentRouting AssignmentMode = "routing"
)

var (
	ErrStepIDEmpty        = errors.New("step ID empty")
	ErrStepTypeEmpty      = errors.New("step type empty")
	ErrStepFormEmpty      = errors.New("step form ID empty")
	ErrStepNextSelf       = errors.New("step next_step_id references itself")
	ErrInvalidScheduleTyp = errors.New("invalid schedule type")
	ErrInvalidOffsetUnit  = errors.New("invalid offset unit")
	ErrInvalidAssignMode  = errors.New("invalid assignment mode")
)

var (
	validScheduleTypes = map[ScheduleType]struct{}{
		ScheduleDate: {}, ScheduleDateField: {},
		ScheduleTimeField: {}, ScheduleDelay: {},
	}

	validOffsetUnits = map[OffsetUnit]struct{}{
		UnitMinutes: {}, UnitHours: {}, UnitDays: {}, UnitWeeks: {},
	}
)

// Validate checks a step definition for structural problems. Configuration
// gaps (missing dates, empty subjects) are not errors; they resolve to
// documented defaults at evaluation time
func (s *Step) Validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}
	if s.Type == "" {
		return ErrStepTypeEmpty
	}
	if s.FormID == "" {
		return ErrStepFormEmpty
	}
	if NextStep(s.ID) == s.Settings.NextStepID {
		return fmt.Errorf("%w: %s", ErrStepNextSelf, s.ID)
	}

	if err := validateTiming(
		s.Settings.Schedule.Enabled, s.Settings.Schedule.Type,
		s.Settings.Schedule.Unit,
	); err != nil {
		return err
	}
	if err := validateTiming(
		s.Settings.Expiration.Enabled, s.Settings.Expiration.Type,
		s.Settings.Expiration.Unit,
	); err != nil {
		return err
	}

	switch s.Settings.Assignment.Mode {
	case "", AssignmentSelect, AssignmentRouting:
	default:
		return fmt.Errorf("%w: %s",
			ErrInvalidAssignMode, s.Settings.Assignment.Mode)
	}
	return nil
}

func validateTiming(enabled bool, typ ScheduleType, unit OffsetUnit) error {
	if !enabled {
		return nil
	}
	if typ != "" {
		if _, ok := validScheduleTypes[typ]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidScheduleTyp, typ)
		}
	}
	if unit != "" {
		if _, ok := validOffsetUnits[unit]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidOffsetUnit, unit)
		}
	}
	return nil
}

// Notification returns the settings for a notification type, or nil when the
// type is not configured
func (s *StepSettings) Notification(
	t NotificationType,
) *NotificationSettings {
	if s.Notifications == nil {
		return nil
	}
	return s.Notifications[t]
}
