package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// ErrStepNotFound is returned when a step ID is absent from a form's list
var ErrStepNotFound = errors.New("step not found")

// Steps returns a form's ordered step list
func (s *RedisStore) Steps(
	ctx context.Context, formID api.FormID,
) ([]*api.Step, error) {
	data, err := s.client.Get(ctx, s.stepsKey(formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var steps []*api.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// PutSteps replaces a form's ordered step list. Each step is validated
// before anything is written
func (s *RedisStore) PutSteps(
	ctx context.Context, formID api.FormID, steps []*api.Step,
) error {
	for _, step := range steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	data, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stepsKey(formID), data, 0).Err()
}

// Step finds one step in a form's list
func (s *RedisStore) Step(
	ctx context.Context, formID api.FormID, stepID api.StepID,
) (*api.Step, error) {
	steps, err := s.Steps(ctx, formID)
	if err != nil {
		return nil, err
	}
	return findStep(steps, stepID)
}

func (s *RedisStore) stepsKey(formID api.FormID) string {
	return fmt.Sprintf("%s:steps:%s", s.prefix, formID)
}

// Steps returns a form's ordered step list
func (s *MemoryStore) Steps(
	_ context.Context, formID api.FormID,
) ([]*api.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[formID], nil
}

// PutSteps replaces a form's ordered step list
func (s *MemoryStore) PutSteps(
	_ context.Context, formID api.FormID, steps []*api.Step,
) error {
	for _, step := range steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[formID] = steps
	return nil
}

// Step finds one step in a form's list
func (s *MemoryStore) Step(
	ctx context.Context, formID api.FormID, stepID api.StepID,
) (*api.Step, error) {
	steps, err := s.Steps(ctx, formID)
	if err != nil {
		return nil, err
	}
	return findStep(steps, stepID)
}

func findStep(steps []*api.Step, stepID api.StepID) (*api.Step, error) {
	for _, step := range steps {
		if step.ID == stepID {
			return step, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
}

// NextActiveStep resolves a step's successor within the ordered list. A
// concrete destination is looked up directly; the symbolic next walks
// forward to the first active step; complete and a walked-off end both
// resolve to nil
func NextActiveStep(
	steps []*api.Step, current api.StepID, next api.NextStep,
) *api.Step {
	switch next {
	case api.NextStepComplete:
		return nil
	case api.NextStepNext, "":
		idx := -1
		for i, step := range steps {
			if step.ID == current {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		for _, step := range steps[idx+1:] {
			if step.Active {
				return step
			}
		}
		return nil
	default:
		for _, step := range steps {
			if step.ID == api.StepID(next) && step.Active {
				return step
			}
		}
		return nil
	}
}
