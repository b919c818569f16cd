package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/turnstilehq/turnstile/pkg/api"
)

type (
	// Kind is the capability interface a step type implements. Behavior is
	// selected by the step's type tag, not by inheritance
	Kind interface {
		Type() api.StepType

		// Process performs the step's business action once scheduling has
		// cleared. It returns true when the step is already complete
		Process(ctx context.Context, r *Run) (bool, error)

		// EvaluateStatus reports the kind's internal condition once the core
		// state machine has ruled out queued, expired, and never-started
		EvaluateStatus(ctx context.Context, r *Run) (api.Status, error)

		// StatusConfig declares the kind's status vocabulary
		StatusConfig() []api.StatusConfig

		// SupportsExpiration opts the kind into expiration evaluation
		SupportsExpiration() bool

		// ValidateNote checks a note accompanying a status update. A failed
		// check is a structured invalid-result, not an error
		ValidateNote(status api.Status, note string) (bool, string)
	}

	// Registry maps step types to their kind implementations
	Registry struct {
		kinds map[api.StepType]Kind
		mu    sync.RWMutex
	}
)

// NewRegistry creates an empty kind registry
func NewRegistry() *Registry {
	return &Registry{kinds: map[api.StepType]Kind{}}
}

// Register adds or replaces the kind for a step type
func (r *Registry) Register(k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k.Type()] = k
}

// Lookup resolves the kind for a step type
func (r *Registry) Lookup(t api.StepType) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepKind, t)
	}
	return k, nil
}

// RegisterBuiltinKinds installs the step kinds that ship with the engine
func RegisterBuiltinKinds(r *Registry) {
	r.Register(&ApprovalKind{})
	r.Register(&UserInputKind{})
	r.Register(&NotificationKind{})
}

// BaseKind supplies the default behaviors a kind may embed: no expiration
// support, a single complete status, completion reported unconditionally,
// and notes accepted as-is
type BaseKind struct{}

func (BaseKind) EvaluateStatus(context.Context, *Run) (api.Status, error) {
	return api.StatusComplete, nil
}

func (BaseKind) StatusConfig() []api.StatusConfig {
	return []api.StatusConfig{
		{Status: api.StatusComplete, Label: "Complete"},
	}
}

func (BaseKind) SupportsExpiration() bool {
	return false
}

func (BaseKind) ValidateNote(api.Status, string) (bool, string) {
	return true, ""
}
