package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turnstilehq/turnstile/internal/config"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// Wrapper wraps testify assertions with workflow-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
}

// New creates a new test assertion wrapper
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
	}
}

// StepValid asserts that a step definition is valid
func (w *Wrapper) StepValid(s *api.Step) {
	w.Helper()
	w.NoError(s.Validate())
	w.NotEmpty(s.ID)
	w.NotEmpty(s.Type)
}

// StepInvalid asserts that a step is invalid and returns the validation error
func (w *Wrapper) StepInvalid(s *api.Step, contains string) error {
	w.Helper()
	err := s.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
	return err
}

// MetaHas asserts that a meta snapshot contains a key
func (w *Wrapper) MetaHas(m api.Meta, key string) {
	w.Helper()
	_, ok := m[key]
	w.True(ok, "meta should have key: %s", key)
}

// MetaMissing asserts that a meta snapshot does not contain a key
func (w *Wrapper) MetaMissing(m api.Meta, key string) {
	w.Helper()
	_, ok := m[key]
	w.False(ok, "meta should not have key: %s", key)
}

// MetaEquals asserts that a meta key holds the expected value
func (w *Wrapper) MetaEquals(m api.Meta, key, expected string) {
	w.Helper()
	w.Equal(expected, m[key], "meta key: %s", key)
}

// StatusEquals asserts a status value
func (w *Wrapper) StatusEquals(expected, actual api.Status) {
	w.Helper()
	w.Equal(expected, actual)
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= config.MaxTCPPort)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}
