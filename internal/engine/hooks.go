package engine

import (
	"sync"
	"time"

	"github.com/turnstilehq/turnstile/pkg/api"
)

type (
	// InstantTransform adjusts a computed schedule or expiration instant.
	// Transforms run in registration order; the default pipeline is identity
	InstantTransform func(r *Run, t time.Time) time.Time

	// NotificationTransform adjusts an assembled notification before dedup
	// and delivery
	NotificationTransform func(r *Run, n *api.Notification)

	// Hooks holds the engine's ordered extension-point pipelines
	Hooks struct {
		schedule     []InstantTransform
		expiration   []InstantTransform
		notification []NotificationTransform
		mu           sync.RWMutex
	}
)

// NewHooks creates empty transform pipelines
func NewHooks() *Hooks {
	return &Hooks{}
}

// OnSchedule appends a transform to the schedule instant pipeline
func (h *Hooks) OnSchedule(t InstantTransform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.schedule = append(h.schedule, t)
}

// OnExpiration appends a transform to the expiration instant pipeline
func (h *Hooks) OnExpiration(t InstantTransform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expiration = append(h.expiration, t)
}

// OnNotification appends a transform to the notification pipeline
func (h *Hooks) OnNotification(t NotificationTransform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notification = append(h.notification, t)
}

func (h *Hooks) applySchedule(r *Run, t time.Time) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, f := range h.schedule {
		t = f(r, t)
	}
	return t
}

func (h *Hooks) applyExpiration(r *Run, t time.Time) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, f := range h.expiration {
		t = f(r, t)
	}
	return t
}

func (h *Hooks) applyNotification(r *Run, n *api.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, f := range h.notification {
		f(r, n)
	}
}
