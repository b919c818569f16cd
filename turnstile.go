// Package turnstile is the lifecycle engine for a single step inside a
// multi-step approval workflow attached to a form entry. The core packages
// live under internal/engine; public types are in pkg/api.
package turnstile

const (
	// Name is the service name reported in logs and health responses
	Name = "turnstile"

	// Version is the service version reported in logs and health responses
	Version = "0.4.0"
)
