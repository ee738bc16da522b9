package entities

import (
	"github.com/KirkDiggler/effect-runtime/internal/errors"
)

// Registry is the in-memory Resolver the host registers live targets
// in. Removing a target makes every reference to it weak-dead: trackers
// holding its ID stop resolving it and sweep their entries.
type Registry struct {
	targets map[string]Target
}

// NewRegistry creates an empty target registry
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Add registers a target under its entity ID
func (r *Registry) Add(t Target) error {
	if t == nil {
		return errors.InvalidArgument("target is required")
	}
	if _, exists := r.targets[t.GetID()]; exists {
		return errors.AlreadyExists("target " + t.GetID() + " already registered")
	}
	r.targets[t.GetID()] = t
	return nil
}

// Remove unregisters a target, typically at despawn
func (r *Registry) Remove(targetID string) {
	delete(r.targets, targetID)
}

// Resolve implements Resolver
func (r *Registry) Resolve(targetID string) (Target, bool) {
	t, ok := r.targets[targetID]
	return t, ok
}

// Each visits every registered target. Iteration order is unspecified.
func (r *Registry) Each(fn func(Target)) {
	for _, t := range r.targets {
		fn(t)
	}
}

// Len returns the number of registered targets
func (r *Registry) Len() int {
	return len(r.targets)
}
