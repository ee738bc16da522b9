package attributes

import (
	"github.com/KirkDiggler/effect-runtime/internal/errors"
)

// PairRegistry is the bidirectional current↔max mapping consulted by the
// clamp pipeline. Populated once at collection construction; registration
// is symmetric, and an ID may appear as a current in at most one pairing.
type PairRegistry struct {
	currentToMax map[ID]ID
	maxToCurrent map[ID]ID
}

// NewPairRegistry creates an empty registry
func NewPairRegistry() *PairRegistry {
	return &PairRegistry{
		currentToMax: make(map[ID]ID),
		maxToCurrent: make(map[ID]ID),
	}
}

// Register records current↔max in both directions. Both maps are updated
// together so lookups never see a half-registered pair.
func (r *PairRegistry) Register(current, maxID ID) error {
	if current == "" || maxID == "" {
		return errors.InvalidArgument("pair registration requires both attribute IDs")
	}
	if current == maxID {
		return errors.InvalidArgumentf("attribute %q cannot be its own maximum", current)
	}
	if existing, ok := r.currentToMax[current]; ok {
		return errors.AlreadyExists(
			"attribute " + string(current) + " already paired with " + string(existing))
	}
	if existing, ok := r.maxToCurrent[maxID]; ok {
		return errors.AlreadyExists(
			"attribute " + string(maxID) + " already bounds " + string(existing))
	}

	r.currentToMax[current] = maxID
	r.maxToCurrent[maxID] = current
	return nil
}

// MaxFor returns the max attribute paired with current, if any
func (r *PairRegistry) MaxFor(current ID) (ID, bool) {
	maxID, ok := r.currentToMax[current]
	return maxID, ok
}

// CurrentFor returns the current attribute bounded by maxID, if any
func (r *PairRegistry) CurrentFor(maxID ID) (ID, bool) {
	current, ok := r.maxToCurrent[maxID]
	return current, ok
}

// Len returns the number of registered pairs
func (r *PairRegistry) Len() int {
	return len(r.currentToMax)
}
