package effects

// TrackedEffect records one application an agent is responsible for
// removing later. The target is referenced by ID only — weak semantics:
// tracking never keeps a target alive, and a target that no longer
// resolves counts as gone.
type TrackedEffect struct {
	Handle           Handle
	TargetID         string
	DescriptorID     string
	StacksToRemove   int
	DestroyOnRemoval bool
}

// Tracker maps live handles to tracked effects. Owned by one agent and
// mutated only from the event-dispatch thread.
type Tracker struct {
	entries map[Handle]TrackedEffect
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[Handle]TrackedEffect)}
}

// Track records an application. Re-tracking an existing handle
// overwrites the record: when stacking folds a re-application into a
// handle we already track, the latest config's removal intent wins.
func (t *Tracker) Track(entry TrackedEffect) {
	t.entries[entry.Handle] = entry
}

// Matches returns the tracked effects whose target is alive and equal
// to targetID and whose descriptor identity matches descriptorID.
func (t *Tracker) Matches(targetID, descriptorID string, alive func(targetID string) bool) []TrackedEffect {
	var matches []TrackedEffect
	for _, entry := range t.entries {
		if !alive(entry.TargetID) {
			continue
		}
		if entry.TargetID == targetID && entry.DescriptorID == descriptorID {
			matches = append(matches, entry)
		}
	}
	return matches
}

// Forget drops the entry for handle, if tracked
func (t *Tracker) Forget(handle Handle) {
	delete(t.entries, handle)
}

// Sweep purges entries whose target is dead or whose handle is no
// longer active on its target, bounding tracker growth. activeOn is only
// consulted for live targets.
func (t *Tracker) Sweep(alive func(targetID string) bool, activeOn func(targetID string, h Handle) bool) int {
	purged := 0
	for handle, entry := range t.entries {
		if alive(entry.TargetID) && activeOn(entry.TargetID, handle) {
			continue
		}
		delete(t.entries, handle)
		purged++
	}
	return purged
}

// Len returns the number of tracked entries
func (t *Tracker) Len() int {
	return len(t.entries)
}
