package region

// RegionEnterInput carries the identity of the entity that entered the
// agent's trigger volume.
type RegionEnterInput struct {
	TargetID string
}

// RegionEnterOutput reports what the enter event did
type RegionEnterOutput struct {
	// Applied counts configs that applied to a resolved target.
	Applied int
	// RemovedStacks sums the stacks removed across all matching handles.
	RemovedStacks int
	// Destroyed reports whether this event triggered the agent's own
	// destruction.
	Destroyed bool
}

// RegionExitInput carries the identity of the entity that left the
// agent's trigger volume.
type RegionExitInput struct {
	TargetID string
}

// RegionExitOutput reports what the exit event did
type RegionExitOutput struct {
	Applied       int
	RemovedStacks int
	Destroyed     bool
}

// ApplyEffectInput drives the manual apply primitive for one configured
// descriptor.
type ApplyEffectInput struct {
	TargetID     string
	DescriptorID string
}

// ApplyEffectOutput reports the result of a manual apply
type ApplyEffectOutput struct {
	Applied   bool
	Destroyed bool
}

// RemoveEffectInput drives the manual remove primitive for one
// configured descriptor.
type RemoveEffectInput struct {
	TargetID     string
	DescriptorID string
}

// RemoveEffectOutput reports the result of a manual remove
type RemoveEffectOutput struct {
	RemovedStacks int
	Destroyed     bool
}
