package effects

import (
	"github.com/KirkDiggler/effect-runtime/internal/errors"
)

// ApplyPolicy decides which region event triggers an application.
type ApplyPolicy string

// Apply policies
const (
	ApplyOnEnter ApplyPolicy = "on_enter"
	ApplyOnExit  ApplyPolicy = "on_exit"
	// ApplyManual configs are never applied by region events; the host
	// drives them through the agent's manual primitive.
	ApplyManual ApplyPolicy = "manual"
)

// RemovePolicy decides which region event triggers removal.
type RemovePolicy string

// Remove policies
const (
	RemoveOnEnter RemovePolicy = "on_enter"
	RemoveOnExit  RemovePolicy = "on_exit"
	// RemoveManual effects are tracked but only removed through the
	// agent's manual primitive.
	RemoveManual RemovePolicy = "manual"
	// RemoveNever effects are never removed by this agent and are not
	// tracked at all.
	RemoveNever RemovePolicy = "never"
)

// Config binds a descriptor to apply/remove timing on one agent.
// Immutable once the agent is configured.
type Config struct {
	Descriptor *Descriptor `yaml:"descriptor"`

	ApplyPolicy  ApplyPolicy  `yaml:"apply_policy"`
	RemovePolicy RemovePolicy `yaml:"remove_policy"`

	// StacksToRemove caps how many stacks a removal takes; <= 0 means
	// remove all stacks.
	StacksToRemove int `yaml:"stacks_to_remove,omitempty"`

	// DestroyOwnerOnApply signals the agent's own destruction right
	// after this config applies (consumables).
	DestroyOwnerOnApply bool `yaml:"destroy_owner_on_apply,omitempty"`

	// DestroyOwnerOnRemoval signals destruction once a removal matching
	// this config actually removed stacks.
	DestroyOwnerOnRemoval bool `yaml:"destroy_owner_on_removal,omitempty"`
}

// Validate checks the config is well formed
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Descriptor == nil {
		vb.RequiredField("Descriptor")
	} else if err := c.Descriptor.Validate(); err != nil {
		vb.InvalidField("Descriptor", err.Error())
	}

	switch c.ApplyPolicy {
	case ApplyOnEnter, ApplyOnExit, ApplyManual:
	default:
		vb.Fieldf("ApplyPolicy", "unknown policy %q", c.ApplyPolicy)
	}
	switch c.RemovePolicy {
	case RemoveOnEnter, RemoveOnExit, RemoveManual, RemoveNever:
	default:
		vb.Fieldf("RemovePolicy", "unknown policy %q", c.RemovePolicy)
	}

	if c.Descriptor != nil && c.Descriptor.Kind == KindOneShot && c.RemovePolicy != RemoveNever {
		vb.Field("RemovePolicy", "one-shot effects leave nothing to remove")
	}

	return vb.Build()
}

// Tracked reports whether applications of this config should be
// recorded for later removal.
func (c *Config) Tracked() bool {
	return c.Descriptor != nil && c.Descriptor.IsNonInstant() && c.RemovePolicy != RemoveNever
}
