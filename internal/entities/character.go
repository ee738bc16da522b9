package entities

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/effects"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/clock"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/idgen"
)

// EntityTypeCharacter is the core.Entity type for characters
const EntityTypeCharacter = "character"

// Character is the standard Target implementation: a combat entity with
// the full standard attribute roster. Created once at spawn and mutated
// through its ActiveSet for its whole lifetime.
type Character struct {
	id    string
	attrs *attributes.Collection
	set   *effects.ActiveSet
}

// CharacterConfig holds everything needed to spawn a character
type CharacterConfig struct {
	ID       string
	EventBus events.EventBus
	Roller   dice.Roller
	Clock    clock.Clock
	IDGen    idgen.Generator

	// Defaults seeds initial attribute values; nil starts all-zero.
	Defaults map[attributes.ID]float64
}

// Validate ensures all required dependencies are provided
func (c *CharacterConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.ID == "" {
		vb.RequiredField("ID")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.IDGen == nil {
		vb.RequiredField("IDGen")
	}

	return vb.Build()
}

// NewCharacter spawns a character with the standard attribute roster
func NewCharacter(cfg *CharacterConfig) (*Character, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ch := &Character{id: cfg.ID}

	attrs, err := attributes.NewStandardCollection(ch, cfg.EventBus, cfg.Defaults)
	if err != nil {
		return nil, errors.Wrap(err, "building attribute collection")
	}
	ch.attrs = attrs

	set, err := effects.NewActiveSet(&effects.SetConfig{
		Attributes:  attrs,
		Roller:      cfg.Roller,
		Clock:       cfg.Clock,
		IDGenerator: cfg.IDGen,
		EventBus:    cfg.EventBus,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building active effect set")
	}
	ch.set = set

	return ch, nil
}

// GetID implements core.Entity
func (c *Character) GetID() string {
	return c.id
}

// GetType implements core.Entity
func (c *Character) GetType() string {
	return EntityTypeCharacter
}

// Attributes implements Target
func (c *Character) Attributes() *attributes.Collection {
	return c.attrs
}

// Effects implements Target
func (c *Character) Effects() *effects.ActiveSet {
	return c.set
}
