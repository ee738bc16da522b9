// Package entities defines the targets effects apply to and the
// resolver boundary through which agents find them. Region events fire
// for many entity kinds; only entities that expose an attribute
// collection are valid targets, and everything else resolves to nothing.
package entities

import (
	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/effects"
)

//go:generate mockgen -destination=mock/mock_resolver.go -package=entitiesmock github.com/KirkDiggler/effect-runtime/internal/entities Resolver

// Target is an entity that owns combat state: an attribute collection
// and the active effect set mutating it.
type Target interface {
	core.Entity

	Attributes() *attributes.Collection
	Effects() *effects.ActiveSet
}

// Resolver resolves an opaque target identity to its attribute
// collection owner. A false return is the normal outcome for entities
// that carry no combat state, not an error.
type Resolver interface {
	Resolve(targetID string) (Target, bool)
}
