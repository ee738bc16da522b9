package attributes

import (
	"context"

	"github.com/KirkDiggler/rpg-toolkit/events"
)

// Event topics published by a Collection. Both are informational:
// subscribers observe (attribute, old, new) and must not mutate state in
// response.
const (
	// EventClamped fires from the pre-change tiers when a proposed value
	// had to be pulled back into range.
	EventClamped = "attribute.clamped"

	// EventFinalized fires once per fully applied modification.
	EventFinalized = "attribute.finalized"
)

// Context keys carried on attribute events
const (
	ContextKeyAttribute = "attribute"
	ContextKeyOldValue  = "old_value"
	ContextKeyNewValue  = "new_value"
)

// publish emits an informational attribute event on the collection's bus.
// Notifications are fire-and-forget; a subscriber error never affects
// attribute state.
func (c *Collection) publish(topic string, id ID, oldValue, newValue float64) {
	event := events.NewGameEvent(topic, c.owner, c.owner)
	event.Context().Set(ContextKeyAttribute, string(id))
	event.Context().Set(ContextKeyOldValue, oldValue)
	event.Context().Set(ContextKeyNewValue, newValue)

	_ = c.bus.Publish(context.Background(), event)
}
