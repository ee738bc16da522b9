package attributes

import (
	"log/slog"
	"math"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/effect-runtime/internal/errors"
)

// Config holds everything a Collection needs at construction time.
// Attribute identities are fixed here; referencing an unregistered ID
// later is a programmer error and degrades to a logged no-op.
type Config struct {
	// Owner is the entity this collection belongs to; carried as the
	// source of every attribute notification.
	Owner core.Entity

	// EventBus receives the informational clamped/finalized events.
	EventBus events.EventBus

	// IDs lists every attribute the collection tracks, in registration
	// order.
	IDs []ID

	// Pairs declares the current↔max relationships.
	Pairs []Pair

	// Defaults seeds base and current values per attribute. Missing
	// entries start at zero.
	Defaults map[ID]float64

	// Decimals overrides the rounding policy per attribute.
	Decimals map[ID]int

	// DefaultDecimals applies to attributes absent from Decimals.
	// Zero means round to integers.
	DefaultDecimals int
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Owner == nil {
		vb.RequiredField("Owner")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}
	if len(c.IDs) == 0 {
		vb.RequiredField("IDs")
	}

	known := make(map[ID]struct{}, len(c.IDs))
	for _, id := range c.IDs {
		if _, dup := known[id]; dup {
			vb.Fieldf("IDs", "duplicate attribute %q", id)
		}
		known[id] = struct{}{}
	}
	for _, p := range c.Pairs {
		if _, ok := known[p.Current]; !ok {
			vb.Fieldf("Pairs", "current attribute %q is not registered", p.Current)
		}
		if _, ok := known[p.Max]; !ok {
			vb.Fieldf("Pairs", "max attribute %q is not registered", p.Max)
		}
	}

	return vb.Build()
}

// Collection owns a named set of numeric attributes with base/current
// duality. It is the sole owner of its records: every mutation passes
// through the three-tier pipeline (clampCurrent, clampBase, Finalize),
// so a paired current value never escapes [0, max].
//
// Collections are exclusively owned by one entity and never mutated
// concurrently; there is no locking here.
type Collection struct {
	owner           core.Entity
	bus             events.EventBus
	records         map[ID]*Record
	pairs           *PairRegistry
	decimals        map[ID]int
	defaultDecimals int

	// prevCurrent remembers the current value seen before the latest
	// write, so Finalize can report (old, new) on its notification.
	prevCurrent map[ID]float64
}

// NewCollection creates a collection with the configured attribute set,
// pairings, defaults, and rounding policy.
func NewCollection(cfg *Config) (*Collection, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := &Collection{
		owner:           cfg.Owner,
		bus:             cfg.EventBus,
		records:         make(map[ID]*Record, len(cfg.IDs)),
		pairs:           NewPairRegistry(),
		decimals:        make(map[ID]int, len(cfg.Decimals)),
		defaultDecimals: cfg.DefaultDecimals,
		prevCurrent:     make(map[ID]float64, len(cfg.IDs)),
	}
	for id, d := range cfg.Decimals {
		c.decimals[id] = d
	}

	for _, p := range cfg.Pairs {
		if err := c.pairs.Register(p.Current, p.Max); err != nil {
			return nil, errors.Wrapf(err, "registering pair %s/%s", p.Current, p.Max)
		}
	}

	// Seed records with rounded defaults first so max values exist
	// before paired currents get clamped against them.
	for _, id := range cfg.IDs {
		v := Round(cfg.Defaults[id], c.Decimals(id))
		c.records[id] = &Record{Base: v, Current: v}
	}
	for _, p := range cfg.Pairs {
		rec := c.records[p.Current]
		maxValue := c.records[p.Max].Current
		rec.Base = clamp(rec.Base, 0, maxValue)
		rec.Current = clamp(rec.Current, 0, maxValue)
	}
	for id, rec := range c.records {
		c.prevCurrent[id] = rec.Current
	}

	return c, nil
}

// NewStandardCollection builds the full standard roster with the default
// pairings and rounding policy. Defaults may be nil for an all-zero
// collection.
func NewStandardCollection(owner core.Entity, bus events.EventBus, defaults map[ID]float64) (*Collection, error) {
	return NewCollection(&Config{
		Owner:    owner,
		EventBus: bus,
		IDs:      StandardIDs(),
		Pairs:    StandardPairs(),
		Defaults: defaults,
		Decimals: StandardDecimals(),
	})
}

// Owner returns the entity this collection belongs to
func (c *Collection) Owner() core.Entity {
	return c.owner
}

// Has reports whether id is registered on this collection
func (c *Collection) Has(id ID) bool {
	_, ok := c.records[id]
	return ok
}

// Current returns the current value of id, or 0 for an unregistered ID
func (c *Collection) Current(id ID) float64 {
	rec, ok := c.records[id]
	if !ok {
		slog.Warn("read of unregistered attribute", "owner", c.owner.GetID(), "attribute", id)
		return 0
	}
	return rec.Current
}

// Base returns the base value of id, or 0 for an unregistered ID
func (c *Collection) Base(id ID) float64 {
	rec, ok := c.records[id]
	if !ok {
		slog.Warn("read of unregistered attribute", "owner", c.owner.GetID(), "attribute", id)
		return 0
	}
	return rec.Base
}

// Decimals returns the rounding policy for id
func (c *Collection) Decimals(id ID) int {
	if d, ok := c.decimals[id]; ok {
		return d
	}
	return c.defaultDecimals
}

// MaxFor returns the max attribute paired with current, if any
func (c *Collection) MaxFor(current ID) (ID, bool) {
	return c.pairs.MaxFor(current)
}

// CurrentFor returns the current attribute bounded by maxID, if any
func (c *Collection) CurrentFor(maxID ID) (ID, bool) {
	return c.pairs.CurrentFor(maxID)
}

// clampCurrent is tier 1 of the pipeline: it computes the value that a
// proposed current-value write is allowed to persist. It writes nothing
// and triggers no side effects beyond the informational clamped event.
func (c *Collection) clampCurrent(id ID, proposed float64) float64 {
	if !isFinite(proposed) {
		slog.Error("non-finite current value rejected", "owner", c.owner.GetID(), "attribute", id, "proposed", proposed)
		return c.Current(id)
	}

	clamped := proposed
	if maxID, ok := c.pairs.MaxFor(id); ok {
		clamped = clamp(clamped, 0, c.Current(maxID))
	}
	clamped = Round(clamped, c.Decimals(id))

	if clamped != Round(proposed, c.Decimals(id)) {
		c.publish(EventClamped, id, proposed, clamped)
	}
	return clamped
}

// clampBase is tier 2: same contract as clampCurrent, applied to base
// writes (one-shot and periodic modifications write through base).
func (c *Collection) clampBase(id ID, proposed float64) float64 {
	if !isFinite(proposed) {
		slog.Error("non-finite base value rejected", "owner", c.owner.GetID(), "attribute", id, "proposed", proposed)
		return c.Base(id)
	}

	clamped := proposed
	if maxID, ok := c.pairs.MaxFor(id); ok {
		clamped = clamp(clamped, 0, c.Current(maxID))
	}
	clamped = Round(clamped, c.Decimals(id))

	if clamped != Round(proposed, c.Decimals(id)) {
		c.publish(EventClamped, id, proposed, clamped)
	}
	return clamped
}

// SetCurrent is the authoritative current-value setter: the proposed
// value passes through tier 1 and the result is persisted. Returns false
// if id is unregistered.
func (c *Collection) SetCurrent(id ID, value float64) bool {
	rec, ok := c.records[id]
	if !ok {
		slog.Warn("write to unregistered attribute", "owner", c.owner.GetID(), "attribute", id)
		return false
	}
	c.prevCurrent[id] = rec.Current
	rec.Current = c.clampCurrent(id, value)
	return true
}

// SetBase is the authoritative base-value setter: the proposed value
// passes through tier 2 and the result is persisted. Returns false if id
// is unregistered.
func (c *Collection) SetBase(id ID, value float64) bool {
	rec, ok := c.records[id]
	if !ok {
		slog.Warn("write to unregistered attribute", "owner", c.owner.GetID(), "attribute", id)
		return false
	}
	rec.Base = c.clampBase(id, value)
	return true
}

// Finalize is tier 3, invoked once after a modification has fully
// applied to id. This is the only tier allowed to write attributes other
// than the one that changed: when a max attribute moved, its paired
// current is re-clamped into the new range and persisted through
// SetCurrent, which re-enters tier 1 idempotently.
func (c *Collection) Finalize(id ID, newValue float64) {
	if !c.Has(id) {
		slog.Warn("finalize of unregistered attribute", "owner", c.owner.GetID(), "attribute", id)
		return
	}

	if currentID, ok := c.pairs.CurrentFor(id); ok {
		oldCurrent := c.Current(currentID)
		reclamped := Round(clamp(oldCurrent, 0, newValue), c.Decimals(currentID))
		if reclamped != oldCurrent {
			c.SetCurrent(currentID, reclamped)
			c.publish(EventFinalized, currentID, oldCurrent, reclamped)
		}
	}

	c.publish(EventFinalized, id, c.prevCurrent[id], newValue)
	c.prevCurrent[id] = newValue
}

// Snapshot returns a read-only copy of every record, for UI bindings and
// replication mirrors.
func (c *Collection) Snapshot() map[ID]Record {
	out := make(map[ID]Record, len(c.records))
	for id, rec := range c.records {
		out[id] = *rec
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
