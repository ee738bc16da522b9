package effects

import (
	"context"
	"log/slog"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/clock"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/idgen"
)

// Handle is the opaque token identifying one live timed/ongoing effect
// application. Unique per application; stacking folds repeat
// applications of the same descriptor into one handle.
type Handle string

// TraceContext records who applied an effect, for cues, logs, and
// damage attribution downstream.
type TraceContext struct {
	SourceID string
	CauserID string
}

// Effect lifecycle event topics published by an ActiveSet.
const (
	EventApplied = "effect.applied"
	EventRemoved = "effect.removed"
	EventExpired = "effect.expired"
)

// Context keys carried on effect events
const (
	ContextKeyDescriptor = "descriptor"
	ContextKeyHandle     = "handle"
	ContextKeyStacks     = "stacks"
	ContextKeySource     = "source"
	ContextKeyCauser     = "causer"
)

// stackContribution is the magnitude snapshot of one application: dice
// are rolled and levels applied once, then the numbers stick for that
// stack's lifetime.
type stackContribution struct {
	adds      map[attributes.ID]float64
	mults     map[attributes.ID]float64
	overrides map[attributes.ID]float64
}

// ActiveEffect is one live effect instance on a target.
type ActiveEffect struct {
	Handle     Handle
	Descriptor *Descriptor
	Trace      TraceContext
	AppliedAt  time.Time
	// ExpiresAt is zero for ongoing effects.
	ExpiresAt time.Time

	stacks       []stackContribution
	nextPeriodAt time.Time
}

// Stacks returns the live stack count
func (e *ActiveEffect) Stacks() int {
	return len(e.stacks)
}

// SetConfig holds the dependencies of an ActiveSet
type SetConfig struct {
	Attributes  *attributes.Collection
	Roller      dice.Roller
	Clock       clock.Clock
	IDGenerator idgen.Generator
	EventBus    events.EventBus
}

// Validate ensures all required dependencies are provided
func (c *SetConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Attributes == nil {
		vb.RequiredField("Attributes")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.EventBus == nil {
		vb.RequiredField("EventBus")
	}

	return vb.Build()
}

// ActiveSet is the per-target store of live effects. It owns the only
// write path into its attribute collection: one-shot and periodic
// executions write through base, continuous timed/ongoing modifiers
// aggregate into current, and every change runs the clamp pipeline to
// completion before the call returns.
//
// Owned by one target and driven from the host's single event thread;
// no locking.
type ActiveSet struct {
	attrs  *attributes.Collection
	roller dice.Roller
	clk    clock.Clock
	idGen  idgen.Generator
	bus    events.EventBus

	active       map[Handle]*ActiveEffect
	byDescriptor map[string]Handle
	order        []Handle
}

// NewActiveSet creates an active effect store bound to one collection
func NewActiveSet(cfg *SetConfig) (*ActiveSet, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &ActiveSet{
		attrs:        cfg.Attributes,
		roller:       cfg.Roller,
		clk:          cfg.Clock,
		idGen:        cfg.IDGenerator,
		bus:          cfg.EventBus,
		active:       make(map[Handle]*ActiveEffect),
		byDescriptor: make(map[string]Handle),
	}, nil
}

// Attributes returns the collection this set mutates
func (s *ActiveSet) Attributes() *attributes.Collection {
	return s.attrs
}

// Apply instantiates desc against the target. One-shot descriptors
// execute immediately and return no handle. Timed/ongoing descriptors
// return a live handle; re-applying the same descriptor folds into the
// existing handle with one more stack (timed effects also refresh their
// expiry).
func (s *ActiveSet) Apply(desc *Descriptor, trace TraceContext) (Handle, bool) {
	if desc == nil {
		return "", false
	}

	contribution, err := s.resolveContribution(desc)
	if err != nil {
		slog.Warn("effect application skipped",
			"target", s.attrs.Owner().GetID(),
			"descriptor", desc.ID,
			"error", err,
		)
		return "", false
	}

	if desc.Kind == KindOneShot {
		s.executeBaseWrite(desc, contribution)
		s.publish(EventApplied, desc.ID, "", 0, trace)
		return "", false
	}

	now := s.clk.Now()
	handle, exists := s.byDescriptor[desc.ID]
	if exists {
		effect := s.active[handle]
		effect.stacks = append(effect.stacks, contribution)
		if desc.Kind == KindTimed {
			effect.ExpiresAt = now.Add(secondsToDuration(desc.DurationSeconds))
		}
	} else {
		handle = Handle(s.idGen.Generate())
		effect := &ActiveEffect{
			Handle:     handle,
			Descriptor: desc,
			Trace:      trace,
			AppliedAt:  now,
			stacks:     []stackContribution{contribution},
		}
		if desc.Kind == KindTimed {
			effect.ExpiresAt = now.Add(secondsToDuration(desc.DurationSeconds))
		}
		if desc.IsPeriodic() {
			effect.nextPeriodAt = now.Add(secondsToDuration(desc.PeriodSeconds))
		}
		s.active[handle] = effect
		s.byDescriptor[desc.ID] = handle
		s.order = append(s.order, handle)
	}

	s.recompute(s.affectedAttributes(desc))
	s.publish(EventApplied, desc.ID, handle, s.active[handle].Stacks(), trace)
	return handle, true
}

// Remove takes stacks off the effect behind handle; stacks <= -1 (or
// more stacks than are live) removes the whole effect. Returns how many
// stacks were actually removed, 0 if the handle is not active.
func (s *ActiveSet) Remove(handle Handle, stacks int) int {
	effect, ok := s.active[handle]
	if !ok {
		return 0
	}

	live := effect.Stacks()
	removed := stacks
	if stacks < 0 || stacks >= live {
		removed = live
		s.drop(handle)
	} else {
		effect.stacks = effect.stacks[:live-stacks]
	}

	s.recompute(s.affectedAttributes(effect.Descriptor))
	s.publish(EventRemoved, effect.Descriptor.ID, handle, removed, effect.Trace)
	return removed
}

// IsActive reports whether handle refers to a live effect
func (s *ActiveSet) IsActive(handle Handle) bool {
	_, ok := s.active[handle]
	return ok
}

// StackCount returns the live stack count for handle, 0 if inactive
func (s *ActiveSet) StackCount(handle Handle) int {
	if effect, ok := s.active[handle]; ok {
		return effect.Stacks()
	}
	return 0
}

// HandleFor returns the live handle carrying descriptorID, if any
func (s *ActiveSet) HandleFor(descriptorID string) (Handle, bool) {
	h, ok := s.byDescriptor[descriptorID]
	return h, ok
}

// Len returns the number of live effects
func (s *ActiveSet) Len() int {
	return len(s.active)
}

// Tick advances effect time: periodic effects execute their base writes
// for every period boundary crossed, then timed effects past their
// expiry are removed. Call once per host tick.
func (s *ActiveSet) Tick() {
	now := s.clk.Now()

	for _, handle := range append([]Handle(nil), s.order...) {
		effect, ok := s.active[handle]
		if !ok {
			continue
		}
		if !effect.Descriptor.IsPeriodic() {
			continue
		}
		period := secondsToDuration(effect.Descriptor.PeriodSeconds)
		for !effect.nextPeriodAt.After(now) {
			for _, contribution := range effect.stacks {
				s.executeBaseWrite(effect.Descriptor, contribution)
			}
			effect.nextPeriodAt = effect.nextPeriodAt.Add(period)
		}
	}

	for _, handle := range append([]Handle(nil), s.order...) {
		effect, ok := s.active[handle]
		if !ok {
			continue
		}
		if effect.Descriptor.Kind == KindTimed && !effect.ExpiresAt.After(now) {
			stacks := effect.Stacks()
			s.drop(handle)
			s.recompute(s.affectedAttributes(effect.Descriptor))
			s.publish(EventExpired, effect.Descriptor.ID, handle, stacks, effect.Trace)
		}
	}
}

// resolveContribution rolls dice and applies level scaling once,
// snapshotting the magnitudes for this application. Level scales
// additive magnitudes; multipliers and overrides use the raw magnitude.
func (s *ActiveSet) resolveContribution(desc *Descriptor) (stackContribution, error) {
	contribution := stackContribution{
		adds:      make(map[attributes.ID]float64),
		mults:     make(map[attributes.ID]float64),
		overrides: make(map[attributes.ID]float64),
	}

	for _, m := range desc.Modifiers {
		switch m.Op {
		case OpAdd:
			value := m.Magnitude * desc.Level
			if m.DiceNotation != "" {
				rolled, err := s.rollNotation(m.DiceNotation)
				if err != nil {
					return stackContribution{}, err
				}
				// Dice sign follows the flat magnitude so "-1 per die"
				// damage rows stay negative.
				if m.Magnitude < 0 {
					rolled = -rolled
				}
				value += rolled
			}
			contribution.adds[m.Attribute] += value
		case OpMultiply:
			if _, ok := contribution.mults[m.Attribute]; !ok {
				contribution.mults[m.Attribute] = 1
			}
			contribution.mults[m.Attribute] *= m.Magnitude
		case OpOverride:
			contribution.overrides[m.Attribute] = m.Magnitude
		}
	}

	return contribution, nil
}

func (s *ActiveSet) rollNotation(notation string) (float64, error) {
	count, size, err := parseDiceNotation(notation)
	if err != nil {
		return 0, err
	}
	rolls, err := s.roller.RollN(count, size)
	if err != nil {
		return 0, errors.Wrapf(err, "rolling %s", notation)
	}
	total := 0
	for _, r := range rolls {
		total += r
	}
	return float64(total), nil
}

// executeBaseWrite applies a contribution through base (tier 2), then
// re-derives current and finalizes. One-shot applications and periodic
// executions both land here.
func (s *ActiveSet) executeBaseWrite(desc *Descriptor, contribution stackContribution) {
	for _, id := range s.orderedAttributes(desc) {
		base := s.attrs.Base(id)
		next := base

		if override, ok := contribution.overrides[id]; ok {
			next = override
		} else {
			next = (base + contribution.adds[id]) * multiplierOrOne(contribution.mults, id)
		}

		s.attrs.SetBase(id, next)
		s.refreshCurrent(id)
		s.attrs.Finalize(id, s.attrs.Current(id))
	}
}

// recompute rebuilds the current value of each affected attribute from
// base plus the continuous aggregate of every live, non-periodic effect,
// then finalizes. Max-bearing attributes are processed first so paired
// currents clamp against the fresh bound.
func (s *ActiveSet) recompute(affected []attributes.ID) {
	for _, id := range affected {
		s.refreshCurrent(id)
		s.attrs.Finalize(id, s.attrs.Current(id))
	}
}

// refreshCurrent persists current = aggregate(base) through tier 1.
func (s *ActiveSet) refreshCurrent(id attributes.ID) {
	base := s.attrs.Base(id)
	adds := 0.0
	mult := 1.0
	var override *float64

	for _, handle := range s.order {
		effect, ok := s.active[handle]
		if !ok || effect.Descriptor.IsPeriodic() {
			// Periodic effects execute through base on their period;
			// they carry no continuous aggregate.
			continue
		}
		for _, stack := range effect.stacks {
			adds += stack.adds[id]
			mult *= multiplierOrOne(stack.mults, id)
			if v, ok := stack.overrides[id]; ok {
				value := v
				override = &value
			}
		}
	}

	value := (base + adds) * mult
	if override != nil {
		value = *override
	}
	s.attrs.SetCurrent(id, value)
}

// affectedAttributes returns the attributes desc touches, max-bearing
// attributes first, stable within each group.
func (s *ActiveSet) affectedAttributes(desc *Descriptor) []attributes.ID {
	return s.orderedAttributes(desc)
}

func (s *ActiveSet) orderedAttributes(desc *Descriptor) []attributes.ID {
	seen := make(map[attributes.ID]struct{}, len(desc.Modifiers))
	var maxes, rest []attributes.ID
	for _, m := range desc.Modifiers {
		if _, dup := seen[m.Attribute]; dup {
			continue
		}
		seen[m.Attribute] = struct{}{}
		if _, isMax := s.attrs.CurrentFor(m.Attribute); isMax {
			maxes = append(maxes, m.Attribute)
		} else {
			rest = append(rest, m.Attribute)
		}
	}
	return append(maxes, rest...)
}

func (s *ActiveSet) drop(handle Handle) {
	effect, ok := s.active[handle]
	if !ok {
		return
	}
	delete(s.active, handle)
	delete(s.byDescriptor, effect.Descriptor.ID)
	for i, h := range s.order {
		if h == handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *ActiveSet) publish(topic, descriptorID string, handle Handle, stacks int, trace TraceContext) {
	owner := s.attrs.Owner()
	event := events.NewGameEvent(topic, owner, owner)
	event.Context().Set(ContextKeyDescriptor, descriptorID)
	event.Context().Set(ContextKeyHandle, string(handle))
	event.Context().Set(ContextKeyStacks, stacks)
	event.Context().Set(ContextKeySource, trace.SourceID)
	event.Context().Set(ContextKeyCauser, trace.CauserID)

	_ = s.bus.Publish(context.Background(), event)
}

func multiplierOrOne(mults map[attributes.ID]float64, id attributes.ID) float64 {
	if m, ok := mults[id]; ok {
		return m
	}
	return 1
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
