package effects

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/clock"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/idgen"
)

type testOwner struct {
	id string
}

func (o *testOwner) GetID() string   { return o.id }
func (o *testOwner) GetType() string { return "test" }

// stubRoller returns scripted rolls so dice contributions are
// deterministic.
type stubRoller struct {
	rolls []int
}

var _ dice.Roller = (*stubRoller)(nil)

func (r *stubRoller) Roll(_ int) (int, error) {
	if len(r.rolls) == 0 {
		return 1, nil
	}
	next := r.rolls[0]
	r.rolls = r.rolls[1:]
	return next, nil
}

func (r *stubRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, count)
	for i := range out {
		out[i], _ = r.Roll(size)
	}
	return out, nil
}

type ActiveSetTestSuite struct {
	suite.Suite

	owner  *testOwner
	bus    events.EventBus
	clk    *clock.Fixed
	roller *stubRoller
	attrs  *attributes.Collection
	set    *ActiveSet
}

func (s *ActiveSetTestSuite) SetupTest() {
	s.owner = &testOwner{id: "target-1"}
	s.bus = events.NewBus()
	s.clk = clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.roller = &stubRoller{}

	attrs, err := attributes.NewStandardCollection(s.owner, s.bus, map[attributes.ID]float64{
		attributes.MaxHealth: 100,
		attributes.Health:    25,
		attributes.MaxMana:   50,
		attributes.Mana:      50,
		attributes.Strength:  12,
	})
	s.Require().NoError(err)
	s.attrs = attrs

	set, err := NewActiveSet(&SetConfig{
		Attributes:  attrs,
		Roller:      s.roller,
		Clock:       s.clk,
		IDGenerator: idgen.NewSequential("h"),
		EventBus:    s.bus,
	})
	s.Require().NoError(err)
	s.set = set
}

func (s *ActiveSetTestSuite) oneShot(id string, attr attributes.ID, magnitude float64) *Descriptor {
	return &Descriptor{
		ID:    id,
		Kind:  KindOneShot,
		Level: 1,
		Modifiers: []Modifier{
			{Attribute: attr, Op: OpAdd, Magnitude: magnitude},
		},
	}
}

func (s *ActiveSetTestSuite) ongoing(id string, attr attributes.ID, op Operation, magnitude float64) *Descriptor {
	return &Descriptor{
		ID:    id,
		Kind:  KindOngoing,
		Level: 1,
		Modifiers: []Modifier{
			{Attribute: attr, Op: op, Magnitude: magnitude},
		},
	}
}

func (s *ActiveSetTestSuite) TestOneShotRoundTrip() {
	// 25/100 health, hit for 40: floors at zero, not -15.
	handle, live := s.set.Apply(s.oneShot("hit", attributes.Health, -40), TraceContext{})
	s.Empty(handle)
	s.False(live)
	s.Equal(0.0, s.attrs.Current(attributes.Health))
	s.Equal(0.0, s.attrs.Base(attributes.Health))

	// Overheal caps at max.
	s.set.Apply(s.oneShot("mega-heal", attributes.Health, 1000), TraceContext{})
	s.Equal(100.0, s.attrs.Current(attributes.Health))
	s.Equal(100.0, s.attrs.Base(attributes.Health))

	s.Equal(0, s.set.Len())
}

func (s *ActiveSetTestSuite) TestOneShotLevelScaling() {
	desc := s.oneShot("heal", attributes.Health, 5)
	desc.Level = 3
	s.set.Apply(desc, TraceContext{})
	s.Equal(40.0, s.attrs.Current(attributes.Health))
}

func (s *ActiveSetTestSuite) TestOneShotWithDice() {
	s.roller.rolls = []int{3, 4}
	desc := s.oneShot("sword", attributes.Health, -1)
	desc.Modifiers[0].DiceNotation = "2d6"

	s.set.Apply(desc, TraceContext{})
	// -1 flat, dice total 7 carried negative with the magnitude: 25-8=17.
	s.Equal(17.0, s.attrs.Current(attributes.Health))
}

func (s *ActiveSetTestSuite) TestOngoingAddIsContinuous() {
	handle, live := s.set.Apply(s.ongoing("might", attributes.Strength, OpAdd, 8), TraceContext{})
	s.True(live)
	s.NotEmpty(handle)

	s.Equal(20.0, s.attrs.Current(attributes.Strength))
	s.Equal(12.0, s.attrs.Base(attributes.Strength))

	removed := s.set.Remove(handle, -1)
	s.Equal(1, removed)
	s.Equal(12.0, s.attrs.Current(attributes.Strength))
	s.Equal(0, s.set.Len())
}

func (s *ActiveSetTestSuite) TestOngoingMultiply() {
	s.set.Apply(s.ongoing("giant", attributes.Strength, OpMultiply, 2), TraceContext{})
	s.Equal(24.0, s.attrs.Current(attributes.Strength))
}

func (s *ActiveSetTestSuite) TestOngoingOverrideWins() {
	s.set.Apply(s.ongoing("might", attributes.Strength, OpAdd, 8), TraceContext{})
	s.set.Apply(s.ongoing("polymorph", attributes.Strength, OpOverride, 1), TraceContext{})
	s.Equal(1.0, s.attrs.Current(attributes.Strength))
}

func (s *ActiveSetTestSuite) TestStackingFoldsIntoOneHandle() {
	desc := s.ongoing("might", attributes.Strength, OpAdd, 8)

	h1, _ := s.set.Apply(desc, TraceContext{})
	h2, _ := s.set.Apply(desc, TraceContext{})

	s.Equal(h1, h2)
	s.Equal(1, s.set.Len())
	s.Equal(2, s.set.StackCount(h1))
	s.Equal(28.0, s.attrs.Current(attributes.Strength))
}

func (s *ActiveSetTestSuite) TestPartialStackRemoval() {
	desc := s.ongoing("might", attributes.Strength, OpAdd, 8)
	handle, _ := s.set.Apply(desc, TraceContext{})
	s.set.Apply(desc, TraceContext{})

	removed := s.set.Remove(handle, 1)
	s.Equal(1, removed)
	s.Equal(1, s.set.StackCount(handle))
	s.Equal(20.0, s.attrs.Current(attributes.Strength))
}

func (s *ActiveSetTestSuite) TestRemoveAllStacks() {
	desc := s.ongoing("might", attributes.Strength, OpAdd, 8)
	handle, _ := s.set.Apply(desc, TraceContext{})
	s.set.Apply(desc, TraceContext{})

	removed := s.set.Remove(handle, -1)
	s.Equal(2, removed)
	s.False(s.set.IsActive(handle))
	s.Equal(12.0, s.attrs.Current(attributes.Strength))

	_, ok := s.set.HandleFor("might")
	s.False(ok)
}

func (s *ActiveSetTestSuite) TestRemoveMoreStacksThanLiveRemovesAll() {
	handle, _ := s.set.Apply(s.ongoing("might", attributes.Strength, OpAdd, 8), TraceContext{})
	removed := s.set.Remove(handle, 99)
	s.Equal(1, removed)
	s.False(s.set.IsActive(handle))
}

func (s *ActiveSetTestSuite) TestRemoveStaleHandle() {
	s.Equal(0, s.set.Remove("no-such-handle", -1))
}

func (s *ActiveSetTestSuite) TestMaxShrinkThroughOngoingEffect() {
	// Pull MaxHealth 100 -> 40 while Health sits at 25 base: both values
	// must end inside the shrunk range.
	s.set.Apply(s.oneShot("heal", attributes.Health, 55), TraceContext{})
	s.Equal(80.0, s.attrs.Current(attributes.Health))

	handle, _ := s.set.Apply(s.ongoing("curse", attributes.MaxHealth, OpAdd, -60), TraceContext{})
	s.Equal(40.0, s.attrs.Current(attributes.MaxHealth))
	s.Equal(40.0, s.attrs.Current(attributes.Health))

	// Lifting the curse restores the bound; spent health does not bounce
	// back.
	s.set.Remove(handle, -1)
	s.Equal(100.0, s.attrs.Current(attributes.MaxHealth))
	s.Equal(40.0, s.attrs.Current(attributes.Health))
}

func (s *ActiveSetTestSuite) TestTimedExpiry() {
	desc := &Descriptor{
		ID:              "haste",
		Kind:            KindTimed,
		DurationSeconds: 10,
		Level:           1,
		Modifiers: []Modifier{
			{Attribute: attributes.Strength, Op: OpAdd, Magnitude: 5},
		},
	}

	handle, live := s.set.Apply(desc, TraceContext{})
	s.True(live)
	s.Equal(17.0, s.attrs.Current(attributes.Strength))

	s.clk.Advance(9 * time.Second)
	s.set.Tick()
	s.True(s.set.IsActive(handle))

	s.clk.Advance(1 * time.Second)
	s.set.Tick()
	s.False(s.set.IsActive(handle))
	s.Equal(12.0, s.attrs.Current(attributes.Strength))
}

func (s *ActiveSetTestSuite) TestTimedReapplicationRefreshesExpiry() {
	desc := &Descriptor{
		ID:              "haste",
		Kind:            KindTimed,
		DurationSeconds: 10,
		Level:           1,
		Modifiers: []Modifier{
			{Attribute: attributes.Strength, Op: OpAdd, Magnitude: 5},
		},
	}

	handle, _ := s.set.Apply(desc, TraceContext{})

	s.clk.Advance(6 * time.Second)
	s.set.Apply(desc, TraceContext{})

	s.clk.Advance(6 * time.Second)
	s.set.Tick()
	s.True(s.set.IsActive(handle), "refreshed effect must survive past the original expiry")

	s.clk.Advance(4 * time.Second)
	s.set.Tick()
	s.False(s.set.IsActive(handle))
}

func (s *ActiveSetTestSuite) TestPeriodicExecutesThroughBase() {
	desc := &Descriptor{
		ID:              "poison",
		Kind:            KindTimed,
		DurationSeconds: 10,
		PeriodSeconds:   2,
		Level:           1,
		Modifiers: []Modifier{
			{Attribute: attributes.Health, Op: OpAdd, Magnitude: -3},
		},
	}

	s.set.Apply(desc, TraceContext{})
	// Periodic effects carry no continuous aggregate.
	s.Equal(25.0, s.attrs.Current(attributes.Health))
	s.Equal(25.0, s.attrs.Base(attributes.Health))

	s.clk.Advance(2 * time.Second)
	s.set.Tick()
	s.Equal(22.0, s.attrs.Base(attributes.Health))
	s.Equal(22.0, s.attrs.Current(attributes.Health))

	// Crossing two boundaries at once executes twice.
	s.clk.Advance(4 * time.Second)
	s.set.Tick()
	s.Equal(16.0, s.attrs.Base(attributes.Health))

	// Boundaries at 8s and 10s execute, then the effect expires.
	s.clk.Advance(4 * time.Second)
	s.set.Tick()
	s.Equal(10.0, s.attrs.Base(attributes.Health))
	s.Equal(0, s.set.Len())

	// The damage stays after expiry; nothing executes anymore.
	s.clk.Advance(10 * time.Second)
	s.set.Tick()
	s.Equal(10.0, s.attrs.Base(attributes.Health))
}

func (s *ActiveSetTestSuite) TestLifecycleEventsPublished() {
	var topics []string
	var stacks []int
	record := func(_ context.Context, e events.Event) error {
		topics = append(topics, e.Type())
		v, _ := e.Context().Get(ContextKeyStacks)
		stacks = append(stacks, v.(int))
		return nil
	}
	s.bus.SubscribeFunc(EventApplied, 0, record)
	s.bus.SubscribeFunc(EventRemoved, 0, record)
	s.bus.SubscribeFunc(EventExpired, 0, record)

	desc := s.ongoing("might", attributes.Strength, OpAdd, 8)
	handle, _ := s.set.Apply(desc, TraceContext{})
	s.set.Apply(desc, TraceContext{})
	s.set.Remove(handle, -1)

	s.Equal([]string{EventApplied, EventApplied, EventRemoved}, topics)
	s.Equal([]int{1, 2, 2}, stacks)
}

func (s *ActiveSetTestSuite) TestApplyNilDescriptor() {
	handle, live := s.set.Apply(nil, TraceContext{})
	s.Empty(handle)
	s.False(live)
}

func TestActiveSetSuite(t *testing.T) {
	suite.Run(t, new(ActiveSetTestSuite))
}

func TestNewActiveSetValidation(t *testing.T) {
	if _, err := NewActiveSet(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewActiveSet(&SetConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}
