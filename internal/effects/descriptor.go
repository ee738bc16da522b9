// Package effects implements the modification side of the runtime:
// effect descriptors and configs, the per-target active effect store
// that drives attribute mutation through the clamp pipeline, and the
// tracker that remembers which ongoing effects an agent applied where.
package effects

import (
	"regexp"
	"strconv"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
)

// Kind is the duration category of an effect.
type Kind string

// Effect kinds
const (
	// KindOneShot executes once and leaves no removable state.
	KindOneShot Kind = "one_shot"
	// KindTimed stays active for a fixed span, but may be removed early.
	KindTimed Kind = "timed"
	// KindOngoing stays active until explicitly removed.
	KindOngoing Kind = "ongoing"
)

// Operation is how a modifier combines with an attribute.
type Operation string

// Modifier operations
const (
	OpAdd      Operation = "add"
	OpMultiply Operation = "multiply"
	OpOverride Operation = "override"
)

// Modifier is one attribute change carried by a descriptor. Magnitude is
// scaled by the descriptor level at application; DiceNotation, when set,
// is rolled at application and added on top (snapshot semantics — the
// roll sticks for the lifetime of that application).
type Modifier struct {
	Attribute    attributes.ID `yaml:"attribute"`
	Op           Operation     `yaml:"op"`
	Magnitude    float64       `yaml:"magnitude"`
	DiceNotation string        `yaml:"dice,omitempty"`
}

// Descriptor is the immutable description of a modification: what it
// does, how long it lasts, and how strong it is. The ID is the
// descriptor's identity — removal-by-class matches on it.
type Descriptor struct {
	ID              string     `yaml:"id"`
	Kind            Kind       `yaml:"kind"`
	DurationSeconds float64    `yaml:"duration_seconds,omitempty"`
	PeriodSeconds   float64    `yaml:"period_seconds,omitempty"`
	Level           float64    `yaml:"level"`
	Modifiers       []Modifier `yaml:"modifiers"`
}

var diceNotationRegex = regexp.MustCompile(`^(\d+)d(\d+)$`)

// Validate checks the descriptor is well formed
func (d *Descriptor) Validate() error {
	vb := errors.NewValidationBuilder()

	if d.ID == "" {
		vb.RequiredField("ID")
	}
	switch d.Kind {
	case KindOneShot, KindTimed, KindOngoing:
	default:
		vb.Fieldf("Kind", "unknown kind %q", d.Kind)
	}
	if d.Kind == KindTimed && d.DurationSeconds <= 0 {
		vb.Field("DurationSeconds", "must be positive for timed effects")
	}
	if d.Kind != KindTimed && d.DurationSeconds != 0 {
		vb.Field("DurationSeconds", "only timed effects carry a duration")
	}
	if d.PeriodSeconds < 0 {
		vb.Field("PeriodSeconds", "must not be negative")
	}
	if d.Kind == KindOneShot && d.PeriodSeconds > 0 {
		vb.Field("PeriodSeconds", "one-shot effects cannot be periodic")
	}
	if len(d.Modifiers) == 0 {
		vb.RequiredField("Modifiers")
	}
	for i, m := range d.Modifiers {
		if m.Attribute == "" {
			vb.Fieldf("Modifiers", "modifier %d has no attribute", i)
		}
		switch m.Op {
		case OpAdd, OpMultiply, OpOverride:
		default:
			vb.Fieldf("Modifiers", "modifier %d has unknown op %q", i, m.Op)
		}
		if m.DiceNotation != "" && !diceNotationRegex.MatchString(m.DiceNotation) {
			vb.Fieldf("Modifiers", "modifier %d dice notation %q is not XdY", i, m.DiceNotation)
		}
		if m.DiceNotation != "" && m.Op != OpAdd {
			vb.Fieldf("Modifiers", "modifier %d rolls dice but op is %q; only add supports dice", i, m.Op)
		}
	}

	return vb.Build()
}

// IsPeriodic reports whether the effect re-executes on a period
func (d *Descriptor) IsPeriodic() bool {
	return d.PeriodSeconds > 0
}

// IsNonInstant reports whether an application leaves a live, removable
// handle behind. Periodic effects are timed or ongoing, so they count.
func (d *Descriptor) IsNonInstant() bool {
	return d.Kind != KindOneShot
}

// parseDiceNotation splits "XdY" into count and size.
func parseDiceNotation(notation string) (count, size int, err error) {
	matches := diceNotationRegex.FindStringSubmatch(notation)
	if len(matches) != 3 {
		return 0, 0, errors.InvalidArgumentf("invalid dice notation: %s (expected XdY)", notation)
	}
	count, err = strconv.Atoi(matches[1])
	if err != nil || count <= 0 {
		return 0, 0, errors.InvalidArgumentf("invalid dice count in notation: %s", notation)
	}
	size, err = strconv.Atoi(matches[2])
	if err != nil || size <= 0 {
		return 0, 0, errors.InvalidArgumentf("invalid die size in notation: %s", notation)
	}
	return count, size, nil
}
