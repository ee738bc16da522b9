// Package attributes implements the bounded numeric attribute store at
// the heart of the combat runtime: base/current value pairs, current↔max
// pairings, per-attribute rounding, and the three-tier clamp pipeline
// every mutation passes through.
package attributes

// ID identifies one numeric attribute within a collection. Comparable
// and hashable; uniqueness is per-collection.
type ID string

// Vital attributes. Each is paired with a maximum and clamped to
// [0, max] at all times.
const (
	Health  ID = "Health"
	Mana    ID = "Mana"
	Stamina ID = "Stamina"
)

// Primary attributes
const (
	Strength     ID = "Strength"
	Dexterity    ID = "Dexterity"
	Intelligence ID = "Intelligence"
	Endurance    ID = "Endurance"
	Vigor        ID = "Vigor"
)

// Secondary attributes, derived from primaries by designer data
const (
	Armor                 ID = "Armor"
	ArmorPenetration      ID = "ArmorPenetration"
	BlockChance           ID = "BlockChance"
	CriticalHitChance     ID = "CriticalHitChance"
	CriticalHitDamage     ID = "CriticalHitDamage"
	CriticalHitResistance ID = "CriticalHitResistance"
	HealthRegeneration    ID = "HealthRegeneration"
	ManaRegeneration      ID = "ManaRegeneration"
	MaxHealth             ID = "MaxHealth"
	MaxMana               ID = "MaxMana"
	MaxStamina            ID = "MaxStamina"
	StaminaRegeneration   ID = "StaminaRegeneration"
)

// Record holds the two values tracked per attribute. Base is the
// authoritative persisted value; Current is base plus whatever ongoing
// modifiers are active.
type Record struct {
	Base    float64 `json:"base"`
	Current float64 `json:"current"`
}

// Pair declares a current↔max relationship at construction time.
type Pair struct {
	Current ID
	Max     ID
}

// StandardIDs lists every attribute the default collection carries, in
// registration order.
func StandardIDs() []ID {
	return []ID{
		Strength, Dexterity, Intelligence, Endurance, Vigor,
		Armor, ArmorPenetration, BlockChance,
		CriticalHitChance, CriticalHitDamage, CriticalHitResistance,
		HealthRegeneration, ManaRegeneration, StaminaRegeneration,
		MaxHealth, MaxMana, MaxStamina,
		Health, Mana, Stamina,
	}
}

// StandardPairs lists the default current↔max pairings.
func StandardPairs() []Pair {
	return []Pair{
		{Current: Health, Max: MaxHealth},
		{Current: Mana, Max: MaxMana},
		{Current: Stamina, Max: MaxStamina},
	}
}

// StandardDecimals returns the default per-attribute rounding policy:
// percentages and regeneration rates keep two decimals, everything else
// rounds to integers.
func StandardDecimals() map[ID]int {
	return map[ID]int{
		BlockChance:           2,
		CriticalHitChance:     2,
		CriticalHitDamage:     2,
		CriticalHitResistance: 2,
		HealthRegeneration:    2,
		ManaRegeneration:      2,
		StaminaRegeneration:   2,
	}
}
