// Package config loads the designer-facing tables: attribute defaults,
// an agent's effect configs, and scripted region events for the
// simulator. YAML is the storage format; validation happens here so a
// bad file fails at startup, not mid-event.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/effects"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
)

// Scenario actions understood by the simulator
const (
	ActionEnter   = "enter"
	ActionExit    = "exit"
	ActionTick    = "tick"
	ActionDespawn = "despawn"
)

// Scenario is one loadable simulation: who exists, what the agent
// carries, and the scripted event sequence.
type Scenario struct {
	Agent      AgentTable      `yaml:"agent"`
	Characters []CharacterSpec `yaml:"characters"`
	Events     []EventStep     `yaml:"events"`
}

// AgentTable is the designer-facing effect table for one agent
type AgentTable struct {
	ID      string            `yaml:"id"`
	Effects []*effects.Config `yaml:"effects"`
}

// CharacterSpec declares a spawnable character and its attribute
// defaults.
type CharacterSpec struct {
	ID       string                    `yaml:"id"`
	Defaults map[attributes.ID]float64 `yaml:"attributes"`
}

// EventStep is one scripted step: a region event, a clock advance, or a
// target despawn.
type EventStep struct {
	Action string `yaml:"action"`
	Target string `yaml:"target,omitempty"`
	// Seconds advances the simulation clock for tick steps.
	Seconds float64 `yaml:"seconds,omitempty"`
}

// Load reads and validates a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI flag
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates scenario YAML
func Parse(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrap(errors.InvalidArgument(err.Error()), "decoding scenario")
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Validate checks the scenario is internally consistent
func (s *Scenario) Validate() error {
	vb := errors.NewValidationBuilder()

	if s.Agent.ID == "" {
		vb.RequiredField("agent.id")
	}
	if len(s.Agent.Effects) == 0 {
		vb.RequiredField("agent.effects")
	}
	for i, cfg := range s.Agent.Effects {
		if cfg == nil {
			vb.Fieldf("agent.effects", "entry %d is empty", i)
			continue
		}
		if err := cfg.Validate(); err != nil {
			vb.Fieldf("agent.effects", "entry %d: %s", i, err.Error())
		}
	}

	if len(s.Characters) == 0 {
		vb.RequiredField("characters")
	}
	known := make(map[string]struct{}, len(s.Characters))
	for i, ch := range s.Characters {
		if ch.ID == "" {
			vb.Fieldf("characters", "entry %d has no id", i)
			continue
		}
		if _, dup := known[ch.ID]; dup {
			vb.Fieldf("characters", "duplicate id %q", ch.ID)
		}
		known[ch.ID] = struct{}{}
	}

	for i, step := range s.Events {
		switch step.Action {
		case ActionEnter, ActionExit, ActionDespawn:
			if step.Target == "" {
				vb.Fieldf("events", "step %d (%s) has no target", i, step.Action)
			} else if _, ok := known[step.Target]; !ok {
				vb.Fieldf("events", "step %d targets unknown character %q", i, step.Target)
			}
		case ActionTick:
			if step.Seconds <= 0 {
				vb.Fieldf("events", "step %d (tick) needs positive seconds", i)
			}
		default:
			vb.Fieldf("events", "step %d has unknown action %q", i, step.Action)
		}
	}

	return vb.Build()
}
