package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/config"
	"github.com/KirkDiggler/effect-runtime/internal/effects"
	"github.com/KirkDiggler/effect-runtime/internal/entities"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
	"github.com/KirkDiggler/effect-runtime/internal/orchestrators/region"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/clock"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/idgen"
	redisclient "github.com/KirkDiggler/effect-runtime/internal/redis"
	attributesnapshot "github.com/KirkDiggler/effect-runtime/internal/repositories/attribute_snapshot"
)

var (
	scenarioPath  string
	redisEndpoint string
	verboseEvents bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted scenario against an effect agent",
	Long: `simulate loads a scenario file, spawns its characters, builds the
agent from its effect table, and replays the scripted region events on a
deterministic clock. Attribute state is printed after the script ends.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML file (required)")
	simulateCmd.Flags().StringVar(&redisEndpoint, "redis", "", "Redis endpoint for attribute snapshots (optional)")
	simulateCmd.Flags().BoolVar(&verboseEvents, "events", false, "Log every attribute and effect event")
	_ = simulateCmd.MarkFlagRequired("scenario")
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	scenario, err := config.Load(scenarioPath)
	if err != nil {
		return errors.Wrap(err, "loading scenario")
	}

	bus := events.NewBus()
	if verboseEvents {
		subscribeEventLogging(bus)
	}

	clk := clock.NewFixed(time.Now())
	roller := dice.DefaultRoller
	idGen := idgen.NewUUID("effect")

	registry := entities.NewRegistry()
	for _, spec := range scenario.Characters {
		ch, err := entities.NewCharacter(&entities.CharacterConfig{
			ID:       spec.ID,
			EventBus: bus,
			Roller:   roller,
			Clock:    clk,
			IDGen:    idGen,
			Defaults: spec.Defaults,
		})
		if err != nil {
			return errors.Wrapf(err, "spawning character %s", spec.ID)
		}
		if err := registry.Add(ch); err != nil {
			return errors.Wrapf(err, "registering character %s", spec.ID)
		}
	}

	var snapshots attributesnapshot.Repository
	if redisEndpoint != "" {
		client, err := redisclient.NewClient(redisEndpoint, nil)
		if err != nil {
			return errors.Wrap(err, "connecting to redis")
		}
		defer func() { _ = client.Close() }()

		snapshots, err = attributesnapshot.NewRedisRepository(&attributesnapshot.Config{
			Client: client,
			Clock:  clk,
		})
		if err != nil {
			return errors.Wrap(err, "building snapshot repository")
		}
	}

	agent, err := region.NewOrchestrator(&region.Config{
		AgentID:      scenario.Agent.ID,
		Effects:      scenario.Agent.Effects,
		Resolver:     registry,
		SnapshotRepo: snapshots,
	})
	if err != nil {
		return errors.Wrap(err, "building agent")
	}

	ctx := cmd.Context()
	for i, step := range scenario.Events {
		if err := runStep(ctx, agent, registry, clk, step); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i, step.Action)
		}
	}

	printFinalState(cmd, registry, scenario)
	return nil
}

// runStep executes one scripted step. Despawned targets stay in the
// script's vocabulary but resolve to nothing, which is exactly the
// stale-target case the agent has to absorb.
func runStep(ctx context.Context, agent region.Service, registry *entities.Registry, clk *clock.Fixed, step config.EventStep) error {
	switch step.Action {
	case config.ActionEnter:
		out, err := agent.OnRegionEnter(ctx, &region.RegionEnterInput{TargetID: step.Target})
		if err != nil {
			return err
		}
		slog.Info("enter", "target", step.Target, "applied", out.Applied, "removed_stacks", out.RemovedStacks, "agent_destroyed", out.Destroyed)

	case config.ActionExit:
		out, err := agent.OnRegionExit(ctx, &region.RegionExitInput{TargetID: step.Target})
		if err != nil {
			return err
		}
		slog.Info("exit", "target", step.Target, "applied", out.Applied, "removed_stacks", out.RemovedStacks, "agent_destroyed", out.Destroyed)

	case config.ActionTick:
		clk.Advance(time.Duration(step.Seconds * float64(time.Second)))
		registry.Each(func(target entities.Target) {
			target.Effects().Tick()
		})
		slog.Info("tick", "seconds", step.Seconds, "now", clk.Now())

	case config.ActionDespawn:
		registry.Remove(step.Target)
		slog.Info("despawn", "target", step.Target)

	default:
		return errors.InvalidArgumentf("unknown action %q", step.Action)
	}
	return nil
}

// subscribeEventLogging attaches log handlers for every topic the
// runtime publishes.
func subscribeEventLogging(bus events.EventBus) {
	logAttribute := func(_ context.Context, event events.Event) error {
		attr, _ := event.Context().Get(attributes.ContextKeyAttribute)
		oldValue, _ := event.Context().Get(attributes.ContextKeyOldValue)
		newValue, _ := event.Context().Get(attributes.ContextKeyNewValue)
		slog.Info(event.Type(),
			"entity", event.Source().GetID(),
			"attribute", attr,
			"old", oldValue,
			"new", newValue,
		)
		return nil
	}
	bus.SubscribeFunc(attributes.EventClamped, 0, logAttribute)
	bus.SubscribeFunc(attributes.EventFinalized, 0, logAttribute)

	logEffect := func(_ context.Context, event events.Event) error {
		descriptor, _ := event.Context().Get(effects.ContextKeyDescriptor)
		handle, _ := event.Context().Get(effects.ContextKeyHandle)
		stacks, _ := event.Context().Get(effects.ContextKeyStacks)
		source, _ := event.Context().Get(effects.ContextKeySource)
		slog.Info(event.Type(),
			"entity", event.Target().GetID(),
			"descriptor", descriptor,
			"handle", handle,
			"stacks", stacks,
			"source", source,
		)
		return nil
	}
	bus.SubscribeFunc(effects.EventApplied, 0, logEffect)
	bus.SubscribeFunc(effects.EventRemoved, 0, logEffect)
	bus.SubscribeFunc(effects.EventExpired, 0, logEffect)
}

// printFinalState dumps each surviving character's attribute snapshot in
// roster order.
func printFinalState(cmd *cobra.Command, registry *entities.Registry, scenario *config.Scenario) {
	for _, spec := range scenario.Characters {
		target, ok := registry.Resolve(spec.ID)
		if !ok {
			cmd.Printf("%s: despawned\n", spec.ID)
			continue
		}

		snapshot := target.Attributes().Snapshot()
		cmd.Printf("%s (%d active effects):\n", spec.ID, target.Effects().Len())
		for _, id := range attributes.StandardIDs() {
			rec, ok := snapshot[id]
			if !ok {
				continue
			}
			cmd.Printf("  %-24s base=%s current=%s\n", id, formatValue(rec.Base), formatValue(rec.Current))
		}
	}
}

func formatValue(v float64) string {
	return fmt.Sprintf("%g", v)
}
