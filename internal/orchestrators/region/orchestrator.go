// Package region implements the effect application agent: it reacts to
// region enter/exit events by applying and removing configured effects
// on resolvable targets, tracking every removable application so
// removal later touches exactly what this agent applied and nothing
// else.
package region

//go:generate mockgen -destination=mock/mock_service.go -package=regionmock github.com/KirkDiggler/effect-runtime/internal/orchestrators/region Service

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/effect-runtime/internal/effects"
	"github.com/KirkDiggler/effect-runtime/internal/entities"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
	attributesnapshot "github.com/KirkDiggler/effect-runtime/internal/repositories/attribute_snapshot"
)

// Service defines the agent's operations. Region events arrive from the
// host's trigger system; the manual primitives exist for configs with
// manual policies.
type Service interface {
	OnRegionEnter(ctx context.Context, input *RegionEnterInput) (*RegionEnterOutput, error)
	OnRegionExit(ctx context.Context, input *RegionExitInput) (*RegionExitOutput, error)

	ApplyEffect(ctx context.Context, input *ApplyEffectInput) (*ApplyEffectOutput, error)
	RemoveEffect(ctx context.Context, input *RemoveEffectInput) (*RemoveEffectOutput, error)

	// Destroyed reports whether a destroy-on-apply/removal config has
	// consumed this agent.
	Destroyed() bool
}

// Config holds the dependencies and designer-facing effect table for
// one agent instance.
type Config struct {
	// AgentID identifies this agent as the source/causer on every
	// application it makes.
	AgentID string

	// Effects is the ordered config table. Order matters: within one
	// region event, applications run in declaration order before any
	// removals.
	Effects []*effects.Config

	// Resolver finds attribute collection owners for target identities.
	Resolver entities.Resolver

	// SnapshotRepo, when set, receives an attribute snapshot of the
	// target after each region event, for replication mirrors.
	// Optional.
	SnapshotRepo attributesnapshot.Repository

	// OnDestroy is invoked once when a config consumes the agent.
	// Optional.
	OnDestroy func()
}

// Validate ensures all required dependencies are provided and the
// effect table is well formed. Duplicate ongoing descriptors are
// permitted but ambiguous — removal-by-class hits all of them — so they
// get a one-time diagnostic instead of an error.
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.AgentID == "" {
		vb.RequiredField("AgentID")
	}
	if c.Resolver == nil {
		vb.RequiredField("Resolver")
	}
	if len(c.Effects) == 0 {
		vb.RequiredField("Effects")
	}

	ongoingSeen := make(map[string]bool)
	for i, cfg := range c.Effects {
		if cfg == nil {
			vb.Fieldf("Effects", "config %d is nil", i)
			continue
		}
		if err := cfg.Validate(); err != nil {
			vb.Fieldf("Effects", "config %d: %s", i, err.Error())
			continue
		}
		if cfg.Descriptor.Kind == effects.KindOngoing {
			if ongoingSeen[cfg.Descriptor.ID] {
				slog.Warn("duplicate ongoing descriptor on agent; removal-by-class will hit all instances",
					"agent_id", c.AgentID,
					"descriptor", cfg.Descriptor.ID,
				)
			}
			ongoingSeen[cfg.Descriptor.ID] = true
		}
	}

	return vb.Build()
}

type orchestrator struct {
	id        string
	configs   []*effects.Config
	resolver  entities.Resolver
	tracker   *effects.Tracker
	snapshots attributesnapshot.Repository
	onDestroy func()
	destroyed bool
}

// NewOrchestrator creates a new region agent with the provided
// dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		id:        cfg.AgentID,
		configs:   cfg.Effects,
		resolver:  cfg.Resolver,
		tracker:   effects.NewTracker(),
		snapshots: cfg.SnapshotRepo,
		onDestroy: cfg.OnDestroy,
	}, nil
}

// OnRegionEnter applies every on-enter config in declaration order,
// then runs every on-enter removal. Apply-before-remove within one
// event is guaranteed, so grant-then-expire ordering is controlled by
// config order alone.
func (o *orchestrator) OnRegionEnter(ctx context.Context, input *RegionEnterInput) (*RegionEnterOutput, error) {
	if input == nil || input.TargetID == "" {
		return nil, errors.InvalidArgument("target ID is required")
	}
	if o.destroyed {
		return &RegionEnterOutput{Destroyed: true}, nil
	}

	applied := o.applyAll(input.TargetID, effects.ApplyOnEnter)
	removed := o.removeAll(input.TargetID, effects.RemoveOnEnter)
	o.persistSnapshot(ctx, input.TargetID)

	slog.Info("region enter processed",
		"agent_id", o.id,
		"target_id", input.TargetID,
		"applied", applied,
		"removed_stacks", removed,
		"destroyed", o.destroyed,
	)

	return &RegionEnterOutput{
		Applied:       applied,
		RemovedStacks: removed,
		Destroyed:     o.destroyed,
	}, nil
}

// OnRegionExit is the symmetric handler for leaving the volume
func (o *orchestrator) OnRegionExit(ctx context.Context, input *RegionExitInput) (*RegionExitOutput, error) {
	if input == nil || input.TargetID == "" {
		return nil, errors.InvalidArgument("target ID is required")
	}
	if o.destroyed {
		return &RegionExitOutput{Destroyed: true}, nil
	}

	applied := o.applyAll(input.TargetID, effects.ApplyOnExit)
	removed := o.removeAll(input.TargetID, effects.RemoveOnExit)
	o.persistSnapshot(ctx, input.TargetID)

	slog.Info("region exit processed",
		"agent_id", o.id,
		"target_id", input.TargetID,
		"applied", applied,
		"removed_stacks", removed,
		"destroyed", o.destroyed,
	)

	return &RegionExitOutput{
		Applied:       applied,
		RemovedStacks: removed,
		Destroyed:     o.destroyed,
	}, nil
}

// ApplyEffect is the manual apply primitive: it applies the configured
// descriptor regardless of its apply policy.
func (o *orchestrator) ApplyEffect(ctx context.Context, input *ApplyEffectInput) (*ApplyEffectOutput, error) {
	if input == nil || input.TargetID == "" {
		return nil, errors.InvalidArgument("target ID is required")
	}
	if input.DescriptorID == "" {
		return nil, errors.InvalidArgument("descriptor ID is required")
	}

	cfg := o.configFor(input.DescriptorID)
	if cfg == nil {
		return nil, errors.NotFoundf("descriptor %q is not configured on this agent", input.DescriptorID)
	}
	if o.destroyed {
		return &ApplyEffectOutput{Destroyed: true}, nil
	}

	applied := o.applyOne(input.TargetID, cfg)
	o.persistSnapshot(ctx, input.TargetID)

	return &ApplyEffectOutput{Applied: applied, Destroyed: o.destroyed}, nil
}

// RemoveEffect is the manual remove primitive: it removes tracked
// applications of the configured descriptor from the target.
func (o *orchestrator) RemoveEffect(ctx context.Context, input *RemoveEffectInput) (*RemoveEffectOutput, error) {
	if input == nil || input.TargetID == "" {
		return nil, errors.InvalidArgument("target ID is required")
	}
	if input.DescriptorID == "" {
		return nil, errors.InvalidArgument("descriptor ID is required")
	}

	cfg := o.configFor(input.DescriptorID)
	if cfg == nil {
		return nil, errors.NotFoundf("descriptor %q is not configured on this agent", input.DescriptorID)
	}
	if o.destroyed {
		return &RemoveEffectOutput{Destroyed: true}, nil
	}

	removed := o.removeMatching(input.TargetID, cfg)
	o.persistSnapshot(ctx, input.TargetID)

	return &RemoveEffectOutput{RemovedStacks: removed, Destroyed: o.destroyed}, nil
}

// Destroyed implements Service
func (o *orchestrator) Destroyed() bool {
	return o.destroyed
}

// applyAll runs applications matching policy in declaration order.
// Destruction is immediate, not deferred: a destroy-on-apply config
// stops the rest of the batch. Known hazard carried over from the
// original design — see the ordering test before changing this.
func (o *orchestrator) applyAll(targetID string, policy effects.ApplyPolicy) int {
	applied := 0
	for _, cfg := range o.configs {
		if o.destroyed {
			break
		}
		if cfg.ApplyPolicy != policy {
			continue
		}
		if o.applyOne(targetID, cfg) {
			applied++
		}
	}
	return applied
}

// removeAll runs removals matching policy in declaration order
func (o *orchestrator) removeAll(targetID string, policy effects.RemovePolicy) int {
	removed := 0
	for _, cfg := range o.configs {
		if o.destroyed {
			break
		}
		if cfg.RemovePolicy != policy {
			continue
		}
		removed += o.removeMatching(targetID, cfg)
	}
	return removed
}

// applyOne applies a single config to the target. Targets without
// combat state no-op silently: region events fire for every entity
// kind, and most are not valid targets.
func (o *orchestrator) applyOne(targetID string, cfg *effects.Config) bool {
	target, ok := o.resolver.Resolve(targetID)
	if !ok {
		return false
	}

	trace := effects.TraceContext{SourceID: o.id, CauserID: o.id}
	handle, live := target.Effects().Apply(cfg.Descriptor, trace)

	if live && cfg.Tracked() {
		stacks := cfg.StacksToRemove
		if stacks <= 0 {
			stacks = -1
		}
		// Track overwrites on handle collision: when stacking folded
		// this application into a handle we already track, the latest
		// config's removal intent wins.
		o.tracker.Track(effects.TrackedEffect{
			Handle:           handle,
			TargetID:         targetID,
			DescriptorID:     cfg.Descriptor.ID,
			StacksToRemove:   stacks,
			DestroyOnRemoval: cfg.DestroyOwnerOnRemoval,
		})
	}

	if cfg.DestroyOwnerOnApply {
		o.destroy()
	}
	return true
}

// removeMatching removes every tracked application of cfg's descriptor
// from the target, sweeps dead tracker entries, and signals destruction
// once if any removed entry asked for it.
func (o *orchestrator) removeMatching(targetID string, cfg *effects.Config) int {
	target, ok := o.resolver.Resolve(targetID)
	if !ok {
		return 0
	}

	alive := func(id string) bool {
		_, live := o.resolver.Resolve(id)
		return live
	}

	removedTotal := 0
	destroyAfter := false
	for _, entry := range o.tracker.Matches(targetID, cfg.Descriptor.ID, alive) {
		removed := target.Effects().Remove(entry.Handle, entry.StacksToRemove)
		removedTotal += removed
		if removed != 0 && entry.DestroyOnRemoval {
			destroyAfter = true
		}
	}

	// Opportunistic sweep regardless of what this call targeted; this
	// bounds tracker growth when targets despawn without removal.
	o.tracker.Sweep(alive, func(id string, h effects.Handle) bool {
		t, live := o.resolver.Resolve(id)
		return live && t.Effects().IsActive(h)
	})

	if removedTotal > 0 && destroyAfter {
		o.destroy()
	}
	return removedTotal
}

func (o *orchestrator) configFor(descriptorID string) *effects.Config {
	for _, cfg := range o.configs {
		if cfg.Descriptor.ID == descriptorID {
			return cfg
		}
	}
	return nil
}

func (o *orchestrator) destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	slog.Info("agent consumed", "agent_id", o.id)
	if o.onDestroy != nil {
		o.onDestroy()
	}
}

// persistSnapshot mirrors the target's attribute state for replication
// consumers. Mirror failures are logged, never surfaced: gameplay state
// is already committed by the time this runs.
func (o *orchestrator) persistSnapshot(ctx context.Context, targetID string) {
	if o.snapshots == nil {
		return
	}
	target, ok := o.resolver.Resolve(targetID)
	if !ok {
		return
	}

	_, err := o.snapshots.Save(ctx, attributesnapshot.SaveInput{
		EntityID: targetID,
		Records:  target.Attributes().Snapshot(),
	})
	if err != nil {
		slog.Warn("attribute snapshot persist failed",
			"agent_id", o.id,
			"target_id", targetID,
			"error", err,
		)
	}
}
