// Package attributesnapshot persists read-only attribute snapshots so
// replication mirrors and UI consumers can observe combat state without
// touching the live collections.
package attributesnapshot

import (
	"context"
	"time"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=attributesnapshotmock github.com/KirkDiggler/effect-runtime/internal/repositories/attribute_snapshot Repository

// Snapshot is one entity's attribute state at a point in time
type Snapshot struct {
	EntityID   string                              `json:"entity_id"`
	Records    map[attributes.ID]attributes.Record `json:"records"`
	CapturedAt time.Time                           `json:"captured_at"`
}

// SaveInput captures a snapshot for an entity
type SaveInput struct {
	EntityID string
	Records  map[attributes.ID]attributes.Record
	// TTL bounds how long the snapshot lives; 0 uses the default.
	TTL time.Duration
}

// SaveOutput returns the stored snapshot
type SaveOutput struct {
	Snapshot *Snapshot
}

// GetInput fetches the latest snapshot for an entity
type GetInput struct {
	EntityID string
}

// GetOutput returns the fetched snapshot
type GetOutput struct {
	Snapshot *Snapshot
}

// DeleteInput removes an entity's snapshot
type DeleteInput struct {
	EntityID string
}

// DeleteOutput reports whether anything was deleted
type DeleteOutput struct {
	Deleted bool
}

// Repository stores attribute snapshots keyed by entity ID
type Repository interface {
	Save(ctx context.Context, input SaveInput) (*SaveOutput, error)
	Get(ctx context.Context, input GetInput) (*GetOutput, error)
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}
