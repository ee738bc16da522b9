package attributesnapshot

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/effect-runtime/internal/errors"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/effect-runtime/internal/redis"
)

const (
	// Key pattern: attr_snapshot:{entity_id}
	snapshotKeyPrefix = "attr_snapshot:"
	defaultTTL        = time.Hour

	errEntityIDEmpty = "entity ID cannot be empty"
)

// Config holds the configuration for the Redis repository
type Config struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.InvalidArgument("redis client is required")
	}
	if c.Clock == nil {
		return errors.InvalidArgument("clock is required")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// NewRedisRepository creates a Redis-backed snapshot repository
func NewRedisRepository(cfg *Config) (Repository, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  cfg.Clock,
	}, nil
}

var _ Repository = (*redisRepository)(nil)

// Save stores a snapshot, replacing any previous one for the entity
func (r *redisRepository) Save(ctx context.Context, input SaveInput) (*SaveOutput, error) {
	if input.EntityID == "" {
		return nil, errors.InvalidArgument(errEntityIDEmpty)
	}
	if len(input.Records) == 0 {
		return nil, errors.InvalidArgument("records cannot be empty")
	}

	ttl := input.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	snapshot := &Snapshot{
		EntityID:   input.EntityID,
		Records:    input.Records,
		CapturedAt: r.clock.Now(),
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal snapshot")
	}

	key := r.buildKey(input.EntityID)
	if err := r.client.Set(ctx, key, snapshotJSON, ttl).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to store snapshot in Redis")
	}

	return &SaveOutput{Snapshot: snapshot}, nil
}

// Get retrieves the latest snapshot for an entity
func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.EntityID == "" {
		return nil, errors.InvalidArgument(errEntityIDEmpty)
	}

	key := r.buildKey(input.EntityID)
	snapshotJSON, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("no snapshot for entity %s", input.EntityID)
		}
		return nil, errors.Wrap(err, "failed to get snapshot from Redis")
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal snapshot")
	}

	return &GetOutput{Snapshot: &snapshot}, nil
}

// Delete removes an entity's snapshot
func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.EntityID == "" {
		return nil, errors.InvalidArgument(errEntityIDEmpty)
	}

	key := r.buildKey(input.EntityID)
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete snapshot from Redis")
	}

	return &DeleteOutput{Deleted: deleted > 0}, nil
}

func (r *redisRepository) buildKey(entityID string) string {
	return snapshotKeyPrefix + entityID
}
