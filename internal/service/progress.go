package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/model"
)

// ErrNoProgress is returned when an owner has no recorded batch progress
var ErrNoProgress = errors.New("no send in progress")

// ProgressStore keeps the latest progress snapshot per owner
type ProgressStore interface {
	Save(ctx context.Context, ownerID string, p model.SendProgress) error
	Load(ctx context.Context, ownerID string) (*model.SendProgress, error)
}

// RedisProgressStore stores snapshots as JSON with a TTL. Readers poll Load.
type RedisProgressStore struct {
	redis *database.Redis
	ttl   time.Duration
}

const defaultProgressTTL = time.Hour

// NewRedisProgressStore creates a RedisProgressStore
func NewRedisProgressStore(r *database.Redis, ttl time.Duration) *RedisProgressStore {
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}
	return &RedisProgressStore{redis: r, ttl: ttl}
}

func progressKey(ownerID string) string {
	return "send:progress:" + ownerID
}

// Save stores p under the owner key until the TTL expires
func (s *RedisProgressStore) Save(ctx context.Context, ownerID string, p model.SendProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := s.redis.SetWithTTL(ctx, progressKey(ownerID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

// Load returns the latest snapshot or ErrNoProgress
func (s *RedisProgressStore) Load(ctx context.Context, ownerID string) (*model.SendProgress, error) {
	raw, err := s.redis.GetString(ctx, progressKey(ownerID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoProgress
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	var p model.SendProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &p, nil
}
