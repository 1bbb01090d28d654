package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/touchtrial/touchtrial-backend/pkg/redis"
)

// DefaultTTL keeps an untouched compare list for a month before it expires.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists per-user compare lists.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Save(ctx context.Context, userID uuid.UUID, phoneIDs []uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type redisStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisStore builds a compare store backed by the shared Redis client.
func NewRedisStore(client *redisclient.Client, ttl time.Duration) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

func (r *redisStore) Load(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	raw, err := r.client.Get(ctx, r.client.CompareKey(userID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load compare list: %w", err)
	}
	var phoneIDs []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &phoneIDs); err != nil {
		return nil, fmt.Errorf("decode compare list: %w", err)
	}
	return phoneIDs, nil
}

func (r *redisStore) Save(ctx context.Context, userID uuid.UUID, phoneIDs []uuid.UUID) error {
	payload, err := json.Marshal(phoneIDs)
	if err != nil {
		return fmt.Errorf("encode compare list: %w", err)
	}
	if err := r.client.Set(ctx, r.client.CompareKey(userID.String()), string(payload), r.ttl); err != nil {
		return fmt.Errorf("save compare list: %w", err)
	}
	return nil
}

func (r *redisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, r.client.CompareKey(userID.String())); err != nil {
		return fmt.Errorf("clear compare list: %w", err)
	}
	return nil
}
