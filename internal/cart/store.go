package cart

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

// Item is one phone selected for a trial, pinned to a variant and color.
type Item struct {
	PhoneID   uuid.UUID `json:"phone_id"`
	PhoneName string    `json:"phone_name"`
	Brand     string    `json:"brand"`
	Variant   string    `json:"variant"`
	Color     string    `json:"color"`
	AddedAt   time.Time `json:"added_at"`
}

// State is the full per-user cart snapshot persisted between requests.
type State struct {
	Items          []Item `json:"items"`
	CouponCode     string `json:"coupon_code,omitempty"`
	CouponDiscount int    `json:"coupon_discount,omitempty"`
}

// Contains reports whether a phone is already in the cart.
func (s State) Contains(phoneID uuid.UUID) bool {
	for _, item := range s.Items {
		if item.PhoneID == phoneID {
			return true
		}
	}
	return false
}

// Store persists cart snapshots keyed by user.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (State, error)
	Save(ctx context.Context, userID uuid.UUID, state State) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type redisStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// DefaultTTL keeps abandoned carts around for a month.
const DefaultTTL = 30 * 24 * time.Hour

// NewRedisStore builds a cart store backed by the shared Redis client.
func NewRedisStore(client *redisclient.Client, ttl time.Duration) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

// Load fetches the cart snapshot, returning an empty state when none exists.
func (r *redisStore) Load(ctx context.Context, userID uuid.UUID) (State, error) {
	raw, err := r.client.Get(ctx, r.client.CartKey(userID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("load cart: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return state, nil
}

// Save atomically replaces the whole cart snapshot.
func (r *redisStore) Save(ctx context.Context, userID uuid.UUID, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.client.CartKey(userID.String()), string(payload), r.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot entirely.
func (r *redisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, r.client.CartKey(userID.String())); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
