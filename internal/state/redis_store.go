package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultStateTTL = 24 * time.Hour

// RedisStore keeps conversation state in Redis with a TTL so idle
// sessions expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.StateTTL), nil
}

// NewRedisStoreWithClient wraps an existing client. A non-positive ttl
// falls back to the default.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func stateKey(userID uint, sessionID string) string {
	return fmt.Sprintf("user:%d:session:%s:state", userID, sessionID)
}

func (s *RedisStore) GetState(ctx context.Context, userID uint, sessionID string) (*domain.ConversationState, error) {
	data, err := s.client.Get(ctx, stateKey(userID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation state: %w", err)
	}

	var state domain.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode conversation state: %w", err)
	}
	return &state, nil
}

// SaveState replaces the stored snapshot and refreshes its TTL.
func (s *RedisStore) SaveState(ctx context.Context, state *domain.ConversationState) error {
	key := stateKey(state.UserID, state.SessionID)
	now := time.Now().UTC()

	if prev, err := s.GetState(ctx, state.UserID, state.SessionID); err == nil && prev != nil {
		state.CreatedAt = prev.CreatedAt
	} else if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode conversation state: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
