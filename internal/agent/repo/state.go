package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerflow-core/server/internal/agent/model"
	errx "github.com/dealerflow-core/server/internal/core/error"
	logx "github.com/dealerflow-core/server/pkg/logger"
)

// RedisStateRepository persists ConversationState as one JSON value per
// phone, refreshing the TTL on every save.
type RedisStateRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStateRepository(rdb redis.Cmdable, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisStateRepository) stateKey(phone string) string {
	return fmt.Sprintf("lead:%s:state", phone)
}

// Load returns (nil, nil) for a phone never seen; the caller treats that
// as a brand-new conversation.
func (r *RedisStateRepository) Load(ctx context.Context, phone string) (*model.ConversationState, error) {
	key := r.stateKey(phone)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation state")
		return nil, errx.WrapRedis(err)
	}
	var st model.ConversationState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		logx.Error().Err(err).Str("phone", phone).Msg("failed to unmarshal conversation state")
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &st, nil
}

func (r *RedisStateRepository) Save(ctx context.Context, state *model.ConversationState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	key := r.stateKey(state.Phone)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation state")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisStateRepository) Delete(ctx context.Context, phone string) error {
	if err := r.rdb.Del(ctx, r.stateKey(phone)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.StateRepository = (*RedisStateRepository)(nil)

// RedisFSMRepository persists the per-lead stage record next to the
// conversation state, same TTL semantics.
type RedisFSMRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisFSMRepository(rdb redis.Cmdable, ttl time.Duration) *RedisFSMRepository {
	return &RedisFSMRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisFSMRepository) fsmKey(phone string) string {
	return fmt.Sprintf("lead:%s:stage", phone)
}

func (r *RedisFSMRepository) Load(ctx context.Context, phone string) (*model.FSMState, error) {
	key := r.fsmKey(phone)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load fsm state")
		return nil, errx.WrapRedis(err)
	}
	var st model.FSMState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("unmarshal fsm state: %w", err)
	}
	return &st, nil
}

func (r *RedisFSMRepository) Save(ctx context.Context, phone string, state *model.FSMState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal fsm state: %w", err)
	}
	key := r.fsmKey(phone)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save fsm state")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.FSMRepository = (*RedisFSMRepository)(nil)
