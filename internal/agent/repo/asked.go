package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealerflow-core/server/internal/agent/model"
	errx "github.com/dealerflow-core/server/internal/core/error"
	logx "github.com/dealerflow-core/server/pkg/logger"
)

// RedisAskedSlotTracker records which qualifying questions were already
// asked per phone, as a Redis set expiring with the conversation. Entries
// are cleared on exit; they are never reset on a stage change.
type RedisAskedSlotTracker struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisAskedSlotTracker(rdb redis.Cmdable, ttl time.Duration) *RedisAskedSlotTracker {
	return &RedisAskedSlotTracker{rdb: rdb, ttl: ttl}
}

func (r *RedisAskedSlotTracker) askedKey(phone string) string {
	return fmt.Sprintf("lead:%s:asked", phone)
}

func (r *RedisAskedSlotTracker) MarkAsked(ctx context.Context, phone string, slot model.SlotName) error {
	key := r.askedKey(phone)
	if err := r.rdb.SAdd(ctx, key, string(slot)).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to mark slot asked")
		return errx.WrapRedis(err)
	}
	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			return errx.WrapRedis(err)
		}
	}
	return nil
}

func (r *RedisAskedSlotTracker) Asked(ctx context.Context, phone string) ([]model.SlotName, error) {
	members, err := r.rdb.SMembers(ctx, r.askedKey(phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errx.WrapRedis(err)
	}
	out := make([]model.SlotName, 0, len(members))
	for _, m := range members {
		out = append(out, model.SlotName(m))
	}
	return out, nil
}

func (r *RedisAskedSlotTracker) Clear(ctx context.Context, phone string) error {
	if err := r.rdb.Del(ctx, r.askedKey(phone)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.AskedSlotTracker = (*RedisAskedSlotTracker)(nil)
