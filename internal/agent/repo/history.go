package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/dealerflow-core/server/internal/agent/model"
	errx "github.com/dealerflow-core/server/internal/core/error"
	logx "github.com/dealerflow-core/server/pkg/logger"
)

// RedisHistoryRepository stores the lead transcript as a Redis list of
// eino schema messages, capped to the most recent maxMessages and with the
// TTL extended on every touch.
type RedisHistoryRepository struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	maxMessages int
}

func NewRedisHistoryRepository(rdb redis.Cmdable, ttl time.Duration, maxMessages int) *RedisHistoryRepository {
	return &RedisHistoryRepository{rdb: rdb, ttl: ttl, maxMessages: maxMessages}
}

func (r *RedisHistoryRepository) historyKey(phone string) string {
	return fmt.Sprintf("lead:%s:messages", phone)
}

func (r *RedisHistoryRepository) AddMessage(ctx context.Context, phone string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("phone", phone).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.historyKey(phone)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message")
		return errx.WrapRedis(err)
	}
	// keep only the most recent window
	if r.maxMessages > 0 {
		if err := r.rdb.LTrim(ctx, key, int64(-r.maxMessages), -1).Err(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to trim history")
			return errx.WrapRedis(err)
		}
	}
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on history key")
		}
	}
	return nil
}

func (r *RedisHistoryRepository) LoadHistory(ctx context.Context, phone string) (*model.ConversationHistory, error) {
	key := r.historyKey(phone)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return &model.ConversationHistory{Phone: phone, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load history")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("phone", phone).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{Phone: phone, Messages: msgs}, nil
}

func (r *RedisHistoryRepository) ClearHistory(ctx context.Context, phone string) error {
	key := r.historyKey(phone)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete history")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisHistoryRepository) MessageCount(ctx context.Context, phone string) (int, error) {
	n, err := r.rdb.LLen(ctx, r.historyKey(phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.HistoryRepository = (*RedisHistoryRepository)(nil)
