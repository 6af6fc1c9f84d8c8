package caption

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisQuarantineKey = "humorize:caption:quarantine"
	redisCursorKey     = "humorize:caption:cursor"
)

// RedisStateStore shares the key pool state between several service instances
type RedisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) Load(ctx context.Context) (State, error) {
	state := State{Quarantine: map[string]time.Time{}}
	fields, err := s.rdb.HGetAll(ctx, redisQuarantineKey).Result()
	if err != nil {
		return state, err
	}
	for hash, v := range fields {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		state.Quarantine[hash] = time.UnixMilli(ms)
	}
	cursor, err := s.rdb.Get(ctx, redisCursorKey).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return state, err
	}
	state.Cursor = cursor
	return state, nil
}

func (s *RedisStateStore) Save(ctx context.Context, state State) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisQuarantineKey)
		if len(state.Quarantine) > 0 {
			values := make(map[string]interface{}, len(state.Quarantine))
			for hash, until := range state.Quarantine {
				values[hash] = until.UnixMilli()
			}
			pipe.HSet(ctx, redisQuarantineKey, values)
		}
		pipe.Set(ctx, redisCursorKey, state.Cursor, 0)
		return nil
	})
	return err
}
