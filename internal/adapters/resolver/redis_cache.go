package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisKeyPrefix = "threat:dns:txt:"

// RedisCache is an AnswerCache shared between analyzer instances
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to addr and verifies the server answers
func NewRedisCache(ctx context.Context, addr string, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{rdb: rdb, logger: logger}, nil
}

// Get returns the cached answer for name. Redis errors count as a miss.
func (c *RedisCache) Get(ctx context.Context, name string) (*Answer, bool) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+name).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("DNS answer cache read failed", zap.String("name", name), zap.Error(err))
		}
		return nil, false
	}

	var answer Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.logger.Debug("Failed to decode cached DNS answer", zap.String("name", name), zap.Error(err))
		return nil, false
	}
	return &answer, true
}

// Set stores an answer with ttl
func (c *RedisCache) Set(ctx context.Context, name string, answer *Answer, ttl time.Duration) {
	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.Debug("Failed to encode DNS answer", zap.String("name", name), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+name, data, ttl).Err(); err != nil {
		c.logger.Debug("DNS answer cache write failed", zap.String("name", name), zap.Error(err))
	}
}

// Stop closes the redis client
func (c *RedisCache) Stop() {
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close redis client", zap.Error(err))
	}
}
