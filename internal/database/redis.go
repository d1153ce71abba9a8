package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pushp314/commit-backend/internal/config"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

// ErrCacheDisabled is returned by cache helpers when Redis is not connected.
var ErrCacheDisabled = errors.New("cache disabled")

func InitRedis() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	if _, err := client.Ping(Ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to Redis. Caching and token revocation are disabled.")
		_ = client.Close()
		return
	}

	Redis = client
	logger.Info().Str("addr", config.AppConfig.RedisAddr).Msg("Connected to Redis")
}

// Token revocation

func blacklistKey(jti string) string {
	return fmt.Sprintf("token_blacklist:%s", jti)
}

// BlacklistToken revokes a token id until its natural expiry.
func BlacklistToken(jti string, ttl time.Duration) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	return Redis.Set(Ctx, blacklistKey(jti), "1", ttl).Err()
}

func IsTokenBlacklisted(jti string) bool {
	if Redis == nil || jti == "" {
		return false
	}
	n, err := Redis.Exists(Ctx, blacklistKey(jti)).Result()
	if err != nil {
		logger.Warn().Err(err).Msg("Token blacklist lookup failed")
		return false
	}
	return n > 0
}

// Caching

func CacheSet(key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(Ctx, key, payload, expiration).Err()
}

func CacheGet(key string, dest interface{}) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	val, err := Redis.Get(Ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func CacheDelete(keys ...string) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	return Redis.Del(Ctx, keys...).Err()
}
