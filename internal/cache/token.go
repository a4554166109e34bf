package cache

import (
	"context"
	"time"

	"DopamineBreaker/config"
	"DopamineBreaker/storage/redis"
)

const (
	tokenPrefix = "token"
)

// SetRefreshToken 存储 refresh token 到 Redis
// Key: dpb:token:refresh:{public_id}
func SetRefreshToken(ctx context.Context, userID, refreshToken string) error {
	client := redis.Client()
	if client == nil {
		return nil
	}

	key := redis.Key(tokenPrefix, "refresh", userID)
	ttl := time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour

	return client.Set(ctx, key, refreshToken, ttl).Err()
}

func GetRefreshToken(ctx context.Context, userID string) (string, error) {
	client := redis.Client()
	if client == nil {
		return "", nil
	}

	return client.Get(ctx, redis.Key(tokenPrefix, "refresh", userID)).Result()
}

// DeleteRefreshToken 登出或轮换时使旧 token 失效
func DeleteRefreshToken(ctx context.Context, userID string) error {
	client := redis.Client()
	if client == nil {
		return nil
	}

	return client.Del(ctx, redis.Key(tokenPrefix, "refresh", userID)).Err()
}

// ValidateRefreshTokenExists 检查 refresh token 是否为最近一次签发的
// Redis 未启用时只依赖 JWT 自身的签名与过期校验
func ValidateRefreshTokenExists(ctx context.Context, userID, refreshToken string) bool {
	if redis.Client() == nil {
		return true
	}

	storedToken, err := GetRefreshToken(ctx, userID)
	if err != nil {
		return false
	}
	return storedToken == refreshToken
}
