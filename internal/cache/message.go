package cache

import (
	"context"
	"fmt"
	"time"

	"DopamineBreaker/storage/redis"
)

const (
	messageProcessedPrefix = "mq:processed"
	processedTTL           = 24 * time.Hour
)

// TryMarkMessageProcessing 用 SETNX 标记消息正在处理
// 返回 true 表示首次处理，false 表示重复投递或其他消费者正在处理
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	client := redis.Client()
	if client == nil {
		return true, nil
	}
	if ttl <= 0 {
		ttl = processedTTL
	}

	ok, err := client.SetNX(ctx, redis.Key(messageProcessedPrefix, messageID), "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// UnmarkMessageProcessing 处理失败时删除标记，允许重新投递后再次处理
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	client := redis.Client()
	if client == nil {
		return nil
	}

	return client.Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}

// MarkMessageProcessed 处理成功后更新为 completed 并延长 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	client := redis.Client()
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = processedTTL
	}

	return client.Set(ctx, redis.Key(messageProcessedPrefix, messageID), "completed", ttl).Err()
}
