package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	ri "github.com/redis/go-redis/v9"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/storage/redis"
)

const (
	catalogPrefix = "catalog"
	// 空值标识，表示该日期的任务尚未生成
	emptyValueFlag = "__EMPTY__"
	emptyValueTTL  = time.Minute
	// TTL 随机抖动上限，避免同一时刻大量 key 失效
	ttlJitterMax = 30 * time.Second
)

// ErrCacheDisabled Redis 未启用
var ErrCacheDisabled = errors.New("cache disabled")

// CatalogCache 按日期缓存每日任务列表，带空值保护
type CatalogCache struct {
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		ttl:      ttl,
		emptyTTL: emptyValueTTL,
	}
}

// Set missions 为 nil 时写入空值标识。空值只在 key 不存在时写入，
// 读库未命中之后刷新可能已经写入了当天目录，不能被空值覆盖
func (cc *CatalogCache) Set(ctx context.Context, date string, missions []model.MissionItem) error {
	client := redis.Client()
	if client == nil {
		return ErrCacheDisabled
	}

	key := redis.Key(catalogPrefix, date)
	if missions == nil {
		return client.SetNX(ctx, key, emptyValueFlag, cc.emptyTTL).Err()
	}

	b, err := json.Marshal(missions)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return client.Set(ctx, key, string(b), cc.ttl+jitter()).Err()
}

// Get 返回 (missions, hit, err)；命中空值时 missions 为 nil 且 hit 为 true
func (cc *CatalogCache) Get(ctx context.Context, date string) ([]model.MissionItem, bool, error) {
	client := redis.Client()
	if client == nil {
		return nil, false, ErrCacheDisabled
	}

	data, err := client.Get(ctx, redis.Key(catalogPrefix, date)).Result()
	if err != nil {
		if errors.Is(err, ri.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get catalog cache: %w", err)
	}

	if data == emptyValueFlag {
		return nil, true, nil
	}

	var missions []model.MissionItem
	if err := json.Unmarshal([]byte(data), &missions); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal catalog cache: %w", err)
	}
	return missions, true, nil
}

func (cc *CatalogCache) Invalidate(ctx context.Context, date string) error {
	client := redis.Client()
	if client == nil {
		return nil
	}

	return client.Del(ctx, redis.Key(catalogPrefix, date)).Err()
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(ttlJitterMax)))
}
