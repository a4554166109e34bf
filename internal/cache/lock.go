package cache

import (
	"context"
	"time"

	ri "github.com/redis/go-redis/v9"

	"DopamineBreaker/storage/redis"
)

// 通过 SETNX 实现分布式锁，value 为持有者标识，只允许持有者释放
const (
	lockPrefix = "lock"
)

var unlockScript = ri.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 尝试加锁，Redis 不可用时返回 acquired=true，由数据库唯一约束兜底
func TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	client := redis.Client()
	if client == nil {
		return true, nil
	}

	return client.SetNX(ctx, redis.Key(lockPrefix, key), owner, ttl).Result()
}

// Unlock 仅当锁仍属于 owner 时删除，锁过期后被他人持有的情况不会误删
func Unlock(ctx context.Context, key, owner string) error {
	client := redis.Client()
	if client == nil {
		return nil
	}

	return unlockScript.Run(ctx, client, []string{redis.Key(lockPrefix, key)}, owner).Err()
}

// RedisLocker 以方法形式暴露 TryLock/Unlock，供 service 注入
type RedisLocker struct{}

func (RedisLocker) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return TryLock(ctx, key, owner, ttl)
}

func (RedisLocker) Unlock(ctx context.Context, key, owner string) error {
	return Unlock(ctx, key, owner)
}
