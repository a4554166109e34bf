package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/storage/database"
	"DopamineBreaker/storage/mq"
	"DopamineBreaker/storage/redis"
)

const closeTimeout = 15 * time.Second

// Close 先停 MQ 不再接收事件，再关 Redis，最后关数据库
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	closers := []struct {
		name  string
		close func(context.Context) error
	}{
		{"rabbitmq", mq.Close},
		{"redis", redis.Close},
		{"database", database.Close},
	}

	for _, c := range closers {
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage", zap.String("component", c.name), zap.Error(err))
			continue
		}
		logger.Logger.Info("Storage closed", zap.String("component", c.name))
	}
}
