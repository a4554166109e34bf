package storage

import (
	"go.uber.org/zap"

	"DopamineBreaker/config"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/storage/database"
	"DopamineBreaker/storage/mq"
	"DopamineBreaker/storage/redis"
)

// Init 统一初始化存储层；数据库失败即返回，Redis 与 RabbitMQ 失败时降级运行
func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if config.Cfg.RedisEnabled {
		if err := redis.Init(); err != nil {
			logger.Logger.Warn("Redis unavailable, running without cache and distributed lock", zap.Error(err))
		}
	}

	if config.Cfg.RabbitMQEnabled {
		if err := mq.Init(); err != nil {
			logger.Logger.Warn("RabbitMQ unavailable, events will not be published", zap.Error(err))
		}
	}

	return nil
}
