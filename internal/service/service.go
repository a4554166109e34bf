package service

import (
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/config"
	"DopamineBreaker/internal/cache"
	"DopamineBreaker/pkg/logger"
)

// Location 每日任务使用的时区，配置在启动时已校验
func Location() *time.Location {
	loc, err := config.Cfg.Location()
	if err != nil {
		logger.Logger.Warn("Invalid MISSION_TIMEZONE, using local time", zap.Error(err))
		return time.Local
	}
	return loc
}

// DefaultCatalogCache Redis 未启用时 CatalogCache 的各方法返回 ErrCacheDisabled，调用方降级为直接查库
func DefaultCatalogCache() CatalogCache {
	ttl := time.Duration(config.Cfg.CatalogCacheTTLMn) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return cache.NewCatalogCache(ttl)
}
