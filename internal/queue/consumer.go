package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/internal/cache"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/pkg/metrics"
	"DopamineBreaker/storage/mq"
)

// CatalogWarmer 收到 catalog.created 后重新加载并缓存当天目录
type CatalogWarmer interface {
	WarmCatalog(ctx context.Context, date string) error
}

var catalogWarmer CatalogWarmer

// SetCatalogWarmer 在 worker 启动时注入
func SetCatalogWarmer(w CatalogWarmer) {
	catalogWarmer = w
}

// claim 基于 Redis 的消息幂等，返回 SkipMessageError 表示重复投递
func claim(ctx context.Context, messageID string) error {
	first, err := cache.TryMarkMessageProcessing(ctx, messageID, 24*time.Hour)
	if err != nil {
		// 检查失败时继续处理，最坏情况是重复处理
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return nil
	}
	if !first {
		return &mq.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", messageID)}
	}
	return nil
}

func done(ctx context.Context, messageID string) {
	if err := cache.MarkMessageProcessed(ctx, messageID, 48*time.Hour); err != nil {
		logger.Logger.Warn("Failed to mark message as processed",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

// HandleCatalogCreated catalog.created 的处理逻辑
func HandleCatalogCreated(ctx context.Context, body []byte) error {
	var msg model.CatalogCreatedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.RecordEvent(ctx, mq.RoutingCatalogCreated, "invalid")
		return &mq.SkipMessageError{Reason: fmt.Sprintf("invalid catalog.created payload: %v", err)}
	}

	if err := claim(ctx, msg.MessageID); err != nil {
		metrics.RecordEvent(ctx, mq.RoutingCatalogCreated, "duplicate")
		return err
	}

	if catalogWarmer != nil {
		if err := catalogWarmer.WarmCatalog(ctx, msg.Date); err != nil {
			_ = cache.UnmarkMessageProcessing(ctx, msg.MessageID)
			metrics.RecordEvent(ctx, mq.RoutingCatalogCreated, "error")
			return fmt.Errorf("failed to warm catalog %s: %w", msg.Date, err)
		}
	}

	logger.Logger.Info("Catalog cache warmed",
		zap.String("message_id", msg.MessageID),
		zap.String("date", msg.Date),
		zap.String("source", msg.Source),
	)
	done(ctx, msg.MessageID)
	metrics.RecordEvent(ctx, mq.RoutingCatalogCreated, "ok")
	return nil
}

// HandleMissionRecorded mission.recorded 只做统计
func HandleMissionRecorded(ctx context.Context, body []byte) error {
	var msg model.MissionRecordedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.RecordEvent(ctx, mq.RoutingMissionRecorded, "invalid")
		return &mq.SkipMessageError{Reason: fmt.Sprintf("invalid mission.recorded payload: %v", err)}
	}

	if err := claim(ctx, msg.MessageID); err != nil {
		metrics.RecordEvent(ctx, mq.RoutingMissionRecorded, "duplicate")
		return err
	}

	tier := "custom"
	if msg.Tier != nil {
		tier = *msg.Tier
	}
	metrics.RecordMission(ctx, tier, msg.Succeeded)

	done(ctx, msg.MessageID)
	metrics.RecordEvent(ctx, mq.RoutingMissionRecorded, "ok")
	return nil
}

func StartCatalogCreatedConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueCatalogCreated,
		ConsumerTag:   "catalog_created_consumer",
		PrefetchCount: 1,
		Handler:       HandleCatalogCreated,
	})
}

func StartMissionRecordedConsumer(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueMissionRecorded,
		ConsumerTag:   "mission_recorded_consumer",
		PrefetchCount: 20,
		Handler:       HandleMissionRecorded,
	})
}

// StartAllConsumers 阻塞直到所有消费者退出
func StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []struct {
		name     string
		consumer func(context.Context) error
	}{
		{"catalog_created", StartCatalogCreatedConsumer},
		{"mission_recorded", StartMissionRecordedConsumer},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name string, consumer func(context.Context) error) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer", zap.String("consumer_name", name))

			if err := consumer(ctx); err != nil && ctx.Err() == nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.consumer)
	}

	wg.Wait()

	logger.Logger.Info("All consumers stopped")
}
