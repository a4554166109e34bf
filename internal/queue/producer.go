package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/storage/mq"
)

// Producer 发布领域事件，RabbitMQ 未连接时直接跳过
type Producer struct{}

func NewProducer() *Producer {
	return &Producer{}
}

// PublishCatalogCreated 发布 catalog.created，worker 收到后预热缓存
func (p *Producer) PublishCatalogCreated(ctx context.Context, msg model.CatalogCreatedMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("catalog_%s_%s", msg.Date, uuid.NewString())
	}
	if msg.CreatedAt == "" {
		msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if !mq.Enabled() {
		logger.Logger.Debug("RabbitMQ disabled, skip catalog.created", zap.String("date", msg.Date))
		return nil
	}

	if err := mq.Publish(ctx, mq.RoutingCatalogCreated, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish catalog.created",
			zap.String("date", msg.Date),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published catalog.created",
		zap.String("message_id", msg.MessageID),
		zap.String("date", msg.Date),
		zap.String("source", msg.Source),
	)
	return nil
}

// PublishMissionRecorded 发布 mission.recorded
func (p *Producer) PublishMissionRecorded(ctx context.Context, msg model.MissionRecordedMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("record_%d", msg.RecordID)
	}

	if !mq.Enabled() {
		return nil
	}

	if err := mq.Publish(ctx, mq.RoutingMissionRecorded, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish mission.recorded",
			zap.Int64("record_id", msg.RecordID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Debug("Published mission.recorded",
		zap.String("message_id", msg.MessageID),
		zap.Int64("record_id", msg.RecordID),
	)
	return nil
}
