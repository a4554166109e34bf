package mq

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"DopamineBreaker/pkg/logger"
)

// MessageHandler 处理一条消息，返回 error 时消息重新入队
type MessageHandler func(ctx context.Context, body []byte) error

// SkipMessageError 表示消息无需再处理（重复投递或格式错误），直接确认
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume 阻塞消费，ctx 取消或 channel 关闭时返回
func Consume(ctx context.Context, opts ConsumeOptions) error {
	c := Connection()
	if c == nil {
		return ErrNotConnected
	}

	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(opts.Queue, opts.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for %s", opts.Queue)
			}

			msgCtx := otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(msg.Headers))
			err := opts.Handler(msgCtx, msg.Body)

			var skip *SkipMessageError
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.As(err, &skip):
				logger.Logger.Info("Message skipped",
					zap.String("queue", opts.Queue),
					zap.String("message_id", msg.MessageId),
					zap.String("reason", skip.Reason),
				)
				_ = msg.Ack(false)
			default:
				logger.Logger.Error("Failed to process message",
					zap.String("queue", opts.Queue),
					zap.String("message_id", msg.MessageId),
					zap.Error(err),
				)
				// 已经重投过一次的消息不再入队，避免毒消息循环
				_ = msg.Nack(false, !msg.Redelivered)
			}
		}
	}
}
