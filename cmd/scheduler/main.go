package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/config"
	"DopamineBreaker/internal/schedule"
	"DopamineBreaker/internal/service"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/pkg/otel"
	"DopamineBreaker/storage"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if config.Cfg.OTelEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.FromConfig("scheduler"))
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("refresh_hour", config.Cfg.RefreshHour),
		zap.Int("refresh_minute", config.Cfg.RefreshMinute),
	)

	s := schedule.GetScheduler(service.Refresh(), schedule.Options{
		Hour:       config.Cfg.RefreshHour,
		Minute:     config.Cfg.RefreshMinute,
		Location:   service.Location(),
		RunTimeout: 5 * time.Minute,
	})

	// 在 development 环境下，为了方便本地调试，每 1 分钟尝试一次（当天已生成时是空操作）
	if config.Cfg.IsDevelopment() {
		logger.Logger.Info("Daily refresh scheduler running in development mode with 1m interval")
		go s.RunEvery(ctx, time.Minute)
	} else {
		go s.Run(ctx, config.Cfg.RefreshOnStartup)
	}

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
