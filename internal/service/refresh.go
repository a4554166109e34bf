package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"DopamineBreaker/config"
	"DopamineBreaker/internal/cache"
	"DopamineBreaker/internal/generator"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/queue"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/pkg/metrics"
	"DopamineBreaker/storage/database"
)

// OutcomeStatus 一次每日刷新的结果
type OutcomeStatus string

const (
	OutcomeCreated       OutcomeStatus = "created"
	OutcomeAlreadyExists OutcomeStatus = "already_exists"
	OutcomeFailed        OutcomeStatus = "failed"
)

// Outcome Entry 只在 Created 时有值
type Outcome struct {
	Status OutcomeStatus       `json:"status"`
	Date   string              `json:"date"`
	Reason string              `json:"reason,omitempty"`
	Entry  *model.CatalogEntry `json:"-"`
}

const refreshLockTTL = 3 * time.Minute

var (
	refreshService *RefreshService
	refreshOnce    sync.Once
)

// Refresh 使用全局数据库、Redis 和 RabbitMQ 的默认实例
func Refresh() *RefreshService {
	refreshOnce.Do(func() {
		gen, err := NewDefaultGenerator(config.Cfg)
		if err != nil {
			logger.Logger.Fatal("Failed to build mission generator", zap.Error(err))
		}

		refreshService = NewRefreshService(RefreshDeps{
			Catalogs:  repository.NewCatalogRepository(database.DB()),
			Generator: gen,
			Clock:     SystemClock,
			Location:  Location(),
			Locker:    cache.RedisLocker{},
			Cache:     DefaultCatalogCache(),
			Events:    queue.NewProducer(),
		})
	})
	return refreshService
}

// NewDefaultGenerator 未配置 GEMINI_API_KEY 时只使用固定任务集
func NewDefaultGenerator(cfg config.Config) (*generator.Generator, error) {
	fallback, err := generator.LoadFallback(cfg.FallbackMissionsPath)
	if err != nil {
		return nil, err
	}

	var client generator.ContentClient
	gemini, err := generator.NewGeminiClient(generator.GeminiConfig{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		Endpoint:       cfg.GeminiEndpoint,
		Timeout:        cfg.GeminiTimeout,
		CallsPerMinute: cfg.GeminiCallsPerMinute,
		BreakerFails:   cfg.GeminiBreakerFails,
		BreakerReset:   cfg.GeminiBreakerReset,
	})
	switch {
	case err == nil:
		client = gemini
	case stderrors.Is(err, generator.ErrNoClient):
		logger.Logger.Warn("GEMINI_API_KEY not set, daily missions come from the fallback set")
	default:
		return nil, err
	}

	return generator.New(client, fallback, cfg.GeneratorFailSoft), nil
}

// RefreshDeps 可选依赖为空时使用无操作实现
type RefreshDeps struct {
	Catalogs  repository.CatalogRepository
	Generator MissionGenerator
	Clock     Clock
	Location  *time.Location
	Locker    Locker
	Cache     CatalogCache
	Events    EventPublisher
}

type RefreshService struct {
	catalogs  repository.CatalogRepository
	generator MissionGenerator
	clock     Clock
	loc       *time.Location
	locker    Locker
	cache     CatalogCache
	events    EventPublisher
}

func NewRefreshService(deps RefreshDeps) *RefreshService {
	s := &RefreshService{
		catalogs:  deps.Catalogs,
		generator: deps.Generator,
		clock:     deps.Clock,
		loc:       deps.Location,
		locker:    deps.Locker,
		cache:     deps.Cache,
		events:    deps.Events,
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.locker == nil {
		s.locker = noopLocker{}
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	return s
}

// Today 当前配置时区下的日期键
func (s *RefreshService) Today() string {
	return model.DateKey(s.clock.Now(), s.loc)
}

// RefreshToday 保证今天的目录存在；重复调用不会改动已有条目
func (s *RefreshService) RefreshToday(ctx context.Context) Outcome {
	started := time.Now()
	today := s.Today()

	outcome := s.refresh(ctx, today)
	metrics.RecordRefresh(ctx, string(outcome.Status), time.Since(started).Seconds())

	fields := []zap.Field{
		zap.String("date", today),
		zap.String("status", string(outcome.Status)),
		zap.Duration("elapsed", time.Since(started)),
	}
	switch outcome.Status {
	case OutcomeFailed:
		logger.Logger.Error("Daily mission refresh failed", append(fields, zap.String("reason", outcome.Reason))...)
	case OutcomeCreated:
		logger.Logger.Info("Daily missions created", fields...)
	default:
		logger.Logger.Info("Daily missions already exist", append(fields, zap.String("reason", outcome.Reason))...)
	}
	return outcome
}

func (s *RefreshService) refresh(ctx context.Context, today string) Outcome {
	exists, err := s.catalogs.Exists(ctx, today)
	if err != nil {
		return Outcome{Status: OutcomeFailed, Date: today, Reason: err.Error()}
	}
	if exists {
		return Outcome{Status: OutcomeAlreadyExists, Date: today}
	}

	runID := uuid.NewString()
	lockKey := "catalog:refresh:" + today
	acquired, err := s.locker.TryLock(ctx, lockKey, runID, refreshLockTTL)
	if err != nil {
		// 锁只用于减少重复生成，数据库唯一约束兜底
		logger.Logger.Warn("Failed to acquire refresh lock, continuing", zap.String("date", today), zap.Error(err))
		acquired = true
	}
	if !acquired {
		return Outcome{Status: OutcomeAlreadyExists, Date: today, Reason: "refresh in progress in another process"}
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey, runID); err != nil {
			logger.Logger.Warn("Failed to release refresh lock", zap.String("date", today), zap.Error(err))
		}
	}()

	previous := s.previousEntry(ctx, today)

	result, err := s.generator.Generate(ctx, previous)
	if err != nil {
		return Outcome{Status: OutcomeFailed, Date: today, Reason: err.Error()}
	}

	entry := &model.CatalogEntry{Date: today, Slots: result.Slots}
	meta := result.Meta()
	meta.RunID = runID
	if previous != nil {
		meta.PreviousDate = previous.Date
	}
	if err := entry.SetMeta(meta); err != nil {
		return Outcome{Status: OutcomeFailed, Date: today, Reason: fmt.Sprintf("encode meta: %v", err)}
	}
	// 任何 MissionGenerator 的结果都要过这一关，越界的目录不能入库
	if err := entry.Validate(); err != nil {
		return Outcome{Status: OutcomeFailed, Date: today, Reason: fmt.Sprintf("%v: %v", errors.ErrGeneration, err)}
	}

	if err := s.catalogs.Create(ctx, entry); err != nil {
		if stderrors.Is(err, errors.ErrDuplicateEntry) {
			return Outcome{Status: OutcomeAlreadyExists, Date: today, Reason: "created concurrently"}
		}
		return Outcome{Status: OutcomeFailed, Date: today, Reason: err.Error()}
	}

	// 直接写入目录，覆盖并发读者在入库前留下的空值
	if err := s.cache.Set(ctx, today, entry.Missions()); err != nil && !stderrors.Is(err, cache.ErrCacheDisabled) {
		logger.Logger.Warn("Failed to cache new catalog", zap.String("date", today), zap.Error(err))
	}
	_ = s.events.PublishCatalogCreated(ctx, model.CatalogCreatedMessage{
		Date:   today,
		Source: meta.Source,
		RunID:  runID,
	})

	return Outcome{Status: OutcomeCreated, Date: today, Entry: entry, Reason: meta.FallbackReason}
}

// previousEntry 前一天的条目只作为提示词上下文，读取失败不影响生成
func (s *RefreshService) previousEntry(ctx context.Context, today string) *model.CatalogEntry {
	day, err := model.ParseDateKey(today, s.loc)
	if err != nil {
		return nil
	}
	yesterday := day.AddDate(0, 0, -1).Format(model.DateLayout)

	entry, err := s.catalogs.GetByDate(ctx, yesterday)
	if err != nil {
		if !stderrors.Is(err, errors.ErrCatalogNotFound) {
			logger.Logger.Warn("Failed to load previous catalog", zap.String("date", yesterday), zap.Error(err))
		}
		return nil
	}
	return entry
}
