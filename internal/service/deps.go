package service

import (
	"context"
	"time"

	"DopamineBreaker/internal/generator"
	"DopamineBreaker/internal/model"
)

// Clock 当前时间来源，测试中注入固定时间
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock 进程时钟
var SystemClock Clock = ClockFunc(time.Now)

// MissionGenerator 生成一天的 13 个任务
type MissionGenerator interface {
	Generate(ctx context.Context, previous *model.CatalogEntry) (*generator.Result, error)
}

// Locker 跨进程互斥
type Locker interface {
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, owner string) error
}

// CatalogCache 按日期缓存的任务列表
type CatalogCache interface {
	Get(ctx context.Context, date string) ([]model.MissionItem, bool, error)
	Set(ctx context.Context, date string, missions []model.MissionItem) error
	Invalidate(ctx context.Context, date string) error
}

// EventPublisher 领域事件，发布失败不影响主流程
type EventPublisher interface {
	PublishCatalogCreated(ctx context.Context, msg model.CatalogCreatedMessage) error
	PublishMissionRecorded(ctx context.Context, msg model.MissionRecordedMessage) error
}

type noopLocker struct{}

func (noopLocker) TryLock(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (noopLocker) Unlock(context.Context, string, string) error { return nil }

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]model.MissionItem, bool, error) {
	return nil, false, nil
}
func (noopCache) Set(context.Context, string, []model.MissionItem) error { return nil }
func (noopCache) Invalidate(context.Context, string) error               { return nil }

type noopPublisher struct{}

func (noopPublisher) PublishCatalogCreated(context.Context, model.CatalogCreatedMessage) error {
	return nil
}
func (noopPublisher) PublishMissionRecorded(context.Context, model.MissionRecordedMessage) error {
	return nil
}
