package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"DopamineBreaker/internal/generator"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/storage/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// fullSlots 13 个合法 slot，bronze_1 为 Stretch(3)
func fullSlots() []model.CatalogSlot {
	slots := make([]model.CatalogSlot, 0, model.SlotsPerDay)
	for pos := 1; pos <= model.SlotsPerDay; pos++ {
		tier, idx, _ := model.TierAt(pos)
		spec, _ := tier.Spec()
		slots = append(slots, model.CatalogSlot{
			Position:    pos,
			Tier:        tier,
			TierIndex:   idx,
			Title:       "mission",
			Description: "description",
			Duration:    spec.MinDuration,
			Category:    model.CategoryHealth,
		})
	}
	slots[0].Title = "Stretch"
	slots[0].Duration = 3
	return slots
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	previous []*model.CatalogEntry
	err      error
	mutate   func(slots []model.CatalogSlot)
}

func (g *fakeGenerator) Generate(_ context.Context, previous *model.CatalogEntry) (*generator.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.previous = append(g.previous, previous)
	if g.err != nil {
		return nil, g.err
	}
	slots := fullSlots()
	if g.mutate != nil {
		g.mutate(slots)
	}
	return &generator.Result{Slots: slots, Source: model.SourceGemini, Model: "fake"}, nil
}

type fakeLocker struct {
	acquired bool
	err      error
	unlocked []string
}

func (l *fakeLocker) TryLock(context.Context, string, string, time.Duration) (bool, error) {
	return l.acquired, l.err
}

func (l *fakeLocker) Unlock(_ context.Context, key, _ string) error {
	l.unlocked = append(l.unlocked, key)
	return nil
}

type memoryCache struct {
	mu          sync.Mutex
	data        map[string][]model.MissionItem
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]model.MissionItem{}}
}

func (c *memoryCache) Get(_ context.Context, date string) ([]model.MissionItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	missions, ok := c.data[date]
	return missions, ok, nil
}

// Set 与 Redis 实现一致：空值不覆盖已有目录
func (c *memoryCache) Set(_ context.Context, date string, missions []model.MissionItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[date]; ok && missions == nil {
		return nil
	}
	c.data[date] = missions
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, date)
	c.invalidated = append(c.invalidated, date)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	catalogs []model.CatalogCreatedMessage
	records  []model.MissionRecordedMessage
}

func (p *recordingPublisher) PublishCatalogCreated(_ context.Context, msg model.CatalogCreatedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalogs = append(p.catalogs, msg)
	return nil
}

func (p *recordingPublisher) PublishMissionRecorded(_ context.Context, msg model.MissionRecordedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, msg)
	return nil
}
