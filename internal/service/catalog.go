package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/internal/cache"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/storage/database"
)

var (
	catalogService *CatalogService
	catalogOnce    sync.Once
)

func Catalog() *CatalogService {
	catalogOnce.Do(func() {
		catalogService = NewCatalogService(CatalogDeps{
			Catalogs: repository.NewCatalogRepository(database.DB()),
			Records:  repository.NewRecordRepository(database.DB()),
			Cache:    DefaultCatalogCache(),
			Clock:    SystemClock,
			Location: Location(),
		})
	})
	return catalogService
}

type CatalogDeps struct {
	Catalogs repository.CatalogRepository
	Records  repository.RecordRepository
	Cache    CatalogCache
	Clock    Clock
	Location *time.Location
}

// CatalogService 读取每日任务目录并计算当天仍可做的任务
type CatalogService struct {
	catalogs repository.CatalogRepository
	records  repository.RecordRepository
	cache    CatalogCache
	clock    Clock
	loc      *time.Location
}

func NewCatalogService(deps CatalogDeps) *CatalogService {
	s := &CatalogService{
		catalogs: deps.Catalogs,
		records:  deps.Records,
		cache:    deps.Cache,
		clock:    deps.Clock,
		loc:      deps.Location,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

func (s *CatalogService) Today() string {
	return model.DateKey(s.clock.Now(), s.loc)
}

// DailyCatalog 某天的全部 13 个任务，按 id 升序；不存在时返回 ErrCatalogNotFound
func (s *CatalogService) DailyCatalog(ctx context.Context, date string) ([]model.MissionItem, error) {
	missions, hit, err := s.cache.Get(ctx, date)
	if err != nil && !stderrors.Is(err, cache.ErrCacheDisabled) {
		logger.Logger.Warn("Failed to read catalog cache", zap.String("date", date), zap.Error(err))
	}
	if hit {
		if missions == nil {
			return nil, fmt.Errorf("%w: %s", errors.ErrCatalogNotFound, date)
		}
		return missions, nil
	}

	entry, err := s.catalogs.GetByDate(ctx, date)
	if err != nil {
		if stderrors.Is(err, errors.ErrCatalogNotFound) {
			s.store(ctx, date, nil)
		}
		return nil, err
	}

	missions = entry.Missions()
	s.store(ctx, date, missions)
	return missions, nil
}

func (s *CatalogService) store(ctx context.Context, date string, missions []model.MissionItem) {
	if err := s.cache.Set(ctx, date, missions); err != nil && !stderrors.Is(err, cache.ErrCacheDisabled) {
		logger.Logger.Warn("Failed to write catalog cache", zap.String("date", date), zap.Error(err))
	}
}

// AvailableMissions day 当天目录中，当天还没有任何记录（成功或失败、任何用户）的任务
func (s *CatalogService) AvailableMissions(ctx context.Context, day time.Time) ([]model.MissionItem, error) {
	missions, err := s.DailyCatalog(ctx, model.DateKey(day, s.loc))
	if err != nil {
		return nil, err
	}

	start, end := model.DayWindow(day, s.loc)
	ids, err := s.records.PresetIDsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	attempted := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		attempted[id] = struct{}{}
	}

	available := make([]model.MissionItem, 0, len(missions))
	for _, m := range missions {
		if _, ok := attempted[m.ID]; !ok {
			available = append(available, m)
		}
	}
	return available, nil
}

// AvailableToday 以注入的时钟为准
func (s *CatalogService) AvailableToday(ctx context.Context) ([]model.MissionItem, error) {
	return s.AvailableMissions(ctx, s.clock.Now())
}

// Slot 今天目录中指定 id 的任务，目录不存在或 id 越界时 ok 为 false
func (s *CatalogService) Slot(ctx context.Context, position int) (model.MissionItem, bool) {
	missions, err := s.DailyCatalog(ctx, s.Today())
	if err != nil {
		return model.MissionItem{}, false
	}
	for _, m := range missions {
		if m.ID == position {
			return m, true
		}
	}
	return model.MissionItem{}, false
}

// WarmCatalog 丢弃旧缓存并从库中重新加载，供 worker 调用
func (s *CatalogService) WarmCatalog(ctx context.Context, date string) error {
	if err := s.cache.Invalidate(ctx, date); err != nil {
		return err
	}
	_, err := s.DailyCatalog(ctx, date)
	return err
}
