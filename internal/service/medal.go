package service

import (
	"context"
	"sync"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/storage/database"
)

const defaultRecentLimit = 5

var (
	medalService *MedalService
	medalOnce    sync.Once
)

func Medal() *MedalService {
	medalOnce.Do(func() {
		medalService = NewMedalService(repository.NewRecordRepository(database.DB()))
	})
	return medalService
}

// MedalService 勋章统计和完成历史，失败记录（actual_duration=0）不计入
type MedalService struct {
	records repository.RecordRepository
}

func NewMedalService(records repository.RecordRepository) *MedalService {
	return &MedalService{records: records}
}

// Medals 各档位成功次数，不在 bronze/silver/gold 内的 tier 忽略
func (s *MedalService) Medals(ctx context.Context, viewer model.Viewer) (model.MedalTally, error) {
	counts, err := s.records.TierCounts(ctx, viewer)
	if err != nil {
		return model.MedalTally{}, err
	}

	return model.MedalTally{
		Bronze: counts[string(model.TierBronze)],
		Silver: counts[string(model.TierSilver)],
		Gold:   counts[string(model.TierGold)],
	}, nil
}

// Recent 最近成功的预设任务，limit<=0 时取 5 条
func (s *MedalService) Recent(ctx context.Context, viewer model.Viewer, limit int) ([]model.CompletionRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.records.Successes(ctx, viewer, "", limit)
}

// ByTier 某档位的全部成功记录
func (s *MedalService) ByTier(ctx context.Context, viewer model.Viewer, tier string) ([]model.CompletionRecord, error) {
	t, ok := model.ParseTier(tier)
	if !ok {
		return nil, errors.InvalidTier
	}
	return s.records.Successes(ctx, viewer, string(t), 0)
}
