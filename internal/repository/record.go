package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"DopamineBreaker/internal/model"
)

// RecordRepository 完成记录只追加，不更新不删除
type RecordRepository interface {
	Create(ctx context.Context, record *model.CompletionRecord) error
	// PresetIDsBetween completed_at 落在 [start, end) 内的全部 preset_mission_id，不区分用户和结果
	PresetIDsBetween(ctx context.Context, start, end time.Time) ([]int, error)
	// TierCounts 按 tier 统计成功记录
	TierCounts(ctx context.Context, viewer model.Viewer) (map[string]int64, error)
	// Successes 成功的预设任务记录，按完成时间倒序；tier 为空表示全部档位，limit<=0 表示不限
	Successes(ctx context.Context, viewer model.Viewer, tier string, limit int) ([]model.CompletionRecord, error)
	// List 分页列出全部记录，附带自定义任务
	List(ctx context.Context, limit, offset int) ([]model.CompletionRecord, int64, error)
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

// visibleTo 已登录用户可见本人记录和匿名记录，未登录可见全部
func visibleTo(viewer model.Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.UserID == nil {
			return db
		}
		return db.Where("(user_id = ? OR user_id IS NULL)", *viewer.UserID)
	}
}

func (r *recordRepository) Create(ctx context.Context, record *model.CompletionRecord) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	record.CompletedAt = record.CompletedAt.UTC()

	if err := r.db.WithContext(ctx).Omit("Mission").Create(record).Error; err != nil {
		return fmt.Errorf("create mission record: %w", err)
	}
	return nil
}

func (r *recordRepository) PresetIDsBetween(ctx context.Context, start, end time.Time) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).Model(&model.CompletionRecord{}).
		Where("preset_mission_id IS NOT NULL").
		Where("completed_at >= ? AND completed_at < ?", start.UTC(), end.UTC()).
		Distinct().
		Pluck("preset_mission_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list preset ids: %w", err)
	}
	return ids, nil
}

type tierCount struct {
	Tier  string
	Count int64
}

func (r *recordRepository) TierCounts(ctx context.Context, viewer model.Viewer) (map[string]int64, error) {
	var rows []tierCount
	err := r.db.WithContext(ctx).Model(&model.CompletionRecord{}).
		Scopes(visibleTo(viewer)).
		Select("tier, COUNT(*) AS count").
		Where("actual_duration > 0 AND tier IS NOT NULL").
		Group("tier").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count medals: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Tier] = row.Count
	}
	return counts, nil
}

func (r *recordRepository) Successes(ctx context.Context, viewer model.Viewer, tier string, limit int) ([]model.CompletionRecord, error) {
	q := r.db.WithContext(ctx).
		Scopes(visibleTo(viewer)).
		Where("preset_mission_id IS NOT NULL AND actual_duration > 0")
	if tier != "" {
		q = q.Where("tier = ?", tier)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []model.CompletionRecord
	if err := q.Order("completed_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list successful records: %w", err)
	}
	return records, nil
}

func (r *recordRepository) List(ctx context.Context, limit, offset int) ([]model.CompletionRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.CompletionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	var records []model.CompletionRecord
	err := r.db.WithContext(ctx).
		Preload("Mission").
		Order("completed_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return records, total, nil
}
