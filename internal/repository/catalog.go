package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/pkg/errors"
)

// CatalogRepository 每日任务目录的存取，条目创建后只读
type CatalogRepository interface {
	// Create 在一个事务内写入条目和 13 个 slot；同日期已存在时返回 ErrDuplicateEntry
	Create(ctx context.Context, entry *model.CatalogEntry) error
	// GetByDate 读取某天的条目，slot 按 position 升序；不存在时返回 ErrCatalogNotFound
	GetByDate(ctx context.Context, date string) (*model.CatalogEntry, error)
	Exists(ctx context.Context, date string) (bool, error)
	// ListDates 最近的日期，新的在前
	ListDates(ctx context.Context, limit int) ([]string, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(ctx context.Context, entry *model.CatalogEntry) error {
	slots := entry.Slots

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry.Slots = nil
		if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
			return err
		}

		for i := range slots {
			slots[i].EntryID = entry.ID
		}
		return tx.Create(&slots).Error
	})
	entry.Slots = slots

	if err != nil {
		entry.ID = 0
		if IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", errors.ErrDuplicateEntry, entry.Date)
		}
		return fmt.Errorf("%w: create catalog entry %s: %v", errors.ErrStorage, entry.Date, err)
	}
	return nil
}

func (r *catalogRepository) GetByDate(ctx context.Context, date string) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("date = ?", date).
		First(&entry).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrCatalogNotFound, date)
		}
		return nil, fmt.Errorf("get catalog entry %s: %w", date, err)
	}
	return &entry, nil
}

func (r *catalogRepository) Exists(ctx context.Context, date string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.CatalogEntry{}).Where("date = ?", date).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count catalog entry %s: %w", date, err)
	}
	return count > 0, nil
}

func (r *catalogRepository) ListDates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 7
	}
	var dates []string
	err := r.db.WithContext(ctx).Model(&model.CatalogEntry{}).
		Order("date DESC").
		Limit(limit).
		Pluck("date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("list catalog dates: %w", err)
	}
	return dates, nil
}
