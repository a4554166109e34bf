package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"DopamineBreaker/internal/model"
)

type CustomMissionRepository interface {
	List(ctx context.Context) ([]model.CustomMission, error)
	Get(ctx context.Context, id int64) (*model.CustomMission, error)
	Create(ctx context.Context, mission *model.CustomMission) error
}

type customMissionRepository struct {
	db *gorm.DB
}

func NewCustomMissionRepository(db *gorm.DB) CustomMissionRepository {
	return &customMissionRepository{db: db}
}

func (r *customMissionRepository) List(ctx context.Context) ([]model.CustomMission, error) {
	var missions []model.CustomMission
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&missions).Error; err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return missions, nil
}

func (r *customMissionRepository) Get(ctx context.Context, id int64) (*model.CustomMission, error) {
	var mission model.CustomMission
	if err := r.db.WithContext(ctx).First(&mission, id).Error; err != nil {
		return nil, err
	}
	return &mission, nil
}

func (r *customMissionRepository) Create(ctx context.Context, mission *model.CustomMission) error {
	if err := r.db.WithContext(ctx).Create(mission).Error; err != nil {
		return fmt.Errorf("create mission: %w", err)
	}
	return nil
}
