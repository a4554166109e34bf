package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/storage/database"
	"DopamineBreaker/utils"
)

var (
	missionService *MissionService
	missionOnce    sync.Once
)

func Mission() *MissionService {
	missionOnce.Do(func() {
		missionService = NewMissionService(repository.NewCustomMissionRepository(database.DB()), SystemClock)
	})
	return missionService
}

// MissionService 自定义任务
type MissionService struct {
	missions repository.CustomMissionRepository
	clock    Clock
}

func NewMissionService(missions repository.CustomMissionRepository, clock Clock) *MissionService {
	if clock == nil {
		clock = SystemClock
	}
	return &MissionService{missions: missions, clock: clock}
}

func (s *MissionService) List(ctx context.Context) ([]model.CustomMission, error) {
	return s.missions.List(ctx)
}

// Get 不存在时返回 MissionNotFound
func (s *MissionService) Get(ctx context.Context, id int64) (*model.CustomMission, error) {
	mission, err := s.missions.Get(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.MissionNotFound
		}
		return nil, err
	}
	return mission, nil
}

// Create title 和 duration 必填，difficulty 默认 medium
func (s *MissionService) Create(ctx context.Context, req *dto.CreateMissionRequest) (*model.CustomMission, error) {
	if req == nil || req.Title == nil || req.Duration == nil {
		return nil, errors.MissionFieldsMissing
	}
	title := utils.TruncateRunes(utils.SanitizeText(*req.Title), 100)
	if title == "" || *req.Duration <= 0 {
		return nil, errors.MissionFieldsMissing
	}

	mission := &model.CustomMission{
		Title:      title,
		Duration:   *req.Duration,
		Difficulty: "medium",
	}
	if req.Description != nil {
		mission.Description = utils.SanitizeText(*req.Description)
	}
	if req.Difficulty != nil && *req.Difficulty != "" {
		mission.Difficulty = utils.TruncateRunes(utils.SanitizeText(*req.Difficulty), 20)
	}
	if req.Category != nil {
		mission.Category = utils.TruncateRunes(utils.SanitizeText(*req.Category), 50)
	}

	if err := s.missions.Create(ctx, mission); err != nil {
		return nil, err
	}

	logger.Logger.Info("Custom mission created", zap.Int64("mission_id", mission.ID))
	return mission, nil
}

// Start 只返回开始时间，不落库
func (s *MissionService) Start(ctx context.Context, id int64) (*dto.StartMissionResponse, error) {
	mission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.StartMissionResponse{Mission: mission, StartedAt: s.clock.Now()}, nil
}
