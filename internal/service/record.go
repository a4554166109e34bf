package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/queue"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/storage/database"
	"DopamineBreaker/utils"
)

var (
	recordService *RecordService
	recordOnce    sync.Once
)

func Record() *RecordService {
	recordOnce.Do(func() {
		recordService = NewRecordService(RecordDeps{
			Records: repository.NewRecordRepository(database.DB()),
			Catalog: Catalog(),
			Clock:   SystemClock,
			Events:  queue.NewProducer(),
		})
	})
	return recordService
}

// SlotLookup 按 id 查当天目录里的任务
type SlotLookup interface {
	Slot(ctx context.Context, position int) (model.MissionItem, bool)
}

type RecordDeps struct {
	Records repository.RecordRepository
	Catalog SlotLookup
	Clock   Clock
	Events  EventPublisher
}

// RecordService 写入任务记录，记录只追加
type RecordService struct {
	records repository.RecordRepository
	catalog SlotLookup
	clock   Clock
	events  EventPublisher
}

func NewRecordService(deps RecordDeps) *RecordService {
	s := &RecordService{
		records: deps.Records,
		catalog: deps.Catalog,
		clock:   deps.Clock,
		events:  deps.Events,
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	return s
}

// CompletePreset 成功完成一个预设任务，actual_duration 取请求中的 duration
func (s *RecordService) CompletePreset(ctx context.Context, viewer model.Viewer, req *dto.PresetRecordRequest) (*model.CompletionRecord, error) {
	record, err := s.presetRecord(ctx, viewer, req)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration == nil {
		if slot, ok := s.slot(ctx, *req.PresetMissionID); ok {
			duration = &slot.Duration
		}
	}
	if duration == nil || *duration <= 0 {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "duration must be a positive number of minutes"}
	}
	record.ActualDuration = *duration
	record.Notes = utils.SanitizeOptional(req.Notes)

	return s.save(ctx, viewer, record)
}

// FailPreset 失败或取消，actual_duration 固定为 0，notes 固定为 failed
func (s *RecordService) FailPreset(ctx context.Context, viewer model.Viewer, req *dto.PresetRecordRequest) (*model.CompletionRecord, error) {
	record, err := s.presetRecord(ctx, viewer, req)
	if err != nil {
		return nil, err
	}

	note := model.FailedNote
	record.ActualDuration = 0
	record.Notes = &note

	return s.save(ctx, viewer, record)
}

// CompleteCustom 完成自定义任务，actual_duration 缺省时取任务时长
func (s *RecordService) CompleteCustom(ctx context.Context, viewer model.Viewer, mission *model.CustomMission, req *dto.CompleteMissionRequest) (*model.CompletionRecord, error) {
	duration := mission.Duration
	var notes *string
	if req != nil {
		if req.ActualDuration != nil {
			duration = *req.ActualDuration
		}
		notes = utils.SanitizeOptional(req.Notes)
	}
	if duration < 0 {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "actual_duration must not be negative"}
	}

	missionID := mission.ID
	record := &model.CompletionRecord{
		UserID:         viewer.UserID,
		MissionID:      &missionID,
		ActualDuration: duration,
		Notes:          notes,
	}

	saved, err := s.save(ctx, viewer, record)
	if err != nil {
		return nil, err
	}
	saved.Mission = mission
	return saved, nil
}

// List 全部记录分页，limit 默认 10
func (s *RecordService) List(ctx context.Context, limit, offset int) (*dto.RecordPage, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.records.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.RecordPage{Records: records, Total: total, Limit: limit, Offset: offset}, nil
}

// presetRecord 校验 preset_mission_id，并用当天目录补齐缺省的快照字段
func (s *RecordService) presetRecord(ctx context.Context, viewer model.Viewer, req *dto.PresetRecordRequest) (*model.CompletionRecord, error) {
	if req == nil || req.PresetMissionID == nil {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "preset_mission_id is required"}
	}
	id := *req.PresetMissionID
	if _, _, ok := model.TierAt(id); !ok {
		return nil, errors.PresetMissionInvalid
	}

	tier := utils.SanitizeOptional(req.Tier)
	title := utils.SanitizeOptional(req.Title)
	if title != nil {
		t := utils.TruncateRunes(*title, 100)
		title = &t
	}
	description := utils.SanitizeOptional(req.Description)

	if tier == nil || title == nil || description == nil {
		if slot, ok := s.slot(ctx, id); ok {
			if tier == nil {
				t := string(slot.Tier)
				tier = &t
			}
			if title == nil {
				title = &slot.Title
			}
			if description == nil {
				description = &slot.Description
			}
		}
	}

	return &model.CompletionRecord{
		UserID:          viewer.UserID,
		PresetMissionID: &id,
		Tier:            tier,
		Title:           title,
		Description:     description,
	}, nil
}

func (s *RecordService) slot(ctx context.Context, id int) (model.MissionItem, bool) {
	if s.catalog == nil {
		return model.MissionItem{}, false
	}
	return s.catalog.Slot(ctx, id)
}

func (s *RecordService) save(ctx context.Context, viewer model.Viewer, record *model.CompletionRecord) (*model.CompletionRecord, error) {
	record.CompletedAt = s.clock.Now().UTC().Truncate(time.Microsecond)

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Logger.Info("Mission recorded",
		zap.Int64("record_id", record.ID),
		zap.Bool("anonymous", viewer.UserID == nil),
		zap.Bool("succeeded", record.Succeeded()),
	)

	_ = s.events.PublishMissionRecorded(ctx, model.MissionRecordedMessage{
		RecordID:        record.ID,
		PresetMissionID: record.PresetMissionID,
		MissionID:       record.MissionID,
		Tier:            record.Tier,
		Succeeded:       record.Succeeded(),
		Anonymous:       viewer.UserID == nil,
		CompletedAt:     record.CompletedAt.Format(time.RFC3339),
	})
	return record, nil
}
