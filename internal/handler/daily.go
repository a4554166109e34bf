package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/service"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/response"
)

// GetDailyCatalog 今天的完整 13 个任务
// GET /api/missions/daily
func GetDailyCatalog(ctx context.Context, c *app.RequestContext) {
	catalog := services().Catalog
	today := catalog.Today()

	missions, err := catalog.DailyCatalog(ctx, today)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.DailyCatalogResponse{Date: today, Missions: missions})
}

// ListPresets 今天还没有被尝试过的任务
// GET /api/missions/presets
func ListPresets(ctx context.Context, c *app.RequestContext) {
	missions, err := services().Catalog.AvailableToday(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.MissionListResponse{Missions: missions})
}

// CompletePreset 完成预设任务
// POST /api/missions/presets/complete
func CompletePreset(ctx context.Context, c *app.RequestContext) {
	var req dto.PresetRecordRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	record, err := services().Record.CompletePreset(ctx, viewer(ctx, c), &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, dto.RecordResponse{Record: record})
}

// FailPreset 放弃或失败
// POST /api/missions/presets/fail
func FailPreset(ctx context.Context, c *app.RequestContext) {
	var req dto.PresetRecordRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	record, err := services().Record.FailPreset(ctx, viewer(ctx, c), &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, dto.RecordResponse{Record: record})
}

// GetMedals 勋章统计
// GET /api/missions/medals
func GetMedals(ctx context.Context, c *app.RequestContext) {
	medals, err := services().Medal.Medals(ctx, viewer(ctx, c))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.MedalsResponse{Medals: medals})
}

// GetRecent 最近完成的预设任务
// GET /api/missions/recent?limit=
func GetRecent(ctx context.Context, c *app.RequestContext) {
	records, err := services().Medal.Recent(ctx, viewer(ctx, c), queryInt(c, "limit", 5))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.MissionListResponse{Missions: records})
}

// GetByTier 某档位完成的任务
// GET /api/missions/by-tier/:tier
func GetByTier(ctx context.Context, c *app.RequestContext) {
	records, err := services().Medal.ByTier(ctx, viewer(ctx, c), c.Param("tier"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.MissionListResponse{Missions: records})
}

// GenerateDaily 手动触发今天的生成
// POST /api/missions/generate-daily
func GenerateDaily(ctx context.Context, c *app.RequestContext) {
	outcome := services().Refresh.RefreshToday(ctx)

	body := dto.GenerateDailyResponse{
		Status: string(outcome.Status),
		Date:   outcome.Date,
		Reason: outcome.Reason,
	}

	switch outcome.Status {
	case service.OutcomeCreated:
		body.Missions = outcome.Entry.Missions()
		response.Created(ctx, c, body)
	case service.OutcomeAlreadyExists:
		response.Success(ctx, c, body)
	default:
		response.ErrorWithDetails(ctx, c, errors.CatalogRefreshFailed, map[string]interface{}{
			"date":   outcome.Date,
			"reason": outcome.Reason,
		})
	}
}
