package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/response"
)

// missionID 非数字 id 与不存在的任务同样返回 404
func missionID(c *app.RequestContext) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// ListMissions 自定义任务列表
// GET /api/missions
func ListMissions(ctx context.Context, c *app.RequestContext) {
	missions, err := services().Mission.List(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.MissionListResponse{Missions: missions})
}

// CreateMission 新建自定义任务
// POST /api/missions
func CreateMission(ctx context.Context, c *app.RequestContext) {
	var req dto.CreateMissionRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	mission, err := services().Mission.Create(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, mission)
}

// GetMission 查看自定义任务
// GET /api/missions/:id
func GetMission(ctx context.Context, c *app.RequestContext) {
	id, ok := missionID(c)
	if !ok {
		response.Error(ctx, c, errors.MissionNotFound)
		return
	}

	mission, err := services().Mission.Get(ctx, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, mission)
}

// StartMission 开始自定义任务
// POST /api/missions/:id/start
func StartMission(ctx context.Context, c *app.RequestContext) {
	id, ok := missionID(c)
	if !ok {
		response.Error(ctx, c, errors.MissionNotFound)
		return
	}

	started, err := services().Mission.Start(ctx, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, started)
}

// CompleteMission 完成自定义任务
// POST /api/missions/:id/complete
func CompleteMission(ctx context.Context, c *app.RequestContext) {
	id, ok := missionID(c)
	if !ok {
		response.Error(ctx, c, errors.MissionNotFound)
		return
	}

	var req dto.CompleteMissionRequest
	if len(c.Request.Body()) > 0 {
		if err := c.Bind(&req); err != nil {
			response.BindError(ctx, c, err)
			return
		}
	}

	mission, err := services().Mission.Get(ctx, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	record, err := services().Record.CompleteCustom(ctx, viewer(ctx, c), mission, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, dto.RecordResponse{Record: record})
}

// ListRecords 全部记录分页
// GET /api/missions/records?limit=&offset=
func ListRecords(ctx context.Context, c *app.RequestContext) {
	page, err := services().Record.List(ctx, queryInt(c, "limit", 10), queryInt(c, "offset", 0))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, page)
}
