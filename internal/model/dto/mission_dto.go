package dto

import (
	"time"

	"DopamineBreaker/internal/model"
)

// ========== 每日任务 ==========

// PresetRecordRequest 预设任务完成/失败请求，tier/title/description/duration 缺省时取当天目录中的值
type PresetRecordRequest struct {
	PresetMissionID *int    `json:"preset_mission_id"`
	Tier            *string `json:"tier,omitempty"`
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Duration        *int    `json:"duration,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// DailyCatalogResponse 当天完整目录
type DailyCatalogResponse struct {
	Date     string              `json:"date"`
	Missions []model.MissionItem `json:"missions"`
}

// MissionListResponse 任务列表
type MissionListResponse struct {
	Missions interface{} `json:"missions"`
}

// MedalsResponse 勋章统计
type MedalsResponse struct {
	Medals model.MedalTally `json:"medals"`
}

// RecordResponse 单条记录
type RecordResponse struct {
	Record *model.CompletionRecord `json:"record"`
}

// GenerateDailyResponse 手动生成的结果
type GenerateDailyResponse struct {
	Status   string              `json:"status"`
	Date     string              `json:"date"`
	Reason   string              `json:"reason,omitempty"`
	Missions []model.MissionItem `json:"missions,omitempty"`
}

// ========== 自定义任务 ==========

// CreateMissionRequest 新建自定义任务，title 和 duration 必填
type CreateMissionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description,omitempty"`
	Duration    *int    `json:"duration"`
	Difficulty  *string `json:"difficulty,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// CompleteMissionRequest 完成自定义任务，actual_duration 缺省时取任务时长
type CompleteMissionRequest struct {
	ActualDuration *int    `json:"actual_duration,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// StartMissionResponse 开始任务
type StartMissionResponse struct {
	Mission   *model.CustomMission `json:"mission"`
	StartedAt time.Time            `json:"started_at"`
}

// RecordPage 记录分页
type RecordPage struct {
	Records []model.CompletionRecord `json:"records"`
	Total   int64                    `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}
