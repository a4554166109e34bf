package model

// CatalogCreatedMessage 每日任务目录写入成功后发布
type CatalogCreatedMessage struct {
	MessageID string `json:"message_id"`
	Date      string `json:"date"`
	Source    string `json:"source"`
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
}

// MissionRecordedMessage 每条任务记录写入后发布
type MissionRecordedMessage struct {
	MessageID       string  `json:"message_id"`
	RecordID        int64   `json:"record_id"`
	PresetMissionID *int    `json:"preset_mission_id,omitempty"`
	MissionID       *int64  `json:"mission_id,omitempty"`
	Tier            *string `json:"tier,omitempty"`
	Succeeded       bool    `json:"succeeded"`
	Anonymous       bool    `json:"anonymous"`
	CompletedAt     string  `json:"completed_at"`
}
