package model

import "time"

// CompletionRecord 任务尝试记录，actual_duration=0 表示失败/取消，>0 表示完成
// user_id 为空表示未登录时的记录，title/description 为当时的快照
type CompletionRecord struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          *int64    `gorm:"index:idx_mission_records_user" json:"-"`
	MissionID       *int64    `gorm:"index" json:"mission_id"`
	PresetMissionID *int      `gorm:"index:idx_mission_records_preset" json:"preset_mission_id"`
	Tier            *string   `gorm:"type:varchar(20)" json:"tier"`
	Title           *string   `gorm:"type:varchar(100)" json:"title"`
	Description     *string   `gorm:"type:text" json:"description"`
	CompletedAt     time.Time `gorm:"not null;index:idx_mission_records_completed_at" json:"completed_at"`
	ActualDuration  int       `gorm:"not null;default:0" json:"actual_duration"`
	Notes           *string   `gorm:"type:text" json:"notes"`

	Mission *CustomMission `gorm:"foreignKey:MissionID" json:"mission"`
}

// TableName 指定表名
func (CompletionRecord) TableName() string {
	return "mission_records"
}

// Succeeded 实际时长大于 0 才算完成
func (r *CompletionRecord) Succeeded() bool {
	return r.ActualDuration > 0
}

// FailedNote 失败记录写入的备注
const FailedNote = "failed"

// Viewer 查询记录时的可见范围；UserID 为空表示未登录，能看到全部记录
type Viewer struct {
	UserID *int64
}

// Anonymous 未登录访问者
func Anonymous() Viewer {
	return Viewer{}
}

// Authenticated 已登录访问者，可见范围为本人记录加匿名记录
func Authenticated(userID int64) Viewer {
	return Viewer{UserID: &userID}
}

// MedalTally 各档位完成次数
type MedalTally struct {
	Bronze int64 `json:"bronze"`
	Silver int64 `json:"silver"`
	Gold   int64 `json:"gold"`
}
