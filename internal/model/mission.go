package model

import "time"

// CustomMission 用户自建的自由任务
type CustomMission struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(100);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Duration    int       `gorm:"not null" json:"duration"`
	Difficulty  string    `gorm:"type:varchar(20);default:'medium'" json:"difficulty"`
	Category    string    `gorm:"type:varchar(50)" json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (CustomMission) TableName() string {
	return "missions"
}
