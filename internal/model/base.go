package model

import (
	"time"
)

// BaseModel 公共字段，时间由 gorm 自动填充，不依赖数据库方言的默认值
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
}
