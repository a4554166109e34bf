package model

// User 用户模型，public_id 对外暴露并写入 token，id 只在库内关联
type User struct {
	BaseModel
	PublicID     int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	Username     string `gorm:"uniqueIndex;type:varchar(80);not null" json:"username"`
	Email        string `gorm:"uniqueIndex;type:varchar(120);not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(128);not null" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
