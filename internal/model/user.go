package model

import (
	"time"
)

// User 用户投影，由市场主库 binlog 同步，仅保存聊天展示所需字段
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username  string    `gorm:"type:varchar(150);index" json:"username"`
	FullName  string    `gorm:"type:varchar(255)" json:"fullName"`
	AvatarKey string    `gorm:"type:varchar(255)" json:"avatarKey"`
	IsDeleted bool      `gorm:"type:tinyint(1);default:0" json:"isDeleted"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "chat_users"
}

// DisplayName 优先使用全名
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
