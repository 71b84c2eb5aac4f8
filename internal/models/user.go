package models

import (
	"time"
)

// User 用户表
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`                           // 主键
	OpenID       string     `gorm:"type:varchar(64);uniqueIndex" json:"-"`          // 微信 openid
	Nickname     string     `gorm:"type:varchar(50)" json:"nickname"`               // 昵称
	Phone        string     `gorm:"type:varchar(20);index" json:"phone"`            // 手机号
	TotalPoints  int        `gorm:"not null;default:0" json:"total_points"`         // 积分余额（与积分流水同事务维护）
	Status       int        `gorm:"not null;default:1" json:"status"`               // 状态（0禁用 1正常）
	LastSignInAt *time.Time `json:"last_sign_in_at"`                                // 最近签到时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
