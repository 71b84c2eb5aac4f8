package models

import "time"

// PointsRecord 积分流水（只追加）
type PointsRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ChangeType  string    `gorm:"type:varchar(10);not null;index" json:"change_type"` // earn/spend
	Points      int       `gorm:"not null" json:"points"`
	SourceType  string    `gorm:"type:varchar(20);not null" json:"source_type"`
	SourceID    *uint     `json:"source_id,omitempty"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (PointsRecord) TableName() string {
	return "points_records"
}

// PointRule 积分规则，order 规则的 points 表示百分比
type PointRule struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	RuleType    string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"rule_type"`
	Points      int       `gorm:"not null;default:0" json:"points"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	Status      int       `gorm:"not null;default:1" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (PointRule) TableName() string {
	return "point_rules"
}

// SignInRecord 签到记录，每人每天一条
type SignInRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_sign_in_user_date" json:"user_id"`
	SignDate     string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_sign_in_user_date" json:"sign_date"` // YYYY-MM-DD
	PointsGained int       `gorm:"not null;default:0" json:"points_gained"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (SignInRecord) TableName() string {
	return "sign_in_records"
}
