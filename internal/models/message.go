package models

import "time"

// UserMessage 站内消息，由通知任务写入
type UserMessage struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Scene     string     `gorm:"type:varchar(32);not null" json:"scene"`
	Title     string     `gorm:"type:varchar(100);not null" json:"title"`
	Content   string     `gorm:"type:text" json:"content"`
	OrderID   *uint      `gorm:"index" json:"order_id,omitempty"`
	Payload   JSON       `gorm:"type:json" json:"payload,omitempty"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (UserMessage) TableName() string {
	return "user_messages"
}
