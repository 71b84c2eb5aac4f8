package models

import "time"

// OrderLog 订单状态流水（只追加）
type OrderLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                 // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"`                       // 订单ID
	FromStatus string    `gorm:"type:varchar(20)" json:"from_status"`                  // 变更前状态（创建时为空）
	Status     string    `gorm:"type:varchar(20);not null" json:"status"`              // 变更后状态
	Operator   string    `gorm:"type:varchar(50)" json:"operator"`                     // 操作人
	Remark     string    `gorm:"type:text" json:"remark"`                              // 备注
	Rejected   bool      `gorm:"not null;default:false" json:"rejected"`               // 被拒绝的外部变更尝试
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                              // 记录时间
}

// TableName 指定表名
func (OrderLog) TableName() string {
	return "order_logs"
}
