package models

import (
	"time"
)

// Payment 支付记录，与订单一对一
type Payment struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                         // 主键
	OrderID         uint       `gorm:"uniqueIndex;not null" json:"order_id"`                         // 订单ID（唯一）
	PaymentNo       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`      // 支付单号
	Channel         string     `gorm:"type:varchar(20);not null" json:"channel"`                     // 支付渠道
	PrepayID        string     `gorm:"type:varchar(128);index" json:"prepay_id"`                     // 预支付交易会话标识
	TransactionID   string     `gorm:"type:varchar(128);index" json:"transaction_id"`                // 第三方交易号（仅成功时写入）
	Amount          Money      `gorm:"type:decimal(10,2);not null" json:"amount"`                    // 支付金额
	Status          string     `gorm:"type:varchar(20);index;not null" json:"status"`                // 支付状态
	PaidAt          *time.Time `json:"paid_at"`                                                      // 支付时间
	CallbackAt      *time.Time `json:"callback_at"`                                                  // 最近回调时间
	FailReason      string     `gorm:"type:varchar(255)" json:"fail_reason,omitempty"`               // 失败原因
	RefundAmount    Money      `gorm:"type:decimal(10,2);not null;default:0" json:"refund_amount"`   // 退款金额
	RefundReason    string     `gorm:"type:varchar(255)" json:"refund_reason,omitempty"`             // 退款原因
	RefundedAt      *time.Time `json:"refunded_at"`                                                  // 退款完成时间
	ReconcileStatus string     `gorm:"type:varchar(20);index" json:"reconcile_status,omitempty"`     // 对账状态
	ReconcileRemark string     `gorm:"type:varchar(255)" json:"reconcile_remark,omitempty"`          // 对账备注
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                   // 更新时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
