package models

import (
	"time"
)

// Order 订单表
type Order struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                           // 主键
	OrderNo          string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_no"`          // 订单编号
	UserID           uint       `gorm:"index;not null" json:"user_id"`                                  // 用户ID
	Status           string     `gorm:"type:varchar(20);index;not null" json:"status"`                  // 订单状态
	Version          int        `gorm:"not null;default:0" json:"version"`                              // 乐观锁版本号
	TotalAmount      Money      `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`      // 商品总金额
	CouponDiscount   Money      `gorm:"type:decimal(10,2);not null;default:0" json:"coupon_discount"`   // 优惠券抵扣
	PointsDiscount   Money      `gorm:"type:decimal(10,2);not null;default:0" json:"points_discount"`   // 积分抵扣
	DiscountAmount   Money      `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`   // 优惠金额合计
	DeliveryFee      Money      `gorm:"type:decimal(10,2);not null;default:0" json:"delivery_fee"`      // 配送费
	FinalAmount      Money      `gorm:"type:decimal(10,2);not null;default:0" json:"final_amount"`      // 实付金额
	UserCouponID     *uint      `gorm:"index" json:"user_coupon_id,omitempty"`                          // 使用的用户优惠券
	PointsUsed       int        `gorm:"not null;default:0" json:"points_used"`                          // 抵扣使用的积分
	DeliveryType     string     `gorm:"type:varchar(20);not null" json:"delivery_type"`                 // 配送方式
	DeliveryAddress  string     `gorm:"type:text" json:"delivery_address,omitempty"`                    // 配送地址快照
	AddressID        *uint      `json:"address_id,omitempty"`                                           // 收货地址ID
	PickupPointID    *uint      `gorm:"index" json:"pickup_point_id,omitempty"`                         // 自提点ID
	ZoneID           *uint      `json:"zone_id,omitempty"`                                              // 配送区域ID
	DeliveryTimeSlot string     `gorm:"type:varchar(50)" json:"delivery_time_slot,omitempty"`           // 配送时间段
	Remark           string     `gorm:"type:text" json:"remark,omitempty"`                              // 订单备注
	CancelReason     string     `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`               // 取消原因
	ExpiresAt        *time.Time `gorm:"index" json:"expires_at"`                                        // 支付截止时间
	PaidAt           *time.Time `json:"paid_at"`                                                        // 支付时间
	CancelledAt      *time.Time `json:"cancelled_at"`                                                   // 取消时间
	CompletedAt      *time.Time `json:"completed_at"`                                                   // 完成时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt        time.Time  `json:"updated_at"`                                                     // 更新时间

	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`   // 订单项
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"` // 支付记录（一对一）
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
