package models

import (
	"time"
)

// Coupon 优惠券模板
type Coupon struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                    // 主键
	Name       string     `gorm:"type:varchar(100);not null" json:"name"`                  // 名称
	Type       int        `gorm:"not null" json:"type"`                                    // 类型（1满减 2折扣）
	Value      Money      `gorm:"type:decimal(10,2);not null" json:"value"`                // 满减金额或折扣率（0.9 表示九折）
	MinAmount  Money      `gorm:"type:decimal(10,2);not null;default:0" json:"min_amount"` // 使用门槛
	TotalCount int        `gorm:"not null;default:0" json:"total_count"`                   // 发放总量
	StartAt    *time.Time `json:"start_at"`                                                // 生效时间
	EndAt      *time.Time `json:"end_at"`                                                  // 失效时间
	Status     int        `gorm:"not null;default:1" json:"status"`                        // 状态（0禁用 1启用）
	CreatedAt  time.Time  `json:"created_at"`                                              // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// UserCoupon 用户领取的优惠券
type UserCoupon struct {
	ID          uint       `gorm:"primarykey" json:"id"`                  // 主键
	UserID      uint       `gorm:"index;not null" json:"user_id"`         // 用户ID
	CouponID    uint       `gorm:"index;not null" json:"coupon_id"`       // 优惠券ID
	Status      int        `gorm:"not null;default:0;index" json:"status"` // 状态（0未使用 1已使用 2已过期）
	UsedOrderID *uint      `gorm:"index" json:"used_order_id,omitempty"`  // 使用订单
	UsedAt      *time.Time `json:"used_at"`                               // 使用时间
	ExpireAt    *time.Time `json:"expire_at"`                             // 过期时间
	CreatedAt   time.Time  `json:"created_at"`                            // 领取时间

	Coupon Coupon `gorm:"foreignKey:CouponID" json:"coupon"`
}

// TableName 指定表名
func (UserCoupon) TableName() string {
	return "user_coupons"
}
