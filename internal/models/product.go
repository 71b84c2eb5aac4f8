package models

import (
	"time"
)

// Product 商品表（仅包含订单核心需要的字段）
type Product struct {
	ID         uint      `gorm:"primarykey" json:"id"`                             // 主键
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`           // 商品名称
	Image      string    `gorm:"type:varchar(255)" json:"image"`                   // 主图
	Price      Money     `gorm:"type:decimal(10,2);not null;default:0" json:"price"` // 售价
	Stock      int       `gorm:"not null;default:0" json:"stock"`                  // 可用库存
	SalesCount int       `gorm:"not null;default:0" json:"sales_count"`            // 销量
	Status     int       `gorm:"not null;default:1;index" json:"status"`           // 状态（0下架 1上架）
	CreatedAt  time.Time `json:"created_at"`                                       // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
