package models

import "time"

// OrderItem 订单项（下单时的商品快照，创建后不可修改）
type OrderItem struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	OrderID      uint      `gorm:"index;not null" json:"order_id"`
	ProductID    uint      `gorm:"index;not null" json:"product_id"`
	ProductName  string    `gorm:"type:varchar(100);not null" json:"product_name"`
	ProductImage string    `gorm:"type:varchar(255)" json:"product_image,omitempty"`
	Price        Money     `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	Subtotal     Money     `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
