package models

import "time"

// DeliveryZone 配送区域
type DeliveryZone struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                    // 主键
	Name          string    `gorm:"type:varchar(50);not null" json:"name"`                   // 区域名称
	BaseFee       Money     `gorm:"type:decimal(10,2);not null;default:0" json:"base_fee"`   // 基础配送费
	FreeThreshold *Money    `gorm:"type:decimal(10,2)" json:"free_threshold"`                // 免配送费门槛（为空表示不免）
	Status        int       `gorm:"not null;default:1" json:"status"`                        // 状态
	CreatedAt     time.Time `json:"created_at"`                                              // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (DeliveryZone) TableName() string {
	return "delivery_zones"
}

// PickupPoint 自提点
type PickupPoint struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ZoneID    *uint     `gorm:"index" json:"zone_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Address   string    `gorm:"type:varchar(255);not null" json:"address"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone"`
	Status    int       `gorm:"not null;default:1" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (PickupPoint) TableName() string {
	return "pickup_points"
}

// UserAddress 用户收货地址
type UserAddress struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	ReceiverName  string    `gorm:"type:varchar(50);not null" json:"receiver_name"`
	ReceiverPhone string    `gorm:"type:varchar(20);not null" json:"receiver_phone"`
	Province      string    `gorm:"type:varchar(50)" json:"province"`
	City          string    `gorm:"type:varchar(50)" json:"city"`
	District      string    `gorm:"type:varchar(50)" json:"district"`
	Detail        string    `gorm:"type:varchar(255);not null" json:"detail"`
	ZoneID        *uint     `gorm:"index" json:"zone_id"`
	IsDefault     bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (UserAddress) TableName() string {
	return "user_addresses"
}

// FullAddress 拼接完整地址快照
func (a UserAddress) FullAddress() string {
	return a.ReceiverName + " " + a.ReceiverPhone + " " + a.Province + a.City + a.District + a.Detail
}
