package repository

import (
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// DeliveryRepository 配送区域、自提点与收货地址的只读访问
type DeliveryRepository interface {
	GetZone(id uint) (*models.DeliveryZone, error)
	GetPickupPoint(id uint) (*models.PickupPoint, error)
	GetAddress(id uint, userID uint) (*models.UserAddress, error)
	WithTx(tx *gorm.DB) *GormDeliveryRepository
}

// GormDeliveryRepository GORM 实现
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository 创建配送仓库
func NewDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeliveryRepository) WithTx(tx *gorm.DB) *GormDeliveryRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryRepository{db: tx}
}

// GetZone 获取启用中的配送区域
func (r *GormDeliveryRepository) GetZone(id uint) (*models.DeliveryZone, error) {
	return takeOne[models.DeliveryZone](r.db.Where("id = ? AND status = ?", id, constants.StatusEnabled))
}

// GetPickupPoint 获取启用中的自提点
func (r *GormDeliveryRepository) GetPickupPoint(id uint) (*models.PickupPoint, error) {
	return takeOne[models.PickupPoint](r.db.Where("id = ? AND status = ?", id, constants.StatusEnabled))
}

// GetAddress 获取用户自己的收货地址
func (r *GormDeliveryRepository) GetAddress(id uint, userID uint) (*models.UserAddress, error) {
	return takeOne[models.UserAddress](r.db.Where("id = ? AND user_id = ?", id, userID))
}
