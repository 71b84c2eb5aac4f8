package repository

import (
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// OrderLogRepository 订单流水数据访问接口（只追加）
type OrderLogRepository interface {
	Create(log *models.OrderLog) error
	ListByOrder(orderID uint, page, pageSize int) ([]models.OrderLog, int64, error)
	WithTx(tx *gorm.DB) *GormOrderLogRepository
}

// GormOrderLogRepository GORM 实现
type GormOrderLogRepository struct {
	db *gorm.DB
}

// NewOrderLogRepository 创建订单流水仓库
func NewOrderLogRepository(db *gorm.DB) *GormOrderLogRepository {
	return &GormOrderLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderLogRepository) WithTx(tx *gorm.DB) *GormOrderLogRepository {
	if tx == nil {
		return r
	}
	return &GormOrderLogRepository{db: tx}
}

// Create 追加流水
func (r *GormOrderLogRepository) Create(log *models.OrderLog) error {
	return r.db.Create(log).Error
}

// ListByOrder 按时间顺序列出订单流水
func (r *GormOrderLogRepository) ListByOrder(orderID uint, page, pageSize int) ([]models.OrderLog, int64, error) {
	query := r.db.Model(&models.OrderLog{}).Where("order_id = ?", orderID)
	return listPage[models.OrderLog](query, page, pageSize, "id asc")
}
