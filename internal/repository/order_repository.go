package repository

import (
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	ExistsOrderNo(orderNo string) (bool, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListExpiredPendingIDs(now time.Time, limit int) ([]uint, error)
	UpdateWithVersion(id uint, version int, updates map[string]interface{}) (int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items", "Payment").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// GetByID 订单及订单项
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return takeOne[models.Order](r.db.Preload("Items").Where("id = ?", id))
}

// GetByIDForUpdate 事务内锁定订单行；订单项单独读取，不参与加锁
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	order, err := takeOne[models.Order](lockForUpdate(r.db).Where("id = ?", id))
	if err != nil || order == nil {
		return order, err
	}
	if err := r.db.Where("order_id = ?", order.ID).Order("id asc").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// GetByIDAndUser 用户只能读取自己的订单
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	return takeOne[models.Order](r.db.Preload("Items").Preload("Payment").Where("id = ? AND user_id = ?", id, userID))
}

func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	return takeOne[models.Order](r.db.Where("order_no = ?", orderNo))
}

// ExistsOrderNo 生成订单号时检查碰撞
func (r *GormOrderRepository) ExistsOrderNo(orderNo string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).Where("order_no = ?", orderNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser 用户订单列表，强制限定 user_id
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return []models.Order{}, 0, nil
	}
	return r.list(filter)
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	return r.list(filter)
}

func (r *GormOrderRepository) list(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Scopes(filter.scope)
	return listPage[models.Order](query, filter.Page, filter.PageSize, "", "Items")
}

// ListExpiredPendingIDs 查询已超过支付截止时间的待支付订单
func (r *GormOrderRepository) ListExpiredPendingIDs(now time.Time, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	if err := r.db.Model(&models.Order{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", constants.OrderStatusPending, now).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateWithVersion 乐观锁更新订单，版本不匹配时影响行数为 0
func (r *GormOrderRepository) UpdateWithVersion(id uint, version int, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	return affected(r.db.Model(&models.Order{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates))
}
