package repository

import (
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByOrderID(orderID uint) (*models.Payment, error)
	GetByOrderIDForUpdate(orderID uint) (*models.Payment, error)
	GetByPaymentNo(paymentNo string) (*models.Payment, error)
	UpdateFromStatus(id uint, fromStatus string, updates map[string]interface{}) (int64, error)
	ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error)
	ListOrphaned(page, pageSize int) ([]models.Payment, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录，order_id 唯一索引保证一单一支付
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	return takeOne[models.Payment](r.db.Where("id = ?", id))
}

// GetByOrderID 获取订单的支付记录
func (r *GormPaymentRepository) GetByOrderID(orderID uint) (*models.Payment, error) {
	return takeOne[models.Payment](r.db.Where("order_id = ?", orderID))
}

// GetByOrderIDForUpdate 事务内加锁读取订单的支付记录
func (r *GormPaymentRepository) GetByOrderIDForUpdate(orderID uint) (*models.Payment, error) {
	return takeOne[models.Payment](lockForUpdate(r.db).Where("order_id = ?", orderID))
}

// GetByPaymentNo 根据支付单号获取支付记录（回调使用）
func (r *GormPaymentRepository) GetByPaymentNo(paymentNo string) (*models.Payment, error) {
	return takeOne[models.Payment](r.db.Where("payment_no = ?", paymentNo))
}

// UpdateFromStatus 以当前状态为条件更新，状态已被并发修改时影响行数为 0
func (r *GormPaymentRepository) UpdateFromStatus(id uint, fromStatus string, updates map[string]interface{}) (int64, error) {
	return affected(r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates))
}

// ListAdmin 管理端支付列表
func (r *GormPaymentRepository) ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{}).Scopes(filter.scope)
	return listPage[models.Payment](query, filter.Page, filter.PageSize, "")
}

// ListOrphaned 待人工对账的支付：孤儿支付与重复交易
func (r *GormPaymentRepository) ListOrphaned(page, pageSize int) ([]models.Payment, int64, error) {
	return r.ListAdmin(PaymentListFilter{
		Page:     page,
		PageSize: pageSize,
		ReconcileIn: []string{
			constants.PaymentReconcileOrphaned,
			constants.PaymentReconcileConflict,
		},
	})
}
