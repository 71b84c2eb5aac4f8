package repository

import (
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// CouponRepository 用户优惠券数据访问接口
type CouponRepository interface {
	GetUserCoupon(id uint, userID uint) (*models.UserCoupon, error)
	MarkUsed(id uint, orderID uint, usedAt time.Time) (int64, error)
	Restore(id uint, orderID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetUserCoupon 获取用户优惠券（含模板）
func (r *GormCouponRepository) GetUserCoupon(id uint, userID uint) (*models.UserCoupon, error) {
	return takeOne[models.UserCoupon](r.db.Preload("Coupon").Where("id = ? AND user_id = ?", id, userID))
}

// MarkUsed 核销优惠券，仅未使用状态可核销
func (r *GormCouponRepository) MarkUsed(id uint, orderID uint, usedAt time.Time) (int64, error) {
	return affected(r.db.Model(&models.UserCoupon{}).
		Where("id = ? AND status = ?", id, constants.UserCouponStatusUnused).
		Updates(map[string]interface{}{
			"status":        constants.UserCouponStatusUsed,
			"used_order_id": orderID,
			"used_at":       usedAt,
		}))
}

// Restore 订单取消后退回优惠券
func (r *GormCouponRepository) Restore(id uint, orderID uint) (int64, error) {
	return affected(r.db.Model(&models.UserCoupon{}).
		Where("id = ? AND status = ? AND used_order_id = ?", id, constants.UserCouponStatusUsed, orderID).
		Updates(map[string]interface{}{
			"status":        constants.UserCouponStatusUnused,
			"used_order_id": nil,
			"used_at":       nil,
		}))
}
