package service

import (
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponLedger 用户优惠券核销协作方
type CouponLedger interface {
	CheckAvailable(tx *gorm.DB, userID, userCouponID uint, amount decimal.Decimal) (*models.UserCoupon, decimal.Decimal, error)
	MarkUsed(tx *gorm.DB, userCouponID, orderID uint) error
	Restore(tx *gorm.DB, userCouponID, orderID uint) error
}

// GormCouponLedger 基于数据库的优惠券核销
type GormCouponLedger struct {
	couponRepo repository.CouponRepository
}

// NewCouponLedger 创建优惠券核销器
func NewCouponLedger(couponRepo repository.CouponRepository) *GormCouponLedger {
	return &GormCouponLedger{couponRepo: couponRepo}
}

// CheckAvailable 校验优惠券可用并返回可抵扣金额
func (l *GormCouponLedger) CheckAvailable(tx *gorm.DB, userID, userCouponID uint, amount decimal.Decimal) (*models.UserCoupon, decimal.Decimal, error) {
	userCoupon, err := l.couponRepo.WithTx(tx).GetUserCoupon(userCouponID, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if userCoupon == nil || userCoupon.Status != constants.UserCouponStatusUnused {
		return nil, decimal.Zero, ErrCouponUnavailable
	}
	now := time.Now()
	if userCoupon.ExpireAt != nil && now.After(*userCoupon.ExpireAt) {
		return nil, decimal.Zero, ErrCouponUnavailable
	}
	coupon := userCoupon.Coupon
	if coupon.Status != constants.StatusEnabled {
		return nil, decimal.Zero, ErrCouponUnavailable
	}
	if coupon.StartAt != nil && now.Before(*coupon.StartAt) {
		return nil, decimal.Zero, ErrCouponUnavailable
	}
	if coupon.EndAt != nil && now.After(*coupon.EndAt) {
		return nil, decimal.Zero, ErrCouponUnavailable
	}
	if amount.LessThan(coupon.MinAmount.Decimal) {
		return nil, decimal.Zero, ErrCouponUnavailable
	}
	discount, err := couponDiscount(coupon, amount)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return userCoupon, discount, nil
}

// MarkUsed 核销优惠券
func (l *GormCouponLedger) MarkUsed(tx *gorm.DB, userCouponID, orderID uint) error {
	affected, err := l.couponRepo.WithTx(tx).MarkUsed(userCouponID, orderID, time.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCouponUnavailable
	}
	return nil
}

// Restore 退回优惠券，已退回时静默成功
func (l *GormCouponLedger) Restore(tx *gorm.DB, userCouponID, orderID uint) error {
	_, err := l.couponRepo.WithTx(tx).Restore(userCouponID, orderID)
	return err
}

// couponDiscount 满减券直接抵扣面额，折扣券抵扣 amount×(1-rate)
func couponDiscount(coupon models.Coupon, amount decimal.Decimal) (decimal.Decimal, error) {
	value := coupon.Value.Decimal
	var discount decimal.Decimal
	switch coupon.Type {
	case constants.CouponTypeFullReduction:
		discount = value
	case constants.CouponTypeDiscount:
		if value.LessThanOrEqual(decimal.Zero) || value.GreaterThan(decimal.NewFromInt(1)) {
			return decimal.Zero, ErrCouponUnavailable
		}
		discount = amount.Mul(decimal.NewFromInt(1).Sub(value))
	default:
		return decimal.Zero, ErrCouponUnavailable
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2), nil
}
