package service

import (
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PointsLedger 积分台账：流水追加与余额调整在同一事务内完成
type PointsLedger struct {
	pointsRepo repository.PointsRepository
	userRepo   repository.UserRepository
}

// NewPointsLedger 创建积分台账
func NewPointsLedger(pointsRepo repository.PointsRepository, userRepo repository.UserRepository) *PointsLedger {
	return &PointsLedger{pointsRepo: pointsRepo, userRepo: userRepo}
}

// PointsChange 一次积分变动
type PointsChange struct {
	UserID      uint
	Points      int
	SourceType  string
	SourceID    *uint
	Description string
}

// Accrue 增加积分
func (l *PointsLedger) Accrue(tx *gorm.DB, change PointsChange) (*models.PointsRecord, error) {
	return l.apply(tx, constants.PointsChangeEarn, change)
}

// Spend 扣减积分，余额不足返回 ErrPointsInsufficient
func (l *PointsLedger) Spend(tx *gorm.DB, change PointsChange) (*models.PointsRecord, error) {
	return l.apply(tx, constants.PointsChangeSpend, change)
}

func (l *PointsLedger) apply(tx *gorm.DB, changeType string, change PointsChange) (*models.PointsRecord, error) {
	if change.UserID == 0 || change.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	delta := change.Points
	if changeType == constants.PointsChangeSpend {
		delta = -change.Points
	}
	affected, err := l.userRepo.WithTx(tx).AdjustPoints(change.UserID, delta)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if changeType == constants.PointsChangeSpend {
			return nil, ErrPointsInsufficient
		}
		return nil, ErrUserNotFound
	}
	record := &models.PointsRecord{
		UserID:      change.UserID,
		ChangeType:  changeType,
		Points:      change.Points,
		SourceType:  change.SourceType,
		SourceID:    change.SourceID,
		Description: change.Description,
		CreatedAt:   time.Now(),
	}
	if err := l.pointsRepo.WithTx(tx).CreateRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

// AccrueForOrder 按订单完成规则发放积分：floor(final_amount × rule.points / 100)
func (l *PointsLedger) AccrueForOrder(tx *gorm.DB, order *models.Order) (int, error) {
	rule, err := l.pointsRepo.WithTx(tx).GetRule(constants.PointRuleOrder)
	if err != nil {
		return 0, err
	}
	if rule == nil || rule.Points <= 0 {
		return 0, nil
	}
	points := OrderCompletionPoints(order.FinalAmount.Decimal, rule.Points)
	if points <= 0 {
		return 0, nil
	}
	orderID := order.ID
	if _, err := l.Accrue(tx, PointsChange{
		UserID:      order.UserID,
		Points:      points,
		SourceType:  constants.PointsSourceOrder,
		SourceID:    &orderID,
		Description: "订单完成奖励：" + order.OrderNo,
	}); err != nil {
		return 0, err
	}
	return points, nil
}

// OrderCompletionPoints 订单完成可得积分（向下取整）
func OrderCompletionPoints(finalAmount decimal.Decimal, percent int) int {
	if percent <= 0 || !finalAmount.IsPositive() {
		return 0
	}
	return int(finalAmount.Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart())
}
