package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"

	"gorm.io/gorm"
)

// allowedTransitions 订单状态流转表，未列出的流转一律拒绝
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid:      true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusPreparing: true,
		constants.OrderStatusCancelled: true,
		constants.OrderStatusRefunding: true,
		constants.OrderStatusRefunded:  true,
	},
	constants.OrderStatusPreparing: {
		constants.OrderStatusReady:     true,
		constants.OrderStatusRefunding: true,
		constants.OrderStatusRefunded:  true,
	},
	constants.OrderStatusReady: {
		constants.OrderStatusDelivering: true,
		constants.OrderStatusRefunding:  true,
		constants.OrderStatusRefunded:   true,
	},
	constants.OrderStatusDelivering: {
		constants.OrderStatusCompleted: true,
		constants.OrderStatusRefunding: true,
		constants.OrderStatusRefunded:  true,
	},
	constants.OrderStatusCompleted: {
		constants.OrderStatusRefunding: true,
		constants.OrderStatusRefunded:  true,
	},
	constants.OrderStatusRefunding: {
		constants.OrderStatusRefunded: true,
	},
	constants.OrderStatusCancelled: {},
	constants.OrderStatusRefunded:  {},
}

// OrderStatuses 全部订单状态
func OrderStatuses() []string {
	return []string{
		constants.OrderStatusPending,
		constants.OrderStatusPaid,
		constants.OrderStatusPreparing,
		constants.OrderStatusReady,
		constants.OrderStatusDelivering,
		constants.OrderStatusCompleted,
		constants.OrderStatusCancelled,
		constants.OrderStatusRefunding,
		constants.OrderStatusRefunded,
	}
}

// IsValidOrderStatus 判断状态值是否合法
func IsValidOrderStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// CanTransition 判断是否允许从 current 流转到 target（不含自流转）
func CanTransition(current, target string) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// isPostPaid 已支付之后、可申请退款的状态
func isPostPaid(status string) bool {
	switch status {
	case constants.OrderStatusPaid,
		constants.OrderStatusPreparing,
		constants.OrderStatusReady,
		constants.OrderStatusDelivering,
		constants.OrderStatusCompleted:
		return true
	}
	return false
}

// TransitionResult 状态流转结果
type TransitionResult struct {
	Order        *models.Order
	From         string
	Changed      bool
	PointsGained int
}

// OrderStateMachine 订单状态机，所有状态变更的唯一入口
type OrderStateMachine struct {
	orderRepo repository.OrderRepository
	logRepo   repository.OrderLogRepository
	stock     *StockLedger
	points    *PointsLedger
	coupons   CouponLedger
}

// NewOrderStateMachine 创建订单状态机
func NewOrderStateMachine(orderRepo repository.OrderRepository, logRepo repository.OrderLogRepository, stock *StockLedger, points *PointsLedger, coupons CouponLedger) *OrderStateMachine {
	return &OrderStateMachine{
		orderRepo: orderRepo,
		logRepo:   logRepo,
		stock:     stock,
		points:    points,
		coupons:   coupons,
	}
}

// Transition 在调用方事务内执行状态流转并触发该边上的副作用
func (m *OrderStateMachine) Transition(tx *gorm.DB, order *models.Order, target, operator, remark string) (*TransitionResult, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}
	target = strings.TrimSpace(target)
	from := order.Status
	result := &TransitionResult{Order: order, From: from}
	if from == target {
		return result, nil
	}
	if !CanTransition(from, target) {
		return nil, &InvalidTransitionError{Current: from, Target: target}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}
	switch target {
	case constants.OrderStatusPaid:
		if order.PaidAt == nil {
			updates["paid_at"] = now
		}
	case constants.OrderStatusCancelled:
		if order.CancelledAt == nil {
			updates["cancelled_at"] = now
		}
		if order.CancelReason == "" && remark != "" {
			updates["cancel_reason"] = remark
		}
	case constants.OrderStatusCompleted:
		if order.CompletedAt == nil {
			updates["completed_at"] = now
		}
	}

	affected, err := m.orderRepo.WithTx(tx).UpdateWithVersion(order.ID, order.Version, updates)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConflict
	}
	applyTransition(order, target, updates, now)

	if remark == "" {
		remark = fmt.Sprintf("订单状态从 %s 变更为 %s", from, target)
	}
	if err := m.logRepo.WithTx(tx).Create(&models.OrderLog{
		OrderID:    order.ID,
		FromStatus: from,
		Status:     target,
		Operator:   operator,
		Remark:     remark,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	if err := m.applyEdgeEffects(tx, order, target, result); err != nil {
		return nil, err
	}
	result.Changed = true
	return result, nil
}

// RecordCreated 追加订单创建流水
func (m *OrderStateMachine) RecordCreated(tx *gorm.DB, order *models.Order, operator string) error {
	return m.logRepo.WithTx(tx).Create(&models.OrderLog{
		OrderID:   order.ID,
		Status:    order.Status,
		Operator:  operator,
		Remark:    "订单创建",
		CreatedAt: time.Now(),
	})
}

// RecordRejected 记录被拒绝的外部流转尝试（如取消后到达的支付回调）
func (m *OrderStateMachine) RecordRejected(tx *gorm.DB, order *models.Order, target, operator, remark string) error {
	return m.logRepo.WithTx(tx).Create(&models.OrderLog{
		OrderID:    order.ID,
		FromStatus: order.Status,
		Status:     target,
		Operator:   operator,
		Remark:     remark,
		Rejected:   true,
		CreatedAt:  time.Now(),
	})
}

func (m *OrderStateMachine) applyEdgeEffects(tx *gorm.DB, order *models.Order, target string, result *TransitionResult) error {
	switch target {
	case constants.OrderStatusCancelled:
		if err := m.releaseStock(tx, order); err != nil {
			return err
		}
		if order.UserCouponID != nil && m.coupons != nil {
			if err := m.coupons.Restore(tx, *order.UserCouponID, order.ID); err != nil {
				return err
			}
		}
		if order.PointsUsed > 0 && m.points != nil {
			orderID := order.ID
			if _, err := m.points.Accrue(tx, PointsChange{
				UserID:      order.UserID,
				Points:      order.PointsUsed,
				SourceType:  constants.PointsSourceOrderRefund,
				SourceID:    &orderID,
				Description: "订单取消退回积分：" + order.OrderNo,
			}); err != nil {
				return err
			}
		}
	case constants.OrderStatusRefunded:
		// 积分不回退：抵扣消耗与完成赠送均保留
		return m.releaseStock(tx, order)
	case constants.OrderStatusCompleted:
		if m.points == nil {
			return nil
		}
		gained, err := m.points.AccrueForOrder(tx, order)
		if err != nil {
			return err
		}
		result.PointsGained = gained
	}
	return nil
}

func (m *OrderStateMachine) releaseStock(tx *gorm.DB, order *models.Order) error {
	items := order.Items
	if len(items) == 0 {
		full, err := m.orderRepo.WithTx(tx).GetByID(order.ID)
		if err != nil {
			return err
		}
		if full != nil {
			items = full.Items
		}
	}
	if len(items) == 0 {
		return nil
	}
	return m.stock.Release(tx, StockLinesFromItems(items))
}

func applyTransition(order *models.Order, target string, updates map[string]interface{}, now time.Time) {
	order.Status = target
	order.Version++
	order.UpdatedAt = now
	if _, ok := updates["paid_at"]; ok {
		order.PaidAt = &now
	}
	if _, ok := updates["cancelled_at"]; ok {
		order.CancelledAt = &now
	}
	if _, ok := updates["completed_at"]; ok {
		order.CompletedAt = &now
	}
	if reason, ok := updates["cancel_reason"].(string); ok {
		order.CancelReason = reason
	}
}
