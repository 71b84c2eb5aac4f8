package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/metrics"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/queue"
	"github.com/lingxian-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPaymentExpireMinutes = 15
	orderNoMaxAttempts          = 5
)

// OrderService 订单用例编排：每个用例一个事务
type OrderService struct {
	orderRepo   repository.OrderRepository
	logRepo     repository.OrderLogRepository
	paymentRepo repository.PaymentRepository
	pricing     PricingResolver
	stock       *StockLedger
	machine     *OrderStateMachine
	coordinator *PaymentCoordinator
	coupons     CouponLedger
	points      *PointsLedger
	queueClient *queue.Client
	notifier    MessageNotifier
	metrics     *metrics.Collector
	expire      time.Duration
}

// OrderServiceDeps 订单服务依赖
type OrderServiceDeps struct {
	OrderRepo            repository.OrderRepository
	LogRepo              repository.OrderLogRepository
	PaymentRepo          repository.PaymentRepository
	Pricing              PricingResolver
	Stock                *StockLedger
	Machine              *OrderStateMachine
	Coordinator          *PaymentCoordinator
	Coupons              CouponLedger
	Points               *PointsLedger
	QueueClient          *queue.Client
	Notifier             MessageNotifier
	Metrics              *metrics.Collector
	PaymentExpireMinutes int
}

// NewOrderService 创建订单服务
func NewOrderService(deps OrderServiceDeps) *OrderService {
	minutes := deps.PaymentExpireMinutes
	if minutes <= 0 {
		minutes = defaultPaymentExpireMinutes
	}
	return &OrderService{
		orderRepo:   deps.OrderRepo,
		logRepo:     deps.LogRepo,
		paymentRepo: deps.PaymentRepo,
		pricing:     deps.Pricing,
		stock:       deps.Stock,
		machine:     deps.Machine,
		coordinator: deps.Coordinator,
		coupons:     deps.Coupons,
		points:      deps.Points,
		queueClient: deps.QueueClient,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		expire:      time.Duration(minutes) * time.Minute,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	Items            []PricingItem `json:"items"`
	DeliveryType     string        `json:"delivery_type"`
	AddressID        *uint         `json:"address_id"`
	PickupPointID    *uint         `json:"pickup_point_id"`
	UserCouponID     *uint         `json:"user_coupon_id"`
	PointsUsed       int           `json:"points_used"`
	DeliveryTimeSlot string        `json:"delivery_time_slot"`
	Remark           string        `json:"remark"`
}

func (in CreateOrderInput) pricingInput(userID uint) PricingInput {
	return PricingInput{
		UserID:        userID,
		Items:         in.Items,
		DeliveryType:  strings.TrimSpace(in.DeliveryType),
		AddressID:     in.AddressID,
		PickupPointID: in.PickupPointID,
		UserCouponID:  in.UserCouponID,
		PointsUsed:    in.PointsUsed,
	}
}

// PreviewOrder 只计价不落库
func (s *OrderService) PreviewOrder(ctx context.Context, userID uint, input CreateOrderInput) (*PricingResult, error) {
	pricingInput := input.pricingInput(userID)
	if err := validateDeliveryInput(pricingInput); err != nil {
		return nil, err
	}
	return s.pricing.Resolve(models.DB, pricingInput)
}

// CreateOrder 计价、预占库存并创建待支付订单
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*models.Order, error) {
	pricingInput := input.pricingInput(userID)
	if err := validateDeliveryInput(pricingInput); err != nil {
		return nil, err
	}

	var order *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		priced, err := s.pricing.Resolve(tx, pricingInput)
		if err != nil {
			return err
		}
		if err := s.stock.Reserve(tx, StockLinesFromItems(priced.Items)); err != nil {
			return err
		}

		orderRepo := s.orderRepo.WithTx(tx)
		orderNo, err := nextOrderNo(orderRepo)
		if err != nil {
			return err
		}
		now := time.Now()
		expiresAt := now.Add(s.expire)
		order = &models.Order{
			OrderNo:          orderNo,
			UserID:           userID,
			Status:           constants.OrderStatusPending,
			TotalAmount:      models.NewMoneyFromDecimal(priced.TotalAmount),
			CouponDiscount:   models.NewMoneyFromDecimal(priced.CouponDiscount),
			PointsDiscount:   models.NewMoneyFromDecimal(priced.PointsDiscount),
			DiscountAmount:   models.NewMoneyFromDecimal(priced.DiscountAmount),
			DeliveryFee:      models.NewMoneyFromDecimal(priced.DeliveryFee),
			FinalAmount:      models.NewMoneyFromDecimal(priced.FinalAmount),
			PointsUsed:       priced.PointsUsed,
			DeliveryType:     pricingInput.DeliveryType,
			DeliveryAddress:  priced.DeliveryAddress,
			ZoneID:           priced.ZoneID,
			DeliveryTimeSlot: strings.TrimSpace(input.DeliveryTimeSlot),
			Remark:           strings.TrimSpace(input.Remark),
			ExpiresAt:        &expiresAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		switch order.DeliveryType {
		case constants.DeliveryTypeDelivery:
			order.AddressID = input.AddressID
		case constants.DeliveryTypePickup:
			order.PickupPointID = input.PickupPointID
		}
		if priced.UserCoupon != nil {
			id := priced.UserCoupon.ID
			order.UserCouponID = &id
		}
		if err := orderRepo.Create(order, priced.Items); err != nil {
			return err
		}
		if err := s.machine.RecordCreated(tx, order, constants.OperatorUser); err != nil {
			return err
		}
		if order.UserCouponID != nil {
			if err := s.coupons.MarkUsed(tx, *order.UserCouponID, order.ID); err != nil {
				return err
			}
		}
		if order.PointsUsed > 0 {
			orderID := order.ID
			if _, err := s.points.Spend(tx, PointsChange{
				UserID:      userID,
				Points:      order.PointsUsed,
				SourceType:  constants.PointsSourceOrderDeduct,
				SourceID:    &orderID,
				Description: "订单抵扣：" + order.OrderNo,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.StockRejected()
		}
		return nil, err
	}

	s.metrics.OrderCreated()
	if order.PointsUsed > 0 {
		s.metrics.PointsChanged(constants.PointsChangeSpend, constants.PointsSourceOrderDeduct, order.PointsUsed)
		InvalidatePointsSummary(ctx, userID)
	}
	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", userID,
		"final_amount", order.FinalAmount.String(),
	)
	s.notify(ctx, order, constants.NotifySceneOrderCreated)
	s.scheduleTimeoutCancel(order)
	return order, nil
}

// scheduleTimeoutCancel 投递超时取消任务，失败时由定时扫描兜底
func (s *OrderService) scheduleTimeoutCancel(order *models.Order) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{
		OrderID: order.ID,
	}, s.expire); err != nil {
		logger.Errorw("order_enqueue_timeout_cancel_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
	}
}

// CancelOrder 用户取消订单（仅待支付或已支付）
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uint, reason string) (*models.Order, error) {
	var result *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.lockUserOrder(tx, userID, orderID)
		if err != nil {
			return err
		}
		result, err = s.cancelInTx(tx, order, constants.OperatorUser, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, result)
	return result.Order, nil
}

// cancelInTx 取消订单并处理支付单：已支付转退款中，待支付直接关闭
func (s *OrderService) cancelInTx(tx *gorm.DB, order *models.Order, operator, reason string) (*TransitionResult, error) {
	if order.Status != constants.OrderStatusPending && order.Status != constants.OrderStatusPaid {
		if order.Status == constants.OrderStatusCancelled {
			return &TransitionResult{Order: order, From: order.Status}, nil
		}
		return nil, &InvalidTransitionError{Current: order.Status, Target: constants.OrderStatusCancelled}
	}
	current, err := s.paymentRepo.WithTx(tx).GetByOrderIDForUpdate(order.ID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "订单取消"
	}
	result, err := s.machine.Transition(tx, order, constants.OrderStatusCancelled, operator, reason)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return result, nil
	}
	if current.Status == constants.PaymentStatusPaid {
		if _, err := s.coordinator.RequestRefund(tx, current, decimal.Zero, reason, operator); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := s.coordinator.cancelPending(tx, current, reason); err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmReceipt 用户确认收货，完成订单并发放积分
func (s *OrderService) ConfirmReceipt(ctx context.Context, userID, orderID uint) (*TransitionResult, error) {
	var result *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.lockUserOrder(tx, userID, orderID)
		if err != nil {
			return err
		}
		if order.Status != constants.OrderStatusDelivering {
			return &InvalidTransitionError{Current: order.Status, Target: constants.OrderStatusCompleted}
		}
		result, err = s.machine.Transition(tx, order, constants.OrderStatusCompleted, constants.OperatorUser, "用户确认收货")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, result)
	return result, nil
}

// RequestRefund 用户申请退款，订单须处于已支付之后的状态
func (s *OrderService) RequestRefund(ctx context.Context, userID, orderID uint, amount decimal.Decimal, reason string) (*models.Order, error) {
	var result *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.lockUserOrder(tx, userID, orderID)
		if err != nil {
			return err
		}
		if !isPostPaid(order.Status) {
			return &InvalidTransitionError{Current: order.Status, Target: constants.OrderStatusRefunding}
		}
		current, err := s.paymentRepo.WithTx(tx).GetByOrderIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		result, err = s.coordinator.RequestRefund(tx, current, amount, strings.TrimSpace(reason), constants.OperatorUser)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, result)
	return result.Order, nil
}

// AdminConfirmRefund 管理员确认退款完成
func (s *OrderService) AdminConfirmRefund(ctx context.Context, adminID, orderID uint) (*models.Order, error) {
	var result *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		current, err := s.paymentRepo.WithTx(tx).GetByOrderIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		result, err = s.coordinator.ConfirmRefund(tx, current, adminOperator(adminID))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, result)
	return result.Order, nil
}

// AdminUpdateStatus 管理端唯一的状态变更入口
func (s *OrderService) AdminUpdateStatus(ctx context.Context, adminID, orderID uint, target, remark string) (*models.Order, error) {
	target = strings.TrimSpace(target)
	if !IsValidOrderStatus(target) {
		return nil, ErrInvalidStatus
	}
	operator := adminOperator(adminID)
	remark = strings.TrimSpace(remark)

	var results []*TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == target {
			results = append(results, &TransitionResult{Order: order, From: order.Status})
			return nil
		}
		switch target {
		case constants.OrderStatusPaid:
			return ErrTransitionRequiresPayment
		case constants.OrderStatusCancelled:
			result, err := s.cancelInTx(tx, order, operator, remark)
			if err != nil {
				return err
			}
			results = append(results, result)
			return nil
		case constants.OrderStatusRefunding, constants.OrderStatusRefunded:
			if !CanTransition(order.Status, target) {
				return &InvalidTransitionError{Current: order.Status, Target: target}
			}
			current, err := s.paymentRepo.WithTx(tx).GetByOrderIDForUpdate(order.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return ErrPaymentNotFound
			}
			if current.Status == constants.PaymentStatusPaid {
				result, err := s.coordinator.RequestRefund(tx, current, decimal.Zero, remark, operator)
				if err != nil {
					return err
				}
				results = append(results, result)
			}
			if target == constants.OrderStatusRefunded {
				result, err := s.coordinator.ConfirmRefund(tx, current, operator)
				if err != nil {
					return err
				}
				results = append(results, result)
			}
			return nil
		default:
			result, err := s.machine.Transition(tx, order, target, operator, remark)
			if err != nil {
				return err
			}
			results = append(results, result)
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	for _, result := range results {
		s.afterTransition(ctx, result)
	}
	return results[len(results)-1].Order, nil
}

// CancelExpiredOrder 超时未支付订单由系统取消，非待支付或未到期时原样返回
func (s *OrderService) CancelExpiredOrder(orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	var result *TransitionResult
	var current *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		current = order
		if order.Status != constants.OrderStatusPending || order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
			return nil
		}
		result, err = s.cancelInTx(tx, order, constants.OperatorSystem, "支付超时自动取消")
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return current, nil
	}
	s.afterTransition(context.Background(), result)
	logger.Infow("order_expired_cancelled", "order_id", orderID, "order_no", result.Order.OrderNo)
	return result.Order, nil
}

// SweepExpiredOrders 兜底扫描已过期的待支付订单
func (s *OrderService) SweepExpiredOrders(ctx context.Context, limit int) (int, error) {
	ids, err := s.orderRepo.ListExpiredPendingIDs(time.Now(), limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		if ctx != nil && ctx.Err() != nil {
			return cancelled, ctx.Err()
		}
		order, err := s.CancelExpiredOrder(id)
		if err != nil {
			logger.Warnw("order_sweep_cancel_failed", "order_id", id, "error", err)
			continue
		}
		if order != nil && order.Status == constants.OrderStatusCancelled {
			cancelled++
		}
	}
	return cancelled, nil
}

func (s *OrderService) lockUserOrder(tx *gorm.DB, userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// afterTransition 事务提交后的指标与通知
func (s *OrderService) afterTransition(ctx context.Context, result *TransitionResult) {
	if result == nil || !result.Changed || result.Order == nil {
		return
	}
	s.metrics.OrderTransition(result.From, result.Order.Status)
	if result.PointsGained > 0 {
		s.metrics.PointsChanged(constants.PointsChangeEarn, constants.PointsSourceOrder, result.PointsGained)
		InvalidatePointsSummary(ctx, result.Order.UserID)
	}
	if result.Order.Status == constants.OrderStatusCancelled && result.Order.PointsUsed > 0 {
		s.metrics.PointsChanged(constants.PointsChangeEarn, constants.PointsSourceOrderRefund, result.Order.PointsUsed)
		InvalidatePointsSummary(ctx, result.Order.UserID)
	}
	if scene, ok := notifySceneForStatus(result.Order.Status); ok {
		s.notify(ctx, result.Order, scene)
	}
}

func (s *OrderService) notify(ctx context.Context, order *models.Order, scene string) {
	if s.notifier == nil || order == nil {
		return
	}
	if err := s.notifier.Notify(ctx, order.UserID, scene, orderNotifyPayload(order)); err != nil {
		logger.Warnw("order_notify_failed",
			"order_id", order.ID,
			"scene", scene,
			"error", err,
		)
	}
}

type orderNoChecker interface {
	ExistsOrderNo(orderNo string) (bool, error)
}

// nextOrderNo 生成未占用的订单号
func nextOrderNo(repo orderNoChecker) (string, error) {
	for i := 0; i < orderNoMaxAttempts; i++ {
		candidate := generateOrderNo()
		exists, err := repo.ExistsOrderNo(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: order_no collision", ErrConflict)
}

// generateOrderNo 订单号：yyyyMMddHHmmss + 4 位随机数
func generateOrderNo() string {
	return time.Now().Format("20060102150405") + randNumeric(4)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
