package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/metrics"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/payment"
	"github.com/lingxian-next/internal/payment/mockpay"
	"github.com/lingxian-next/internal/queue"
	"github.com/lingxian-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 支付结果处理的结论
const (
	PaymentOutcomePaid      = "paid"
	PaymentOutcomeDuplicate = "duplicate"
	PaymentOutcomeOrphaned  = "orphaned"
	PaymentOutcomeConflict  = "conflict"
	PaymentOutcomeFailed    = "failed"
	PaymentOutcomeIgnored   = "ignored"
)

const (
	defaultGatewayTimeout = 10 * time.Second
	freePrepayPrefix      = "free_"
	freeRefundStatus      = "SKIPPED"
)

// PaymentCoordinatorOptions 支付协调器配置
type PaymentCoordinatorOptions struct {
	GatewayTimeout  time.Duration
	MockAutoSuccess bool
}

// PaymentCoordinator 协调支付单、网关与订单状态
type PaymentCoordinator struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
	machine     *OrderStateMachine
	gateway     payment.Gateway
	queueClient *queue.Client
	notifier    MessageNotifier
	metrics     *metrics.Collector
	options     PaymentCoordinatorOptions
}

// NewPaymentCoordinator 创建支付协调器
func NewPaymentCoordinator(orderRepo repository.OrderRepository, paymentRepo repository.PaymentRepository, userRepo repository.UserRepository, machine *OrderStateMachine, gateway payment.Gateway, queueClient *queue.Client, notifier MessageNotifier, collector *metrics.Collector, options PaymentCoordinatorOptions) *PaymentCoordinator {
	if options.GatewayTimeout <= 0 {
		options.GatewayTimeout = defaultGatewayTimeout
	}
	return &PaymentCoordinator{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		machine:     machine,
		gateway:     gateway,
		queueClient: queueClient,
		notifier:    notifier,
		metrics:     collector,
		options:     options,
	}
}

// InitiateResult 发起支付结果
type InitiateResult struct {
	Payment   *models.Payment   `json:"payment"`
	PayParams map[string]string `json:"pay_params,omitempty"`
}

// PaymentOutcome 支付成功/失败通知的处理结果
type PaymentOutcome struct {
	Payment *models.Payment `json:"payment"`
	Order   *models.Order   `json:"order,omitempty"`
	Outcome string          `json:"outcome"`
}

// GatewayName 当前网关名称
func (c *PaymentCoordinator) GatewayName() string {
	if c.gateway == nil {
		return ""
	}
	return c.gateway.Name()
}

// MockEnabled 模拟支付入口是否可用
func (c *PaymentCoordinator) MockEnabled() bool {
	return c.GatewayName() == payment.GatewayMock && c.options.MockAutoSuccess
}

// Initiate 为待支付订单创建或复用唯一支付单，网关调用在事务之外
func (c *PaymentCoordinator) Initiate(ctx context.Context, userID, orderID uint) (*InitiateResult, error) {
	if c.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	order, err := c.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Payment != nil && order.Payment.Status == constants.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if order.Status != constants.OrderStatusPending {
		if isPostPaid(order.Status) {
			return nil, ErrAlreadyPaid
		}
		return nil, &InvalidTransitionError{Current: order.Status, Target: constants.OrderStatusPaid}
	}
	if order.ExpiresAt != nil && order.ExpiresAt.Before(time.Now()) {
		return nil, ErrOrderExpired
	}

	paymentNo := ""
	if order.Payment != nil {
		paymentNo = order.Payment.PaymentNo
	}
	if paymentNo == "" {
		paymentNo = generatePaymentNo()
	}
	user, err := c.userRepo.GetByID(order.UserID)
	if err != nil {
		return nil, err
	}
	openID := ""
	if user != nil {
		openID = user.OpenID
	}

	// 实付为 0 的订单不经过网关，直接按成功处理
	free := !order.FinalAmount.IsPositive()
	var prepay *payment.PrepayResult
	if free {
		prepay = &payment.PrepayResult{PrepayID: freePrepayPrefix + paymentNo}
	} else {
		prepay, err = c.callPrepay(ctx, payment.PrepayRequest{
			PaymentNo:   paymentNo,
			OrderNo:     order.OrderNo,
			Amount:      order.FinalAmount.Decimal,
			Description: "订单 " + order.OrderNo,
			OpenID:      openID,
			ExpireAt:    order.ExpiresAt,
		})
		if err != nil {
			logger.Warnw("payment_prepay_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"gateway", c.gateway.Name(),
				"error", err,
			)
			return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
	}

	var saved *models.Payment
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := c.orderRepo.WithTx(tx).GetByIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrOrderNotFound
		}
		if locked.Status != constants.OrderStatusPending {
			return &InvalidTransitionError{Current: locked.Status, Target: constants.OrderStatusPaid}
		}
		paymentRepo := c.paymentRepo.WithTx(tx)
		existing, err := paymentRepo.GetByOrderIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		if existing == nil {
			saved = &models.Payment{
				OrderID:   order.ID,
				PaymentNo: paymentNo,
				Channel:   c.gateway.Name(),
				PrepayID:  prepay.PrepayID,
				Amount:    locked.FinalAmount,
				Status:    constants.PaymentStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := paymentRepo.Create(saved); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrConflict
				}
				return err
			}
			return nil
		}
		switch existing.Status {
		case constants.PaymentStatusPaid:
			return ErrAlreadyPaid
		case constants.PaymentStatusPending, constants.PaymentStatusFailed:
		default:
			return ErrConflict
		}
		affected, err := paymentRepo.UpdateFromStatus(existing.ID, existing.Status, map[string]interface{}{
			"status":      constants.PaymentStatusPending,
			"channel":     c.gateway.Name(),
			"prepay_id":   prepay.PrepayID,
			"amount":      locked.FinalAmount,
			"fail_reason": "",
			"updated_at":  now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrConflict
		}
		existing.Status = constants.PaymentStatusPending
		existing.Channel = c.gateway.Name()
		existing.PrepayID = prepay.PrepayID
		existing.Amount = locked.FinalAmount
		existing.FailReason = ""
		saved = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payment_initiated",
		"order_id", order.ID,
		"payment_id", saved.ID,
		"payment_no", saved.PaymentNo,
		"gateway", saved.Channel,
	)
	if free {
		outcome, err := c.HandleSuccess(ctx, saved.ID, prepay.PrepayID, constants.OperatorSystem)
		if err != nil {
			return nil, err
		}
		return &InitiateResult{Payment: outcome.Payment}, nil
	}
	return &InitiateResult{Payment: saved, PayParams: prepay.PayParams}, nil
}

func (c *PaymentCoordinator) callPrepay(ctx context.Context, req payment.PrepayRequest) (*payment.PrepayResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, c.options.GatewayTimeout)
	defer cancel()
	started := time.Now()
	result, err := c.gateway.CreatePrepay(callCtx, req)
	c.metrics.ObserveGateway(c.gateway.Name(), "prepay", err, time.Since(started))
	if err != nil {
		return nil, err
	}
	if result == nil || strings.TrimSpace(result.PrepayID) == "" {
		return nil, errors.New("empty prepay id")
	}
	return result, nil
}

// HandleSuccess 幂等处理支付成功：支付单置为已支付并在同一事务内推进订单
func (c *PaymentCoordinator) HandleSuccess(ctx context.Context, paymentID uint, transactionID, operator string) (*PaymentOutcome, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, ErrPaymentConflict
	}
	if operator == "" {
		operator = constants.OperatorPaymentCallback
	}
	outcome := &PaymentOutcome{}
	var alertRemark string
	var transition *TransitionResult
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		order, current, err := c.lockByPayment(tx, paymentID)
		if err != nil {
			return err
		}
		paymentRepo := c.paymentRepo.WithTx(tx)
		outcome.Payment = current
		outcome.Order = order

		switch current.Status {
		case constants.PaymentStatusPaid, constants.PaymentStatusRefunding, constants.PaymentStatusRefunded:
			if current.TransactionID == transactionID {
				outcome.Outcome = PaymentOutcomeDuplicate
				return nil
			}
			if current.Status != constants.PaymentStatusPaid {
				logger.Warnw("payment_success_after_refund_ignored",
					"payment_id", current.ID,
					"status", current.Status,
					"transaction_id", transactionID,
				)
				outcome.Outcome = PaymentOutcomeIgnored
				return nil
			}
			// 已支付单收到另一笔交易号：保留原交易，标记待人工对账
			alertRemark = fmt.Sprintf("重复交易：已记录 %s，收到 %s", current.TransactionID, transactionID)
			logger.Warnw("payment_transaction_conflict",
				"payment_id", current.ID,
				"order_id", current.OrderID,
				"recorded_transaction_id", current.TransactionID,
				"incoming_transaction_id", transactionID,
			)
			if current.ReconcileStatus == constants.PaymentReconcileNone {
				if _, err := paymentRepo.UpdateFromStatus(current.ID, constants.PaymentStatusPaid, map[string]interface{}{
					"reconcile_status": constants.PaymentReconcileConflict,
					"reconcile_remark": alertRemark,
				}); err != nil {
					return err
				}
				current.ReconcileStatus = constants.PaymentReconcileConflict
				current.ReconcileRemark = alertRemark
			}
			outcome.Outcome = PaymentOutcomeConflict
			return nil
		}

		now := time.Now()
		affected, err := paymentRepo.UpdateFromStatus(current.ID, current.Status, map[string]interface{}{
			"status":         constants.PaymentStatusPaid,
			"transaction_id": transactionID,
			"paid_at":        now,
			"callback_at":    now,
			"fail_reason":    "",
			"updated_at":     now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrConflict
		}
		current.Status = constants.PaymentStatusPaid
		current.TransactionID = transactionID
		current.PaidAt = &now
		current.CallbackAt = &now

		transition, err = c.machine.Transition(tx, order, constants.OrderStatusPaid, operator, "支付成功，交易号 "+transactionID)
		if err == nil {
			outcome.Outcome = PaymentOutcomePaid
			return nil
		}
		if !errors.Is(err, ErrInvalidTransition) {
			return err
		}

		// 订单已离开待支付状态（例如已取消），支付单保持已支付并标记待对账
		alertRemark = fmt.Sprintf("订单状态为 %s，支付成功无法流转为已支付", order.Status)
		if _, err := paymentRepo.UpdateFromStatus(current.ID, constants.PaymentStatusPaid, map[string]interface{}{
			"reconcile_status": constants.PaymentReconcileOrphaned,
			"reconcile_remark": alertRemark,
		}); err != nil {
			return err
		}
		current.ReconcileStatus = constants.PaymentReconcileOrphaned
		current.ReconcileRemark = alertRemark
		if err := c.machine.RecordRejected(tx, order, constants.OrderStatusPaid, operator, alertRemark); err != nil {
			return err
		}
		outcome.Outcome = PaymentOutcomeOrphaned
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch outcome.Outcome {
	case PaymentOutcomePaid:
		if transition != nil && transition.Changed {
			c.metrics.OrderTransition(transition.From, constants.OrderStatusPaid)
			c.notify(ctx, outcome.Order, constants.NotifySceneOrderPaid)
		}
		logger.Infow("payment_success_applied",
			"payment_id", outcome.Payment.ID,
			"order_id", outcome.Payment.OrderID,
			"transaction_id", transactionID,
		)
	case PaymentOutcomeOrphaned, PaymentOutcomeConflict:
		c.raiseOrphanAlert(outcome.Payment, outcome.Order, alertRemark)
	}
	return outcome, nil
}

// lockByPayment 先锁订单再锁支付单，与取消、发起支付保持同一加锁顺序
func (c *PaymentCoordinator) lockByPayment(tx *gorm.DB, paymentID uint) (*models.Order, *models.Payment, error) {
	paymentRepo := c.paymentRepo.WithTx(tx)
	located, err := paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, nil, err
	}
	if located == nil {
		return nil, nil, ErrPaymentNotFound
	}
	order, err := c.orderRepo.WithTx(tx).GetByIDForUpdate(located.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}
	current, err := paymentRepo.GetByOrderIDForUpdate(order.ID)
	if err != nil {
		return nil, nil, err
	}
	if current == nil || current.ID != located.ID {
		return nil, nil, ErrPaymentNotFound
	}
	return order, current, nil
}

// raiseOrphanAlert 孤儿支付告警：日志 + 指标 + 高优先级队列任务
func (c *PaymentCoordinator) raiseOrphanAlert(paid *models.Payment, order *models.Order, remark string) {
	c.metrics.PaymentOrphaned()
	logger.Errorw("payment_orphaned",
		"payment_id", paid.ID,
		"order_id", paid.OrderID,
		"order_status", order.Status,
		"reconcile_status", paid.ReconcileStatus,
		"transaction_id", paid.TransactionID,
		"amount", paid.Amount.String(),
		"remark", remark,
	)
	if c.queueClient == nil || !c.queueClient.Enabled() {
		return
	}
	if err := c.queueClient.EnqueuePaymentOrphanAlert(queue.PaymentOrphanAlertPayload{
		PaymentID:     paid.ID,
		OrderID:       paid.OrderID,
		OrderNo:       order.OrderNo,
		OrderStatus:   order.Status,
		TransactionID: paid.TransactionID,
		Amount:        paid.Amount.String(),
	}); err != nil {
		logger.Errorw("payment_enqueue_orphan_alert_failed",
			"payment_id", paid.ID,
			"order_id", paid.OrderID,
			"error", err,
		)
	}
}

// HandleNotification 校验并处理网关原始回调
func (c *PaymentCoordinator) HandleNotification(ctx context.Context, headers map[string]string, body []byte) (*PaymentOutcome, error) {
	if c.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	notification, err := c.gateway.ParseNotification(ctx, headers, body)
	if err != nil {
		c.metrics.PaymentCallback(c.gateway.Name(), "invalid")
		return nil, err
	}
	return c.HandleCallback(ctx, notification)
}

// HandleCallback 处理已验签的支付结果通知
func (c *PaymentCoordinator) HandleCallback(ctx context.Context, notification *payment.Notification) (*PaymentOutcome, error) {
	if notification == nil {
		return nil, payment.ErrNotificationInvalid
	}
	current, err := c.resolveNotificationPayment(notification)
	if err != nil {
		return nil, err
	}
	gatewayName := c.GatewayName()
	if notified := models.NewMoneyFromDecimal(notification.Amount); notified.IsPositive() && !notified.Equal(current.Amount) {
		logger.Errorw("payment_callback_amount_mismatch",
			"payment_id", current.ID,
			"expected", current.Amount.String(),
			"actual", notification.Amount.String(),
		)
		c.metrics.PaymentCallback(gatewayName, "amount_mismatch")
		return nil, ErrAmountMismatch
	}

	switch notification.Status {
	case payment.NotificationSuccess:
		outcome, err := c.HandleSuccess(ctx, current.ID, notification.TransactionID, constants.OperatorPaymentCallback)
		if err != nil {
			if errors.Is(err, ErrPaymentConflict) {
				c.metrics.PaymentCallback(gatewayName, "conflict")
			}
			return nil, err
		}
		c.metrics.PaymentCallback(gatewayName, outcome.Outcome)
		return outcome, nil
	case payment.NotificationFailed:
		outcome, err := c.markFailed(current, "支付失败")
		if err != nil {
			return nil, err
		}
		c.metrics.PaymentCallback(gatewayName, outcome.Outcome)
		return outcome, nil
	default:
		c.metrics.PaymentCallback(gatewayName, PaymentOutcomeIgnored)
		return &PaymentOutcome{Payment: current, Outcome: PaymentOutcomeIgnored}, nil
	}
}

func (c *PaymentCoordinator) resolveNotificationPayment(notification *payment.Notification) (*models.Payment, error) {
	if no := strings.TrimSpace(notification.PaymentNo); no != "" {
		found, err := c.paymentRepo.GetByPaymentNo(no)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	if no := strings.TrimSpace(notification.OrderNo); no != "" {
		order, err := c.orderRepo.GetByOrderNo(no)
		if err != nil {
			return nil, err
		}
		if order != nil {
			found, err := c.paymentRepo.GetByOrderID(order.ID)
			if err != nil {
				return nil, err
			}
			if found != nil {
				return found, nil
			}
		}
	}
	return nil, ErrPaymentNotFound
}

// markFailed 待支付的支付单置为失败，其余状态忽略
func (c *PaymentCoordinator) markFailed(current *models.Payment, reason string) (*PaymentOutcome, error) {
	now := time.Now()
	affected, err := c.paymentRepo.UpdateFromStatus(current.ID, constants.PaymentStatusPending, map[string]interface{}{
		"status":      constants.PaymentStatusFailed,
		"fail_reason": reason,
		"callback_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return &PaymentOutcome{Payment: current, Outcome: PaymentOutcomeIgnored}, nil
	}
	current.Status = constants.PaymentStatusFailed
	current.FailReason = reason
	current.CallbackAt = &now
	return &PaymentOutcome{Payment: current, Outcome: PaymentOutcomeFailed}, nil
}

// RequestRefund 在调用方事务内申请全额退款，订单同步进入退款中。
// 订单行先于支付单行加锁；调用方若已持有两把锁，这里的再次加锁不会阻塞。
func (c *PaymentCoordinator) RequestRefund(tx *gorm.DB, current *models.Payment, amount decimal.Decimal, reason, operator string) (*TransitionResult, error) {
	if current == nil {
		return nil, ErrPaymentNotFound
	}
	if current.Status != constants.PaymentStatusPaid {
		return nil, ErrNotPaid
	}
	refundAmount, err := resolveRefundAmount(current.Amount.Decimal, amount)
	if err != nil {
		return nil, err
	}
	order, err := c.orderRepo.WithTx(tx).GetByIDForUpdate(current.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	now := time.Now()
	affected, err := c.paymentRepo.WithTx(tx).UpdateFromStatus(current.ID, constants.PaymentStatusPaid, map[string]interface{}{
		"status":        constants.PaymentStatusRefunding,
		"refund_amount": models.NewMoneyFromDecimal(refundAmount),
		"refund_reason": reason,
		"updated_at":    now,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConflict
	}
	current.Status = constants.PaymentStatusRefunding
	current.RefundAmount = models.NewMoneyFromDecimal(refundAmount)
	current.RefundReason = reason

	if order.Status == constants.OrderStatusCancelled {
		return &TransitionResult{Order: order, From: order.Status}, nil
	}
	remark := "申请退款"
	if reason != "" {
		remark = "申请退款：" + reason
	}
	return c.machine.Transition(tx, order, constants.OrderStatusRefunding, operator, remark)
}

// ConfirmRefund 在调用方事务内确认退款完成，订单同步进入已退款并回补库存
func (c *PaymentCoordinator) ConfirmRefund(tx *gorm.DB, current *models.Payment, operator string) (*TransitionResult, error) {
	if current == nil {
		return nil, ErrPaymentNotFound
	}
	if current.Status != constants.PaymentStatusRefunding {
		return nil, ErrRefundNotRequested
	}
	order, err := c.orderRepo.WithTx(tx).GetByIDForUpdate(current.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	now := time.Now()
	affected, err := c.paymentRepo.WithTx(tx).UpdateFromStatus(current.ID, constants.PaymentStatusRefunding, map[string]interface{}{
		"status":      constants.PaymentStatusRefunded,
		"refunded_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConflict
	}
	current.Status = constants.PaymentStatusRefunded
	current.RefundedAt = &now

	if order.Status == constants.OrderStatusCancelled {
		return &TransitionResult{Order: order, From: order.Status}, nil
	}
	return c.machine.Transition(tx, order, constants.OrderStatusRefunded, operator, "退款完成")
}

// cancelPending 订单取消时关闭待支付的支付单
func (c *PaymentCoordinator) cancelPending(tx *gorm.DB, current *models.Payment, reason string) error {
	if current == nil {
		return nil
	}
	switch current.Status {
	case constants.PaymentStatusPending, constants.PaymentStatusFailed:
	default:
		return nil
	}
	affected, err := c.paymentRepo.WithTx(tx).UpdateFromStatus(current.ID, current.Status, map[string]interface{}{
		"status":      constants.PaymentStatusCancelled,
		"fail_reason": reason,
		"updated_at":  time.Now(),
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	current.Status = constants.PaymentStatusCancelled
	return nil
}

// SimulateSuccess 模拟支付成功，仅在模拟网关且开启自动成功时可用
func (c *PaymentCoordinator) SimulateSuccess(ctx context.Context, userID, orderID uint) (*PaymentOutcome, error) {
	if !c.MockEnabled() {
		return nil, ErrMockPaymentOff
	}
	order, err := c.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Payment == nil || strings.TrimSpace(order.Payment.PrepayID) == "" {
		return nil, ErrPaymentNotFound
	}
	notification, err := mockpay.BuildNotification(
		order.OrderNo,
		order.Payment.PaymentNo,
		mockpay.TransactionIDFor(order.Payment.PrepayID),
		payment.NotificationSuccess,
		order.Payment.Amount.String(),
	)
	if err != nil {
		return nil, err
	}
	return c.HandleCallback(ctx, notification)
}

// Reconcile 管理员处理待对账支付：孤儿支付转入退款中，重复交易仅结案
func (c *PaymentCoordinator) Reconcile(ctx context.Context, adminID, paymentID uint, remark string) (*models.Payment, error) {
	operator := adminOperator(adminID)
	var result *models.Payment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, current, err := c.lockByPayment(tx, paymentID)
		if err != nil {
			return err
		}
		paymentRepo := c.paymentRepo.WithTx(tx)
		reason := strings.TrimSpace(remark)
		switch current.ReconcileStatus {
		case constants.PaymentReconcileOrphaned:
			if reason == "" {
				reason = "孤儿支付对账退款"
			}
			if _, err := c.RequestRefund(tx, current, decimal.Zero, reason, operator); err != nil {
				return err
			}
		case constants.PaymentReconcileConflict:
			// 原交易有效，重复扣款由运营在网关侧处理，这里只结案
			if reason == "" {
				reason = "重复交易已人工处理"
			}
		default:
			return ErrNotOrphaned
		}
		if _, err := paymentRepo.UpdateFromStatus(current.ID, current.Status, map[string]interface{}{
			"reconcile_status": constants.PaymentReconcileResolved,
			"reconcile_remark": operator + "：" + reason,
		}); err != nil {
			return err
		}
		current.ReconcileStatus = constants.PaymentReconcileResolved
		current.ReconcileRemark = operator + "：" + reason
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payment_orphan_reconciled",
		"payment_id", result.ID,
		"order_id", result.OrderID,
		"admin_id", adminID,
	)
	return result, nil
}

// SubmitRefund 将退款中的支付单提交到网关，结果写入对账备注
func (c *PaymentCoordinator) SubmitRefund(ctx context.Context, adminID, paymentID uint) (*payment.RefundResult, error) {
	if c.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	current, err := c.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrPaymentNotFound
	}
	if current.Status != constants.PaymentStatusRefunding {
		return nil, ErrRefundNotRequested
	}
	order, err := c.orderRepo.GetByID(current.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !current.Amount.IsPositive() {
		// 免支付订单未经过网关，无需提交网关退款
		result := &payment.RefundResult{RefundID: "R" + current.PaymentNo, Status: freeRefundStatus}
		if _, err := c.paymentRepo.UpdateFromStatus(current.ID, constants.PaymentStatusRefunding, map[string]interface{}{
			"reconcile_remark": "免支付订单，无需网关退款",
		}); err != nil {
			return nil, err
		}
		logger.Infow("payment_refund_skipped_free",
			"payment_id", current.ID,
			"order_id", current.OrderID,
			"admin_id", adminID,
		)
		return result, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, c.options.GatewayTimeout)
	defer cancel()
	started := time.Now()
	result, err := c.gateway.Refund(callCtx, payment.RefundRequest{
		OrderNo:       order.OrderNo,
		PaymentNo:     current.PaymentNo,
		RefundNo:      "R" + current.PaymentNo,
		TransactionID: current.TransactionID,
		Amount:        current.RefundAmount.Decimal,
		Total:         current.Amount.Decimal,
		Reason:        current.RefundReason,
	})
	c.metrics.ObserveGateway(c.gateway.Name(), "refund", err, time.Since(started))
	if err != nil {
		logger.Warnw("payment_refund_submit_failed",
			"payment_id", current.ID,
			"admin_id", adminID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	if _, err := c.paymentRepo.UpdateFromStatus(current.ID, constants.PaymentStatusRefunding, map[string]interface{}{
		"reconcile_remark": fmt.Sprintf("退款已提交 %s（%s）", result.RefundID, result.Status),
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *PaymentCoordinator) notify(ctx context.Context, order *models.Order, scene string) {
	if c.notifier == nil || order == nil {
		return
	}
	if err := c.notifier.Notify(ctx, order.UserID, scene, orderNotifyPayload(order)); err != nil {
		logger.Warnw("order_notify_failed",
			"order_id", order.ID,
			"scene", scene,
			"error", err,
		)
	}
}

// resolveRefundAmount 仅支持全额退款，0 表示全额
func resolveRefundAmount(paid, requested decimal.Decimal) (decimal.Decimal, error) {
	if requested.IsNegative() {
		return decimal.Zero, ErrRefundAmountInvalid
	}
	if requested.IsZero() {
		return paid, nil
	}
	requested = requested.Round(2)
	if requested.GreaterThan(paid) {
		return decimal.Zero, ErrRefundAmountInvalid
	}
	if requested.LessThan(paid) {
		return decimal.Zero, ErrPartialRefundUnsupported
	}
	return paid, nil
}

func adminOperator(adminID uint) string {
	return fmt.Sprintf("%s%d", constants.OperatorAdminPrefix, adminID)
}

// generatePaymentNo 支付单号：P + 时间 + 随机后缀
func generatePaymentNo() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return "P" + time.Now().Format("20060102150405") + strings.ToUpper(suffix)
}
