package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/provider"
	"github.com/lingxian-next/internal/queue"
	"github.com/lingxian-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册任务处理器
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderNotify, c.handleOrderNotify)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskPaymentOrphanAlert, c.handlePaymentOrphanAlert)
}

func (c *Consumer) handleOrderNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_order_notify_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.MessageRepo == nil {
		logger.Warnw("worker_order_notify_skip_message_repo_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := service.DeliverOrderMessage(c.MessageRepo, payload); err != nil {
		logger.Warnw("worker_order_notify_deliver_failed",
			"order_id", payload.OrderID,
			"user_id", payload.UserID,
			"scene", payload.Scene,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderService.CancelExpiredOrder(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrConflict):
			// 与支付回调并发，重试时重新判断
			logger.Warnw("worker_order_timeout_cancel_conflict", "order_id", payload.OrderID, "error", err)
			return err
		default:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	if order != nil {
		logger.Debugw("worker_order_timeout_cancel_done", "order_id", order.ID, "status", order.Status)
	}
	return nil
}

func (c *Consumer) handlePaymentOrphanAlert(_ context.Context, task *asynq.Task) error {
	if task == nil {
		return nil
	}
	var payload queue.PaymentOrphanAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_orphan_alert_unmarshal_failed", "error", err)
		return err
	}
	logger.Errorw("payment_orphan_alert",
		"payment_id", payload.PaymentID,
		"order_id", payload.OrderID,
		"order_no", payload.OrderNo,
		"order_status", payload.OrderStatus,
		"transaction_id", payload.TransactionID,
		"amount", payload.Amount,
	)
	return nil
}
