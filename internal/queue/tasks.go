package queue

import (
	"encoding/json"

	"github.com/lingxian-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderNotify 订单消息通知任务
	TaskOrderNotify = constants.TaskOrderNotify
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskPaymentOrphanAlert 孤儿支付告警任务
	TaskPaymentOrphanAlert = constants.TaskPaymentOrphanAlert
)

// OrderNotifyPayload 订单消息通知任务载荷
type OrderNotifyPayload struct {
	UserID  uint                   `json:"user_id"`
	Scene   string                 `json:"scene"`
	OrderID uint                   `json:"order_id"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// PaymentOrphanAlertPayload 孤儿支付告警载荷
type PaymentOrphanAlertPayload struct {
	PaymentID     uint   `json:"payment_id"`
	OrderID       uint   `json:"order_id"`
	OrderNo       string `json:"order_no"`
	OrderStatus   string `json:"order_status"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
}

// NewOrderNotifyTask 创建订单消息通知任务
func NewOrderNotifyTask(payload OrderNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderNotify, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewPaymentOrphanAlertTask 创建孤儿支付告警任务
func NewPaymentOrphanAlertTask(payload PaymentOrphanAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentOrphanAlert, body), nil
}
