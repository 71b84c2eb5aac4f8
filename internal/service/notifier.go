package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/queue"
	"github.com/lingxian-next/internal/repository"
)

// MessageNotifier 订单消息通知，失败由调用方记录后忽略
type MessageNotifier interface {
	Notify(ctx context.Context, userID uint, scene string, payload map[string]interface{}) error
}

// orderMessageTemplates 各场景站内消息模板
var orderMessageTemplates = map[string]struct {
	title   string
	content string
}{
	constants.NotifySceneOrderCreated:   {title: "订单已创建", content: "您的订单{order_no}已创建，请及时支付"},
	constants.NotifySceneOrderPaid:      {title: "支付成功", content: "您的订单{order_no}支付成功，金额¥{amount}"},
	constants.NotifySceneOrderShipped:   {title: "订单已发货", content: "您的订单{order_no}已发货"},
	constants.NotifySceneOrderCompleted: {title: "订单已完成", content: "您的订单{order_no}已完成，感谢您的购买"},
}

// RenderOrderMessage 按场景渲染站内消息标题与正文
func RenderOrderMessage(scene string, payload map[string]interface{}) (string, string, bool) {
	tpl, ok := orderMessageTemplates[scene]
	if !ok {
		return "", "", false
	}
	content := tpl.content
	for key, value := range payload {
		content = strings.ReplaceAll(content, "{"+key+"}", fmt.Sprint(value))
	}
	return tpl.title, content, true
}

// QueueNotifier 通过异步队列投递通知；队列未启用时直接写入站内消息
type QueueNotifier struct {
	client      *queue.Client
	messageRepo repository.MessageRepository
}

// NewQueueNotifier 创建队列通知器
func NewQueueNotifier(client *queue.Client, messageRepo repository.MessageRepository) *QueueNotifier {
	return &QueueNotifier{client: client, messageRepo: messageRepo}
}

// Notify 投递订单通知
func (n *QueueNotifier) Notify(ctx context.Context, userID uint, scene string, payload map[string]interface{}) error {
	if userID == 0 {
		return nil
	}
	orderID := payloadOrderID(payload)
	if n.client != nil && n.client.Enabled() {
		return n.client.EnqueueOrderNotify(queue.OrderNotifyPayload{
			UserID:  userID,
			Scene:   scene,
			OrderID: orderID,
			Data:    payload,
		})
	}
	if n.messageRepo == nil {
		return nil
	}
	return DeliverOrderMessage(n.messageRepo, queue.OrderNotifyPayload{
		UserID:  userID,
		Scene:   scene,
		OrderID: orderID,
		Data:    payload,
	})
}

// DeliverOrderMessage 写入站内消息，队列 worker 与同步降级共用
func DeliverOrderMessage(messageRepo repository.MessageRepository, payload queue.OrderNotifyPayload) error {
	title, content, ok := RenderOrderMessage(payload.Scene, payload.Data)
	if !ok {
		logger.Warnw("order_notify_unknown_scene", "scene", payload.Scene, "order_id", payload.OrderID)
		return nil
	}
	var orderID *uint
	if payload.OrderID != 0 {
		id := payload.OrderID
		orderID = &id
	}
	return messageRepo.Create(&models.UserMessage{
		UserID:    payload.UserID,
		Scene:     payload.Scene,
		Title:     title,
		Content:   content,
		OrderID:   orderID,
		Payload:   models.JSON(payload.Data),
		CreatedAt: time.Now(),
	})
}

func payloadOrderID(payload map[string]interface{}) uint {
	switch v := payload["order_id"].(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// orderNotifyPayload 通知载荷公共字段
func orderNotifyPayload(order *models.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"amount":   order.FinalAmount.String(),
		"status":   order.Status,
	}
}

// notifySceneForStatus 状态到通知场景的映射
func notifySceneForStatus(status string) (string, bool) {
	switch status {
	case constants.OrderStatusPaid:
		return constants.NotifySceneOrderPaid, true
	case constants.OrderStatusDelivering:
		return constants.NotifySceneOrderShipped, true
	case constants.OrderStatusCompleted:
		return constants.NotifySceneOrderCompleted, true
	}
	return "", false
}
