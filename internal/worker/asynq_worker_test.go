package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/provider"
	"github.com/lingxian-next/internal/queue"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerConsumer(t *testing.T) *Consumer {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	t.Cleanup(func() { _ = sqlDB.Close() })

	container, err := provider.NewContainer(&config.Config{
		Payment: config.PaymentConfig{Provider: "mock"},
		Order:   config.OrderConfig{PaymentExpireMinutes: 15},
	})
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	return NewConsumer(container)
}

func newTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

func TestHandleOrderNotifyWritesMessage(t *testing.T) {
	consumer := setupWorkerConsumer(t)
	task := newTask(t, queue.TaskOrderNotify, queue.OrderNotifyPayload{
		UserID:  7,
		Scene:   constants.NotifySceneOrderCompleted,
		OrderID: 3,
		Data:    map[string]interface{}{"order_no": "202603101200001111"},
	})
	if err := consumer.handleOrderNotify(context.Background(), task); err != nil {
		t.Fatalf("handle notify failed: %v", err)
	}
	messages, total, err := consumer.MessageRepo.ListByUser(7, 1, 10)
	if err != nil || total != 1 {
		t.Fatalf("expected one message, got %d (%v)", total, err)
	}
	if messages[0].Content != "您的订单202603101200001111已完成，感谢您的购买" {
		t.Fatalf("unexpected content: %s", messages[0].Content)
	}

	bad := asynq.NewTask(queue.TaskOrderNotify, []byte("{"))
	if err := consumer.handleOrderNotify(context.Background(), bad); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestHandleOrderTimeoutCancel(t *testing.T) {
	consumer := setupWorkerConsumer(t)
	expired := time.Now().Add(-time.Minute)
	order := &models.Order{
		OrderNo:      "202603101200002222",
		UserID:       1,
		Status:       constants.OrderStatusPending,
		TotalAmount:  models.MustMoney("8.00"),
		FinalAmount:  models.MustMoney("8.00"),
		DeliveryType: constants.DeliveryTypePickup,
		ExpiresAt:    &expired,
	}
	if err := models.DB.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	task := newTask(t, queue.TaskOrderTimeoutCancel, queue.OrderTimeoutCancelPayload{OrderID: order.ID})
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("handle timeout cancel failed: %v", err)
	}
	var stored models.Order
	if err := models.DB.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusCancelled || stored.CancelReason != "支付超时自动取消" {
		t.Fatalf("unexpected order after timeout: status=%s reason=%s", stored.Status, stored.CancelReason)
	}

	missing := newTask(t, queue.TaskOrderTimeoutCancel, queue.OrderTimeoutCancelPayload{OrderID: 9999})
	if err := consumer.handleOrderTimeoutCancel(context.Background(), missing); err != nil {
		t.Fatalf("missing order must be skipped, got %v", err)
	}
}

func TestHandlePaymentOrphanAlert(t *testing.T) {
	consumer := setupWorkerConsumer(t)
	task := newTask(t, queue.TaskPaymentOrphanAlert, queue.PaymentOrphanAlertPayload{PaymentID: 1, OrderID: 2})
	if err := consumer.handlePaymentOrphanAlert(context.Background(), task); err != nil {
		t.Fatalf("orphan alert failed: %v", err)
	}
}

func TestSweepInterval(t *testing.T) {
	if got := sweepInterval(config.OrderConfig{}); got != time.Minute {
		t.Fatalf("expected default interval, got %s", got)
	}
	if got := sweepInterval(config.OrderConfig{SweepIntervalSeconds: 5}); got != 5*time.Second {
		t.Fatalf("expected 5s, got %s", got)
	}
}
