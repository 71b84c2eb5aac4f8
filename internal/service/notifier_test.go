package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/queue"

	"gorm.io/gorm"
)

func TestRenderOrderMessage(t *testing.T) {
	title, content, ok := RenderOrderMessage(constants.NotifySceneOrderPaid, map[string]interface{}{
		"order_no": "202603101200001234",
		"amount":   "21.00",
	})
	if !ok {
		t.Fatalf("expected paid scene to render")
	}
	if title != "支付成功" || content != "您的订单202603101200001234支付成功，金额¥21.00" {
		t.Fatalf("unexpected message: %s / %s", title, content)
	}
	if _, _, ok := RenderOrderMessage("order_lost", nil); ok {
		t.Fatalf("unknown scene must not render")
	}
}

func TestQueueNotifierFallsBackToMessage(t *testing.T) {
	f := newServiceFixture(t, "notifier_fallback")
	user := f.seedUser(t, 0)
	notifier := NewQueueNotifier(nil, f.messageRepo)

	err := notifier.Notify(context.Background(), user.ID, constants.NotifySceneOrderShipped, map[string]interface{}{
		"order_id": uint(42),
		"order_no": "202603101200009999",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	messages, total, err := f.messageRepo.ListByUser(user.ID, 1, 10)
	if err != nil || total != 1 {
		t.Fatalf("expected 1 message, got %d (%v)", total, err)
	}
	if messages[0].OrderID == nil || *messages[0].OrderID != 42 || messages[0].Title != "订单已发货" {
		t.Fatalf("unexpected message: %+v", messages[0])
	}

	if err := notifier.Notify(context.Background(), 0, constants.NotifySceneOrderShipped, nil); err != nil {
		t.Fatalf("anonymous notify must be ignored, got %v", err)
	}
	if err := DeliverOrderMessage(f.messageRepo, queue.OrderNotifyPayload{UserID: user.ID, Scene: "unknown"}); err != nil {
		t.Fatalf("unknown scene must be skipped, got %v", err)
	}
	if _, total, _ := f.messageRepo.ListByUser(user.ID, 1, 10); total != 1 {
		t.Fatalf("expected message count unchanged, got %d", total)
	}
}

func TestNotifySceneForStatus(t *testing.T) {
	if scene, ok := notifySceneForStatus(constants.OrderStatusDelivering); !ok || scene != constants.NotifySceneOrderShipped {
		t.Fatalf("unexpected scene for delivering: %s", scene)
	}
	if _, ok := notifySceneForStatus(constants.OrderStatusPreparing); ok {
		t.Fatalf("preparing has no notification")
	}
}

func TestStockLedgerReserveIsAllOrNothing(t *testing.T) {
	f := newServiceFixture(t, "stock_all_or_nothing")
	first := f.seedProduct(t, "苹果", "4.00", 5)
	second := f.seedProduct(t, "香蕉", "2.00", 1)

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		return f.stock.Reserve(tx, []StockLine{
			{ProductID: first.ID, Quantity: 3},
			{ProductID: second.ID, Quantity: 2},
		})
	})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.ProductID != second.ID {
		t.Fatalf("expected insufficient stock on second product, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock match")
	}
	if got := f.productStock(t, first.ID); got != 5 {
		t.Fatalf("first product must be untouched, got %d", got)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return f.stock.Reserve(tx, []StockLine{
			{ProductID: first.ID, Quantity: 2},
			{ProductID: first.ID, Quantity: 3},
		})
	})
	if err != nil {
		t.Fatalf("merged reserve failed: %v", err)
	}
	if got := f.productStock(t, first.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return f.stock.Release(tx, []StockLine{{ProductID: first.ID, Quantity: 5}})
	})
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if got := f.productStock(t, first.ID); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return f.stock.Reserve(tx, []StockLine{{ProductID: 9999, Quantity: 1}})
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}
