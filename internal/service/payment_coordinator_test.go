package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/payment"
	"github.com/lingxian-next/internal/payment/mockpay"

	"github.com/shopspring/decimal"
)

func TestInitiateAndSimulateSuccess(t *testing.T) {
	f := newServiceFixture(t, "payment_mock_success")
	user := f.seedUser(t, 0)
	order, _, _ := f.createPickupOrder(t, user.ID)
	ctx := context.Background()

	initiated, err := f.coordinator.Initiate(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	created := initiated.Payment
	if created.Status != constants.PaymentStatusPending || created.Channel != payment.GatewayMock {
		t.Fatalf("unexpected payment: %+v", created)
	}
	if !strings.HasPrefix(created.PaymentNo, "P") || len(created.PaymentNo) != 25 {
		t.Fatalf("unexpected payment no: %s", created.PaymentNo)
	}
	if created.PrepayID != "mock_prepay_"+created.PaymentNo {
		t.Fatalf("unexpected prepay id: %s", created.PrepayID)
	}
	if !created.Amount.Decimal.Equal(order.FinalAmount.Decimal) {
		t.Fatalf("payment amount %s != order final %s", created.Amount.String(), order.FinalAmount.String())
	}
	if initiated.PayParams["package"] != "prepay_id="+created.PrepayID {
		t.Fatalf("unexpected pay params: %+v", initiated.PayParams)
	}

	again, err := f.coordinator.Initiate(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("second initiate failed: %v", err)
	}
	if again.Payment.ID != created.ID || again.Payment.PaymentNo != created.PaymentNo {
		t.Fatalf("initiate must reuse the single payment, got %+v", again.Payment)
	}

	outcome, err := f.coordinator.SimulateSuccess(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("simulate success failed: %v", err)
	}
	if outcome.Outcome != PaymentOutcomePaid {
		t.Fatalf("expected paid, got %s", outcome.Outcome)
	}
	if outcome.Payment.TransactionID != mockpay.TransactionIDFor(created.PrepayID) {
		t.Fatalf("unexpected transaction id: %s", outcome.Payment.TransactionID)
	}
	stored := f.reloadOrder(t, order.ID)
	if stored.Status != constants.OrderStatusPaid || stored.PaidAt == nil {
		t.Fatalf("expected paid order, got %+v", stored)
	}

	if _, err := f.coordinator.Initiate(ctx, user.ID, order.ID); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected already paid, got %v", err)
	}
}

func TestSimulateSuccessDisabled(t *testing.T) {
	f := newServiceFixtureWith(t, "payment_mock_disabled", fixtureOptions{gateway: mockpay.New()})
	user := f.seedUser(t, 0)
	order, _, _ := f.createPickupOrder(t, user.ID)
	if _, err := f.coordinator.Initiate(context.Background(), user.ID, order.ID); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if f.coordinator.MockEnabled() {
		t.Fatalf("mock seam must be off")
	}
	if _, err := f.coordinator.SimulateSuccess(context.Background(), user.ID, order.ID); !errors.Is(err, ErrMockPaymentOff) {
		t.Fatalf("expected mock payment off, got %v", err)
	}
}

func TestHandleSuccessIsIdempotent(t *testing.T) {
	f := newServiceFixture(t, "payment_idempotent")
	user := f.seedUser(t, 0)
	order, _, _ := f.createPickupOrder(t, user.ID)
	paid := f.payOrder(t, user.ID, order.ID)
	ctx := context.Background()

	before := f.reloadOrder(t, order.ID)
	logsBefore := f.countLogs(t, order.ID)
	var messagesBefore int64
	f.db.Model(&models.UserMessage{}).Count(&messagesBefore)

	for i := 0; i < 3; i++ {
		outcome, err := f.coordinator.HandleSuccess(ctx, paid.ID, paid.TransactionID, constants.OperatorPaymentCallback)
		if err != nil {
			t.Fatalf("duplicate success failed: %v", err)
		}
		if outcome.Outcome != PaymentOutcomeDuplicate {
			t.Fatalf("expected duplicate, got %s", outcome.Outcome)
		}
	}
	after := f.reloadOrder(t, order.ID)
	if after.Version != before.Version || after.Status != constants.OrderStatusPaid {
		t.Fatalf("duplicate success changed the order: %+v", after)
	}
	if got := f.countLogs(t, order.ID); got != logsBefore {
		t.Fatalf("duplicate success wrote logs: %d -> %d", logsBefore, got)
	}
	var messagesAfter int64
	f.db.Model(&models.UserMessage{}).Count(&messagesAfter)
	if messagesAfter != messagesBefore {
		t.Fatalf("duplicate success sent notifications")
	}

	if _, err := f.coordinator.HandleSuccess(ctx, paid.ID, "", constants.OperatorPaymentCallback); !errors.Is(err, ErrPaymentConflict) {
		t.Fatalf("empty transaction id must be rejected, got %v", err)
	}
}

func TestConflictingTransactionIsFlaggedForReconcile(t *testing.T) {
	f := newServiceFixture(t, "payment_txn_conflict")
	user := f.seedUser(t, 0)
	order, _, _ := f.createPickupOrder(t, user.ID)
	paid := f.payOrder(t, user.ID, order.ID)
	ctx := context.Background()
	versionBefore := f.reloadOrder(t, order.ID).Version

	notification, err := mockpay.BuildNotification(order.OrderNo, paid.PaymentNo, "wx_second_charge", payment.NotificationSuccess, paid.Amount.String())
	if err != nil {
		t.Fatalf("build notification failed: %v", err)
	}
	outcome, err := f.coordinator.HandleCallback(ctx, notification)
	if err != nil {
		t.Fatalf("conflicting callback must be acknowledged, got %v", err)
	}
	if outcome.Outcome != PaymentOutcomeConflict {
		t.Fatalf("expected conflict outcome, got %s", outcome.Outcome)
	}
	stored := f.reloadPayment(t, order.ID)
	if stored.TransactionID != paid.TransactionID || stored.Status != constants.PaymentStatusPaid {
		t.Fatalf("recorded transaction must be kept: %+v", stored)
	}
	if stored.ReconcileStatus != constants.PaymentReconcileConflict || !strings.Contains(stored.ReconcileRemark, "wx_second_charge") {
		t.Fatalf("unexpected reconcile flag: %s %s", stored.ReconcileStatus, stored.ReconcileRemark)
	}
	if got := f.reloadOrder(t, order.ID); got.Status != constants.OrderStatusPaid || got.Version != versionBefore {
		t.Fatalf("order must stay untouched, got %+v", got)
	}

	// 重复投递同一通知仍然只是确认
	again, err := f.coordinator.HandleCallback(ctx, notification)
	if err != nil || again.Outcome != PaymentOutcomeConflict {
		t.Fatalf("redelivered conflict: %v %v", again, err)
	}

	orphans, total, err := f.orders.ListOrphanedPayments(1, 10)
	if err != nil || total != 1 || orphans[0].ID != stored.ID {
		t.Fatalf("expected conflict listed, got %d (%v)", total, err)
	}
	resolved, err := f.coordinator.Reconcile(ctx, 5, stored.ID, "")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if resolved.Status != constants.PaymentStatusPaid || resolved.ReconcileStatus != constants.PaymentReconcileResolved {
		t.Fatalf("conflict reconcile must only close the case: %+v", resolved)
	}
	if got := f.reloadOrder(t, order.ID).Status; got != constants.OrderStatusPaid {
		t.Fatalf("order must stay paid, got %s", got)
	}
}

func TestHandleNotificationThroughMockGateway(t *testing.T) {
	f := newServiceFixture(t, "payment_notification")
	user := f.seedUser(t, 0)
	order, _, _ := f.createPickupOrder(t, user.ID)
	ctx := context.Background()
	initiated, err := f.coordinator.Initiate(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	mismatch := []byte(`{"payment_no":"` + initiated.Payment.PaymentNo + `","transaction_id":"wx_1","status":"success","amount":"1.00"}`)
	if _, err := f.coordinator.HandleNotification(ctx, nil, mismatch); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}

	failed := []byte(`{"payment_no":"` + initiated.Payment.PaymentNo + `","status":"failed"}`)
	outcome, err := f.coordinator.HandleNotification(ctx, nil, failed)
	if err != nil {
		t.Fatalf("failed notification error: %v", err)
	}
	if outcome.Outcome != PaymentOutcomeFailed || f.reloadPayment(t, order.ID).Status != constants.PaymentStatusFailed {
		t.Fatalf("expected failed payment, got %s", outcome.Outcome)
	}

	success := []byte(`{"order_no":"` + order.OrderNo + `","transaction_id":"wx_2","status":"success","amount":"23.00"}`)
	outcome, err = f.coordinator.HandleNotification(ctx, nil, success)
	if err != nil {
		t.Fatalf("success notification error: %v", err)
	}
	if outcome.Outcome != PaymentOutcomePaid {
		t.Fatalf("a failed payment may still succeed, got %s", outcome.Outcome)
	}

	outcome, err = f.coordinator.HandleNotification(ctx, nil, failed)
	if err != nil || outcome.Outcome != PaymentOutcomeIgnored {
		t.Fatalf("late failure must be ignored, got %v %v", outcome, err)
	}

	unknown := []byte(`{"payment_no":"P_missing","transaction_id":"wx_3","status":"success"}`)
	if _, err := f.coordinator.HandleNotification(ctx, nil, unknown); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected payment not found, got %v", err)
	}
	if _, err := f.coordinator.HandleNotification(ctx, nil, []byte("not json")); !errors.Is(err, payment.ErrNotificationInvalid) {
		t.Fatalf("expected invalid notification, got %v", err)
	}
}

func TestOrphanedSuccessAfterCancel(t *testing.T) {
	f := newServiceFixture(t, "payment_orphaned")
	user := f.seedUser(t, 0)
	order, productA, _ := f.createPickupOrder(t, user.ID)
	ctx := context.Background()
	initiated, err := f.coordinator.Initiate(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if _, err := f.orders.CancelOrder(ctx, user.ID, order.ID, "超时"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	outcome, err := f.coordinator.HandleSuccess(ctx, initiated.Payment.ID, "wx_late", constants.OperatorPaymentCallback)
	if err != nil {
		t.Fatalf("late success failed: %v", err)
	}
	if outcome.Outcome != PaymentOutcomeOrphaned {
		t.Fatalf("expected orphaned, got %s", outcome.Outcome)
	}
	stored := f.reloadPayment(t, order.ID)
	if stored.Status != constants.PaymentStatusPaid || stored.ReconcileStatus != constants.PaymentReconcileOrphaned {
		t.Fatalf("unexpected orphaned payment: %+v", stored)
	}
	if got := f.reloadOrder(t, order.ID).Status; got != constants.OrderStatusCancelled {
		t.Fatalf("cancelled order must stay cancelled, got %s", got)
	}
	if got := f.productStock(t, productA.ID); got != 10 {
		t.Fatalf("expected stock 10, got %d", got)
	}
	var rejected int64
	f.db.Model(&models.OrderLog{}).Where("order_id = ? AND rejected = ?", order.ID, true).Count(&rejected)
	if rejected != 1 {
		t.Fatalf("expected 1 rejected log, got %d", rejected)
	}

	orphans, total, err := f.orders.ListOrphanedPayments(1, 10)
	if err != nil || total != 1 || orphans[0].ID != stored.ID {
		t.Fatalf("expected orphan listed, got %d (%v)", total, err)
	}

	reconciled, err := f.coordinator.Reconcile(ctx, 5, stored.ID, "")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if reconciled.Status != constants.PaymentStatusRefunding || reconciled.ReconcileStatus != constants.PaymentReconcileResolved {
		t.Fatalf("unexpected reconciled payment: %+v", reconciled)
	}
	if _, err := f.coordinator.Reconcile(ctx, 5, stored.ID, ""); !errors.Is(err, ErrNotOrphaned) {
		t.Fatalf("expected not orphaned, got %v", err)
	}

	refund, err := f.coordinator.SubmitRefund(ctx, 5, stored.ID)
	if err != nil {
		t.Fatalf("submit refund failed: %v", err)
	}
	if refund.RefundID != "mock_refund_R"+stored.PaymentNo {
		t.Fatalf("unexpected refund id: %s", refund.RefundID)
	}
	if remark := f.reloadPayment(t, order.ID).ReconcileRemark; !strings.Contains(remark, "退款已提交") {
		t.Fatalf("unexpected reconcile remark: %s", remark)
	}
}

func TestZeroAmountOrderSkipsGateway(t *testing.T) {
	f := newServiceFixture(t, "payment_zero_amount")
	user := f.seedUser(t, 1000)
	product := f.seedProduct(t, "试吃装", "5.00", 3)
	point := f.seedPickupPoint(t)
	input := pickupInput(point.ID, PricingItem{ProductID: product.ID, Quantity: 1})
	input.PointsUsed = 500
	order, err := f.orders.CreateOrder(context.Background(), user.ID, input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.FinalAmount.Decimal.IsZero() {
		t.Fatalf("expected zero final amount, got %s", order.FinalAmount.String())
	}

	initiated, err := f.coordinator.Initiate(context.Background(), user.ID, order.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if initiated.Payment.Status != constants.PaymentStatusPaid || !strings.HasPrefix(initiated.Payment.PrepayID, "free_") {
		t.Fatalf("unexpected free payment: %+v", initiated.Payment)
	}
	if got := f.reloadOrder(t, order.ID).Status; got != constants.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", got)
	}
}

type refundCountingGateway struct {
	payment.Gateway
	refunds int
}

func (g *refundCountingGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	g.refunds++
	return g.Gateway.Refund(ctx, req)
}

func TestSubmitRefundSkipsGatewayForFreeOrder(t *testing.T) {
	gateway := &refundCountingGateway{Gateway: mockpay.New()}
	f := newServiceFixtureWith(t, "payment_free_refund", fixtureOptions{gateway: gateway, mockAutoSuccess: true})
	user := f.seedUser(t, 1000)
	product := f.seedProduct(t, "试吃装", "5.00", 3)
	point := f.seedPickupPoint(t)
	input := pickupInput(point.ID, PricingItem{ProductID: product.ID, Quantity: 1})
	input.PointsUsed = 500
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, user.ID, input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	initiated, err := f.coordinator.Initiate(ctx, user.ID, order.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if _, err := f.orders.RequestRefund(ctx, user.ID, order.ID, decimal.Zero, "不想要了"); err != nil {
		t.Fatalf("request refund failed: %v", err)
	}

	result, err := f.coordinator.SubmitRefund(ctx, 5, initiated.Payment.ID)
	if err != nil {
		t.Fatalf("submit refund failed: %v", err)
	}
	if gateway.refunds != 0 {
		t.Fatalf("free order must not reach the gateway, got %d calls", gateway.refunds)
	}
	if result.RefundID != "R"+initiated.Payment.PaymentNo || result.Status != freeRefundStatus {
		t.Fatalf("unexpected refund result: %+v", result)
	}
	stored := f.reloadPayment(t, order.ID)
	if stored.Status != constants.PaymentStatusRefunding || !strings.Contains(stored.ReconcileRemark, "免支付") {
		t.Fatalf("unexpected payment after skipped refund: %+v", stored)
	}
	if _, err := f.orders.AdminConfirmRefund(ctx, 5, order.ID); err != nil {
		t.Fatalf("confirm refund failed: %v", err)
	}
}

func TestInitiateRejectsNonPendingOrder(t *testing.T) {
	f := newServiceFixture(t, "payment_initiate_cancelled")
	user := f.seedUser(t, 0)
	order, _, _ := f.createPickupOrder(t, user.ID)
	if _, err := f.orders.CancelOrder(context.Background(), user.ID, order.ID, ""); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := f.coordinator.Initiate(context.Background(), user.ID, order.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := f.coordinator.Initiate(context.Background(), user.ID+99, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveRefundAmount(t *testing.T) {
	paid := decimal.RequireFromString("23.00")
	cases := []struct {
		requested string
		want      error
	}{
		{"0", nil},
		{"23", nil},
		{"23.001", nil},
		{"10", ErrPartialRefundUnsupported},
		{"23.01", ErrRefundAmountInvalid},
		{"-1", ErrRefundAmountInvalid},
	}
	for _, tc := range cases {
		amount, err := resolveRefundAmount(paid, decimal.RequireFromString(tc.requested))
		if !errors.Is(err, tc.want) {
			t.Fatalf("requested %s: expected %v, got %v", tc.requested, tc.want, err)
		}
		if err == nil && !amount.Equal(paid) {
			t.Fatalf("requested %s: expected full amount, got %s", tc.requested, amount.String())
		}
	}
}

func TestGeneratePaymentNoUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		no := generatePaymentNo()
		if seen[no] {
			t.Fatalf("duplicate payment no: %s", no)
		}
		seen[no] = true
	}
	if got := adminOperator(12); got != "管理员#12" {
		t.Fatalf("unexpected operator: %s", got)
	}
}
