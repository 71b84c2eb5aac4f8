package mockpay

import (
	"context"
	"errors"
	"testing"

	"github.com/lingxian-next/internal/payment"

	"github.com/shopspring/decimal"
)

func TestCreatePrepayDeterministic(t *testing.T) {
	gw := New()
	result, err := gw.CreatePrepay(context.Background(), payment.PrepayRequest{
		PaymentNo: "P1001",
		OrderNo:   "202601010000001234",
		Amount:    decimal.RequireFromString("23.00"),
	})
	if err != nil {
		t.Fatalf("create prepay failed: %v", err)
	}
	if result.PrepayID != "mock_prepay_P1001" {
		t.Fatalf("unexpected prepay id: %s", result.PrepayID)
	}
	if result.PayParams["package"] != "prepay_id=mock_prepay_P1001" {
		t.Fatalf("unexpected package: %s", result.PayParams["package"])
	}
	if TransactionIDFor(result.PrepayID) != "mock_txn_mock_prepay_P1001" {
		t.Fatalf("unexpected transaction id: %s", TransactionIDFor(result.PrepayID))
	}
}

func TestCreatePrepayRequiresPaymentNo(t *testing.T) {
	_, err := New().CreatePrepay(context.Background(), payment.PrepayRequest{Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, payment.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got: %v", err)
	}
}

func TestParseNotification(t *testing.T) {
	gw := New()
	body := []byte(`{"order_no":"O1","transaction_id":"mock_txn_1","status":"SUCCESS","amount":"12.30"}`)
	notification, err := gw.ParseNotification(context.Background(), nil, body)
	if err != nil {
		t.Fatalf("parse notification failed: %v", err)
	}
	if notification.Status != payment.NotificationSuccess {
		t.Fatalf("unexpected status: %s", notification.Status)
	}
	if !notification.Amount.Equal(decimal.RequireFromString("12.3")) {
		t.Fatalf("unexpected amount: %s", notification.Amount.String())
	}

	if _, err := gw.ParseNotification(context.Background(), nil, []byte(`{"order_no":"O1","status":"success"}`)); !errors.Is(err, payment.ErrNotificationInvalid) {
		t.Fatalf("success without transaction id should be invalid, got: %v", err)
	}
	if _, err := gw.ParseNotification(context.Background(), nil, []byte(`not-json`)); !errors.Is(err, payment.ErrNotificationInvalid) {
		t.Fatalf("malformed body should be invalid, got: %v", err)
	}
	if _, err := gw.ParseNotification(context.Background(), nil, []byte(`{"order_no":"O1","status":"weird"}`)); !errors.Is(err, payment.ErrNotificationInvalid) {
		t.Fatalf("unknown status should be invalid, got: %v", err)
	}
}

func TestRefundRejectsZeroAmount(t *testing.T) {
	gw := New()
	if _, err := gw.Refund(context.Background(), payment.RefundRequest{RefundNo: "R1"}); err == nil {
		t.Fatalf("expected zero refund to fail")
	}
	result, err := gw.Refund(context.Background(), payment.RefundRequest{RefundNo: "R1", Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if result.RefundID != "mock_refund_R1" || result.Status != "SUCCESS" {
		t.Fatalf("unexpected refund result: %+v", result)
	}
}
