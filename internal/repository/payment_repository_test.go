package repository

import (
	"errors"
	"strings"
	"testing"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

func TestPaymentOrderIDIsUnique(t *testing.T) {
	db := setupRepositoryTestDB(t, "payment_repo_unique")
	repo := NewPaymentRepository(db)

	first := &models.Payment{
		OrderID:   11,
		PaymentNo: "PAY-UNIQUE-1",
		Channel:   constants.PaymentChannelMock,
		Amount:    models.MustMoney("23.00"),
		Status:    constants.PaymentStatusPending,
	}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	second := &models.Payment{
		OrderID:   11,
		PaymentNo: "PAY-UNIQUE-2",
		Channel:   constants.PaymentChannelMock,
		Amount:    models.MustMoney("23.00"),
		Status:    constants.PaymentStatusPending,
	}
	err := repo.Create(second)
	if err == nil {
		t.Fatalf("second payment for the same order should fail")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") {
		t.Fatalf("want unique violation got %v", err)
	}
}

func TestPaymentUpdateFromStatusIsConditional(t *testing.T) {
	db := setupRepositoryTestDB(t, "payment_repo_cas")
	repo := NewPaymentRepository(db)
	payment := &models.Payment{
		OrderID:   12,
		PaymentNo: "PAY-CAS-1",
		Channel:   constants.PaymentChannelMock,
		Amount:    models.MustMoney("10.00"),
		Status:    constants.PaymentStatusPending,
	}
	if err := repo.Create(payment); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	affected, err := repo.UpdateFromStatus(payment.ID, constants.PaymentStatusPending, map[string]interface{}{"status": constants.PaymentStatusPaid})
	if err != nil || affected != 1 {
		t.Fatalf("first update want 1 got %d err=%v", affected, err)
	}
	affected, err = repo.UpdateFromStatus(payment.ID, constants.PaymentStatusPending, map[string]interface{}{"status": constants.PaymentStatusFailed})
	if err != nil || affected != 0 {
		t.Fatalf("stale update want 0 got %d err=%v", affected, err)
	}
}

func TestPaymentListOrphaned(t *testing.T) {
	db := setupRepositoryTestDB(t, "payment_repo_orphan")
	repo := NewPaymentRepository(db)
	reconciles := []string{
		constants.PaymentReconcileOrphaned,
		constants.PaymentReconcileNone,
		constants.PaymentReconcileConflict,
		constants.PaymentReconcileResolved,
	}
	for i, reconcile := range reconciles {
		payment := &models.Payment{
			OrderID:         uint(20 + i),
			PaymentNo:       "PAY-ORPHAN-" + string(rune('A'+i)),
			Channel:         constants.PaymentChannelWechat,
			Amount:          models.MustMoney("5.00"),
			Status:          constants.PaymentStatusPaid,
			ReconcileStatus: reconcile,
		}
		if err := repo.Create(payment); err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}
	rows, total, err := repo.ListOrphaned(1, 20)
	if err != nil {
		t.Fatalf("list orphaned failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("orphaned payments want 2 got total=%d rows=%+v", total, rows)
	}
	// 默认按 id 倒序
	if rows[0].OrderID != 22 || rows[1].OrderID != 20 {
		t.Fatalf("orphaned payments want orders 22,20 got %d,%d", rows[0].OrderID, rows[1].OrderID)
	}
}
