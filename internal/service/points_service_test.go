package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestSignInOncePerDay(t *testing.T) {
	f := newServiceFixture(t, "points_sign_in")
	f.seedRule(t, constants.PointRuleSignIn, 10)
	user := f.seedUser(t, 0)
	ctx := context.Background()

	result, err := f.points.SignIn(ctx, user.ID)
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if result.PointsGained != 10 || result.TotalPoints != 10 || result.ConsecutiveDays != 1 {
		t.Fatalf("unexpected sign in result: %+v", result)
	}
	if _, err := f.points.SignIn(ctx, user.ID); !errors.Is(err, ErrAlreadySignedIn) {
		t.Fatalf("expected already signed in, got %v", err)
	}

	summary, err := f.points.GetPointsSummary(ctx, user.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.TotalPoints != 10 || summary.EarnedPoints != 10 || summary.SpentPoints != 0 {
		t.Fatalf("unexpected summary totals: %+v", summary)
	}
	if summary.SignCount != 1 || !summary.SignedToday || summary.ConsecutiveDays != 1 {
		t.Fatalf("unexpected summary sign info: %+v", summary)
	}

	stored, err := f.userRepo.GetByID(user.ID)
	if err != nil || stored.LastSignInAt == nil {
		t.Fatalf("expected last_sign_in_at set, got %v", err)
	}
}

func TestSignInWithoutRuleRecordsZeroPoints(t *testing.T) {
	f := newServiceFixture(t, "points_sign_in_no_rule")
	user := f.seedUser(t, 3)

	result, err := f.points.SignIn(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if result.PointsGained != 0 || result.TotalPoints != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	records, total, _ := f.points.ListPointsRecords(user.ID, "", 1, 10)
	if total != 0 || len(records) != 0 {
		t.Fatalf("expected no points records, got %d", total)
	}
	if _, err := f.points.SignIn(context.Background(), 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestListPointsRecordsFilter(t *testing.T) {
	f := newServiceFixture(t, "points_records_filter")
	user := f.seedUser(t, 0)
	ledger := NewPointsLedger(f.pointsRepo, f.userRepo)

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.Accrue(tx, PointsChange{UserID: user.ID, Points: 50, SourceType: constants.PointsSourceActivity}); err != nil {
			return err
		}
		_, err := ledger.Spend(tx, PointsChange{UserID: user.ID, Points: 20, SourceType: constants.PointsSourceOrderDeduct})
		return err
	})
	if err != nil {
		t.Fatalf("seed points failed: %v", err)
	}

	earned, total, err := f.points.ListPointsRecords(user.ID, constants.PointsChangeEarn, 1, 10)
	if err != nil || total != 1 || earned[0].Points != 50 {
		t.Fatalf("unexpected earn records: %d (%v)", total, err)
	}
	all, total, err := f.points.ListPointsRecords(user.ID, "", 1, 10)
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("unexpected records: %d (%v)", total, err)
	}
	if _, _, err := f.points.ListPointsRecords(user.ID, "bonus", 1, 10); !errors.Is(err, ErrInvalidChangeType) {
		t.Fatalf("expected invalid change type, got %v", err)
	}
	if got := f.userPoints(t, user.ID); got != 30 {
		t.Fatalf("expected balance 30, got %d", got)
	}
}

func TestPointsLedgerGuards(t *testing.T) {
	f := newServiceFixture(t, "points_ledger_guards")
	user := f.seedUser(t, 10)
	ledger := NewPointsLedger(f.pointsRepo, f.userRepo)

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Spend(tx, PointsChange{UserID: user.ID, Points: 11, SourceType: constants.PointsSourceOrderDeduct})
		return err
	})
	if !errors.Is(err, ErrPointsInsufficient) {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.Accrue(tx, PointsChange{UserID: user.ID, Points: 0, SourceType: constants.PointsSourceActivity})
		return err
	})
	if !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("expected invalid points, got %v", err)
	}
	if got := f.userPoints(t, user.ID); got != 10 {
		t.Fatalf("balance must be unchanged, got %d", got)
	}
	var records int64
	f.db.Model(&models.PointsRecord{}).Count(&records)
	if records != 0 {
		t.Fatalf("expected no records, got %d", records)
	}
}

func TestOrderCompletionPoints(t *testing.T) {
	cases := []struct {
		amount  string
		percent int
		want    int
	}{
		{"23.00", 5, 1},
		{"19.99", 5, 0},
		{"100.00", 5, 5},
		{"100.00", 0, 0},
		{"0", 5, 0},
	}
	for _, tc := range cases {
		if got := OrderCompletionPoints(decimal.RequireFromString(tc.amount), tc.percent); got != tc.want {
			t.Fatalf("OrderCompletionPoints(%s, %d) = %d, want %d", tc.amount, tc.percent, got, tc.want)
		}
	}
}

func TestConsecutiveSignDays(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local).Format(signDateLayout)
	cases := []struct {
		dates []string
		want  int
	}{
		{nil, 0},
		{[]string{"2026-03-10", "2026-03-09", "2026-03-08", "2026-03-06"}, 3},
		{[]string{"2026-03-09", "2026-03-08"}, 2},
		{[]string{"2026-03-07"}, 0},
		{[]string{"2026-03-10", "2026-03-08"}, 1},
	}
	for _, tc := range cases {
		if got := consecutiveSignDays(tc.dates, today); got != tc.want {
			t.Fatalf("consecutiveSignDays(%v) = %d, want %d", tc.dates, got, tc.want)
		}
	}
}
