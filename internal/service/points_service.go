package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lingxian-next/internal/cache"
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/metrics"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"

	"gorm.io/gorm"
)

const signDateLayout = "2006-01-02"

// PointsService 积分查询与签到
type PointsService struct {
	pointsRepo repository.PointsRepository
	userRepo   repository.UserRepository
	ledger     *PointsLedger
	metrics    *metrics.Collector
}

// NewPointsService 创建积分服务
func NewPointsService(pointsRepo repository.PointsRepository, userRepo repository.UserRepository, ledger *PointsLedger, collector *metrics.Collector) *PointsService {
	return &PointsService{
		pointsRepo: pointsRepo,
		userRepo:   userRepo,
		ledger:     ledger,
		metrics:    collector,
	}
}

// PointsSummary 积分汇总
type PointsSummary struct {
	TotalPoints     int   `json:"total_points"`
	EarnedPoints    int64 `json:"earned_points"`
	SpentPoints     int64 `json:"spent_points"`
	SignCount       int64 `json:"sign_count"`
	ConsecutiveDays int   `json:"consecutive_days"`
	SignedToday     bool  `json:"signed_today"`
}

// SignInResult 签到结果
type SignInResult struct {
	SignDate        string `json:"sign_date"`
	PointsGained    int    `json:"points_gained"`
	TotalPoints     int    `json:"total_points"`
	ConsecutiveDays int    `json:"consecutive_days"`
}

// GetPointsSummary 积分汇总，优先读取 Redis 快照
func (s *PointsService) GetPointsSummary(ctx context.Context, userID uint) (*PointsSummary, error) {
	today := time.Now().Format(signDateLayout)
	snapshot, hit, err := cache.GetPointsSummary(ctx, userID)
	if err != nil {
		logger.Warnw("points_summary_cache_get_failed", "user_id", userID, "error", err)
	}
	if hit && snapshot != nil && snapshot.SnapshotDate == today {
		s.metrics.CacheLookup(cache.PointsSummaryKeyPrefix, true)
		return &PointsSummary{
			TotalPoints:     snapshot.TotalPoints,
			EarnedPoints:    snapshot.EarnedPoints,
			SpentPoints:     snapshot.SpentPoints,
			SignCount:       snapshot.SignCount,
			ConsecutiveDays: snapshot.ConsecutiveDays,
			SignedToday:     snapshot.SignedToday,
		}, nil
	}
	if cache.Enabled() {
		s.metrics.CacheLookup(cache.PointsSummaryKeyPrefix, false)
	}

	summary, err := s.loadSummary(userID, today)
	if err != nil {
		return nil, err
	}
	if err := cache.SetPointsSummary(ctx, &cache.PointsSummarySnapshot{
		UserID:          userID,
		TotalPoints:     summary.TotalPoints,
		EarnedPoints:    summary.EarnedPoints,
		SpentPoints:     summary.SpentPoints,
		SignCount:       summary.SignCount,
		ConsecutiveDays: summary.ConsecutiveDays,
		SignedToday:     summary.SignedToday,
		SnapshotDate:    today,
	}); err != nil {
		logger.Warnw("points_summary_cache_set_failed", "user_id", userID, "error", err)
	}
	return summary, nil
}

func (s *PointsService) loadSummary(userID uint, today string) (*PointsSummary, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	totals, err := s.pointsRepo.SumByUser(userID)
	if err != nil {
		return nil, err
	}
	signCount, err := s.pointsRepo.CountSignIns(userID)
	if err != nil {
		return nil, err
	}
	dates, err := s.pointsRepo.ListRecentSignDates(userID, 0)
	if err != nil {
		return nil, err
	}
	return &PointsSummary{
		TotalPoints:     user.TotalPoints,
		EarnedPoints:    totals.Earned,
		SpentPoints:     totals.Spent,
		SignCount:       signCount,
		ConsecutiveDays: consecutiveSignDays(dates, today),
		SignedToday:     len(dates) > 0 && dates[0] == today,
	}, nil
}

// ListPointsRecords 积分流水，可按收支类型过滤
func (s *PointsService) ListPointsRecords(userID uint, changeType string, page, pageSize int) ([]models.PointsRecord, int64, error) {
	changeType = strings.TrimSpace(changeType)
	if changeType != "" && changeType != constants.PointsChangeEarn && changeType != constants.PointsChangeSpend {
		return nil, 0, ErrInvalidChangeType
	}
	return s.pointsRepo.ListRecords(repository.PointsRecordListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     userID,
		ChangeType: changeType,
	})
}

// SignIn 每日签到，按 sign_in 规则发放积分
func (s *PointsService) SignIn(ctx context.Context, userID uint) (*SignInResult, error) {
	now := time.Now()
	today := now.Format(signDateLayout)
	result := &SignInResult{SignDate: today}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		pointsRepo := s.pointsRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)
		user, err := userRepo.GetByID(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		existing, err := pointsRepo.GetSignIn(userID, today)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadySignedIn
		}
		rule, err := pointsRepo.GetRule(constants.PointRuleSignIn)
		if err != nil {
			return err
		}
		if rule != nil && rule.Points > 0 {
			result.PointsGained = rule.Points
		}
		record := &models.SignInRecord{
			UserID:       userID,
			SignDate:     today,
			PointsGained: result.PointsGained,
			CreatedAt:    now,
		}
		if err := pointsRepo.CreateSignIn(record); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySignedIn
			}
			return err
		}
		result.TotalPoints = user.TotalPoints
		if result.PointsGained > 0 {
			recordID := record.ID
			if _, err := s.ledger.Accrue(tx, PointsChange{
				UserID:      userID,
				Points:      result.PointsGained,
				SourceType:  constants.PointsSourceSignIn,
				SourceID:    &recordID,
				Description: "每日签到",
			}); err != nil {
				return err
			}
			result.TotalPoints += result.PointsGained
		}
		if err := userRepo.TouchSignIn(userID, now); err != nil {
			return err
		}
		dates, err := pointsRepo.ListRecentSignDates(userID, 0)
		if err != nil {
			return err
		}
		result.ConsecutiveDays = consecutiveSignDays(dates, today)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PointsChanged(constants.PointsChangeEarn, constants.PointsSourceSignIn, result.PointsGained)
	InvalidatePointsSummary(ctx, userID)
	logger.Infow("points_sign_in",
		"user_id", userID,
		"sign_date", today,
		"points_gained", result.PointsGained,
	)
	return result, nil
}

// InvalidatePointsSummary 积分变动后清理汇总缓存
func InvalidatePointsSummary(ctx context.Context, userID uint) {
	if err := cache.DelPointsSummary(ctx, userID); err != nil {
		logger.Warnw("points_summary_cache_del_failed", "user_id", userID, "error", err)
	}
}

// consecutiveSignDays 从今天（今天未签则从昨天）往前数连续签到天数，dates 须倒序
func consecutiveSignDays(dates []string, today string) int {
	if len(dates) == 0 {
		return 0
	}
	expected, err := time.Parse(signDateLayout, today)
	if err != nil {
		return 0
	}
	if dates[0] != today {
		expected = expected.AddDate(0, 0, -1)
	}
	count := 0
	for _, date := range dates {
		if date != expected.Format(signDateLayout) {
			break
		}
		count++
		expected = expected.AddDate(0, 0, -1)
	}
	return count
}
