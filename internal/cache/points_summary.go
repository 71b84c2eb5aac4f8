package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	// PointsSummaryKeyPrefix 积分汇总缓存 key 前缀
	PointsSummaryKeyPrefix = "points_summary"
	pointsSummaryCacheTTL  = 5 * time.Minute
)

// PointsSummarySnapshot 积分汇总缓存快照
type PointsSummarySnapshot struct {
	UserID          uint   `json:"user_id"`
	TotalPoints     int    `json:"total_points"`
	EarnedPoints    int64  `json:"earned_points"`
	SpentPoints     int64  `json:"spent_points"`
	SignCount       int64  `json:"sign_count"`
	ConsecutiveDays int    `json:"consecutive_days"`
	SignedToday     bool   `json:"signed_today"`
	SnapshotDate    string `json:"snapshot_date"`
}

func pointsSummaryKey(userID uint) string {
	return fmt.Sprintf("%s:%d", PointsSummaryKeyPrefix, userID)
}

// GetPointsSummary 获取积分汇总快照
func GetPointsSummary(ctx context.Context, userID uint) (*PointsSummarySnapshot, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var snapshot PointsSummarySnapshot
	hit, err := GetJSON(ctx, pointsSummaryKey(userID), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetPointsSummary 写入积分汇总快照
func SetPointsSummary(ctx context.Context, snapshot *PointsSummarySnapshot) error {
	if snapshot == nil || snapshot.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, pointsSummaryKey(snapshot.UserID), snapshot, pointsSummaryCacheTTL)
}

// DelPointsSummary 积分变动后删除快照
func DelPointsSummary(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, pointsSummaryKey(userID))
}
