package repository

import (
	"time"

	"gorm.io/gorm"
)

// OrderListFilter 订单列表过滤条件，零值字段不参与过滤
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

func (f OrderListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.UserID != 0 {
		db = db.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.OrderNo != "" {
		db = db.Where("order_no = ?", f.OrderNo)
	}
	if f.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		db = db.Where("created_at <= ?", *f.CreatedTo)
	}
	return db
}

// PaymentListFilter 支付列表过滤条件
type PaymentListFilter struct {
	Page            int
	PageSize        int
	Status          string
	ReconcileStatus string
	// ReconcileIn 多个对账状态，与 ReconcileStatus 同时给出时取交集
	ReconcileIn     []string
}

func (f PaymentListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.ReconcileStatus != "" {
		db = db.Where("reconcile_status = ?", f.ReconcileStatus)
	}
	if len(f.ReconcileIn) > 0 {
		db = db.Where("reconcile_status IN ?", f.ReconcileIn)
	}
	return db
}

// PointsRecordListFilter 积分流水过滤条件
type PointsRecordListFilter struct {
	Page       int
	PageSize   int
	UserID     uint
	ChangeType string
}

// scope 积分流水始终限定用户
func (f PointsRecordListFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("user_id = ?", f.UserID)
	if f.ChangeType != "" {
		db = db.Where("change_type = ?", f.ChangeType)
	}
	return db
}
