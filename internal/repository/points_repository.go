package repository

import (
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// PointsTotals 积分收支汇总
type PointsTotals struct {
	Earned int64
	Spent  int64
}

// PointsRepository 积分流水、规则与签到数据访问接口
type PointsRepository interface {
	CreateRecord(record *models.PointsRecord) error
	ListRecords(filter PointsRecordListFilter) ([]models.PointsRecord, int64, error)
	SumByUser(userID uint) (PointsTotals, error)
	GetRule(ruleType string) (*models.PointRule, error)
	SaveRule(rule *models.PointRule) error
	CreateSignIn(record *models.SignInRecord) error
	GetSignIn(userID uint, signDate string) (*models.SignInRecord, error)
	CountSignIns(userID uint) (int64, error)
	ListRecentSignDates(userID uint, limit int) ([]string, error)
	WithTx(tx *gorm.DB) *GormPointsRepository
}

// GormPointsRepository GORM 实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分仓库
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) *GormPointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// CreateRecord 追加积分流水
func (r *GormPointsRepository) CreateRecord(record *models.PointsRecord) error {
	return r.db.Create(record).Error
}

// ListRecords 积分流水列表
func (r *GormPointsRepository) ListRecords(filter PointsRecordListFilter) ([]models.PointsRecord, int64, error) {
	query := r.db.Model(&models.PointsRecord{}).Scopes(filter.scope)
	return listPage[models.PointsRecord](query, filter.Page, filter.PageSize, "")
}

// SumByUser 汇总用户累计获得与消耗的积分
func (r *GormPointsRepository) SumByUser(userID uint) (PointsTotals, error) {
	var rows []struct {
		ChangeType string
		Total      int64
	}
	if err := r.db.Model(&models.PointsRecord{}).
		Select("change_type, COALESCE(SUM(points), 0) AS total").
		Where("user_id = ?", userID).
		Group("change_type").
		Scan(&rows).Error; err != nil {
		return PointsTotals{}, err
	}
	var totals PointsTotals
	for _, row := range rows {
		switch row.ChangeType {
		case constants.PointsChangeEarn:
			totals.Earned = row.Total
		case constants.PointsChangeSpend:
			totals.Spent = row.Total
		}
	}
	return totals, nil
}

// GetRule 获取启用中的积分规则
func (r *GormPointsRepository) GetRule(ruleType string) (*models.PointRule, error) {
	return takeOne[models.PointRule](r.db.Where("rule_type = ? AND status = ?", ruleType, constants.StatusEnabled))
}

// SaveRule 按规则类型写入或覆盖积分规则
func (r *GormPointsRepository) SaveRule(rule *models.PointRule) error {
	existing, err := takeOne[models.PointRule](r.db.Where("rule_type = ?", rule.RuleType))
	if err != nil {
		return err
	}
	if existing != nil {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
	}
	return r.db.Save(rule).Error
}

// CreateSignIn 写入签到记录，(user_id, sign_date) 唯一
func (r *GormPointsRepository) CreateSignIn(record *models.SignInRecord) error {
	return r.db.Create(record).Error
}

// GetSignIn 查询某天的签到记录
func (r *GormPointsRepository) GetSignIn(userID uint, signDate string) (*models.SignInRecord, error) {
	return takeOne[models.SignInRecord](r.db.Where("user_id = ? AND sign_date = ?", userID, signDate))
}

// CountSignIns 累计签到天数
func (r *GormPointsRepository) CountSignIns(userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.SignInRecord{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListRecentSignDates 最近的签到日期（倒序）
func (r *GormPointsRepository) ListRecentSignDates(userID uint, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 31
	}
	var dates []string
	if err := r.db.Model(&models.SignInRecord{}).
		Where("user_id = ?", userID).
		Order("sign_date desc").
		Limit(limit).
		Pluck("sign_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}
