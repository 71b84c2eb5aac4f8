package repository

import (
	"time"

	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
	AdjustPoints(userID uint, delta int) (int64, error)
	TouchSignIn(userID uint, at time.Time) error
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	return takeOne[models.User](r.db.Where("id = ?", id))
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// AdjustPoints 原子调整积分余额，扣减后余额不能为负
func (r *GormUserRepository) AdjustPoints(userID uint, delta int) (int64, error) {
	return affected(r.db.Model(&models.User{}).
		Where("id = ? AND total_points + ? >= 0", userID, delta).
		Update("total_points", gorm.Expr("total_points + ?", delta)))
}

// TouchSignIn 更新最近签到时间
func (r *GormUserRepository) TouchSignIn(userID uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("last_sign_in_at", at).Error
}
