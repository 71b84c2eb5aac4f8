package repository

import (
	"github.com/lingxian-next/internal/models"

	"gorm.io/gorm"
)

// MessageRepository 站内消息数据访问接口
type MessageRepository interface {
	Create(message *models.UserMessage) error
	ListByUser(userID uint, page, pageSize int) ([]models.UserMessage, int64, error)
}

// GormMessageRepository GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建站内消息仓库
func NewMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create 写入站内消息
func (r *GormMessageRepository) Create(message *models.UserMessage) error {
	return r.db.Create(message).Error
}

// ListByUser 用户站内消息列表
func (r *GormMessageRepository) ListByUser(userID uint, page, pageSize int) ([]models.UserMessage, int64, error) {
	query := r.db.Model(&models.UserMessage{}).Where("user_id = ?", userID)
	return listPage[models.UserMessage](query, page, pageSize, "")
}
