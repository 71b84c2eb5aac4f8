package repository

import (
	"errors"

	"gorm.io/gorm"
)

// maxListPageSize 仓储层单页上限，处理器之外的调用方也受约束
const maxListPageSize = 200

// takeOne 未命中返回 (nil, nil)，由调用方决定是否视为业务错误
func takeOne[T any](query *gorm.DB) (*T, error) {
	var out T
	if err := query.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// listPage 先计数再按页取数，order 为空时按 id 倒序；preloads 只作用于取数
func listPage[T any](query *gorm.DB, page, pageSize int, order string, preloads ...string) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if order == "" {
		order = "id desc"
	}
	for _, name := range preloads {
		query = query.Preload(name)
	}
	var rows []T
	if err := query.Scopes(paginate(page, pageSize)).Order(order).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// paginate pageSize <= 0 表示不分页
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if pageSize > maxListPageSize {
			pageSize = maxListPageSize
		}
		if page < 1 {
			page = 1
		}
		return db.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}

// affected 条件更新的影响行数，0 表示条件未命中
func affected(result *gorm.DB) (int64, error) {
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
