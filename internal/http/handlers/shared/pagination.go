package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/lingxian-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ParsePagination 读取 page / page_size 查询参数
func ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	return NormalizePagination(page, pageSize)
}

// ParseCreatedRange 解析 created_from / created_to（YYYY-MM-DD），结束日期包含当天
func ParseCreatedRange(c *gin.Context, from, to **time.Time) bool {
	if raw := strings.TrimSpace(c.Query("created_from")); raw != "" {
		start, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return false
		}
		*from = &start
	}
	if raw := strings.TrimSpace(c.Query("created_to")); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return false
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		*to = &end
	}
	return true
}
