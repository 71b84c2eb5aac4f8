package public

import (
	"strings"

	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetPointsSummary 积分概览
func (h *Handler) GetPointsSummary(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.PointsService.GetPointsSummary(c.Request.Context(), uid)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// ListPointsRecords 积分流水，change_type 可选 earn / spend
func (h *Handler) ListPointsRecords(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	records, total, err := h.PointsService.ListPointsRecords(uid, strings.TrimSpace(c.Query("change_type")), page, pageSize)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// SignIn 每日签到
func (h *Handler) SignIn(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	result, err := h.PointsService.SignIn(c.Request.Context(), uid)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
