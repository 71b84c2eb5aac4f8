package admin

import (
	"strings"

	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"
	"github.com/lingxian-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ReconcileRequest 孤儿支付对账请求
type ReconcileRequest struct {
	Remark string `json:"remark"`
}

// AdminListPayments 支付单列表，可按 status / reconcile_status 过滤
func (h *Handler) AdminListPayments(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	payments, total, err := h.OrderService.AdminListPayments(repository.PaymentListFilter{
		Page:            page,
		PageSize:        pageSize,
		Status:          strings.TrimSpace(c.Query("status")),
		ReconcileStatus: strings.TrimSpace(c.Query("reconcile_status")),
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, payments, response.BuildPagination(page, pageSize, total))
}

// AdminListOrphanedPayments 待对账的孤儿支付
func (h *Handler) AdminListOrphanedPayments(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	payments, total, err := h.OrderService.ListOrphanedPayments(page, pageSize)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, payments, response.BuildPagination(page, pageSize, total))
}

// AdminReconcilePayment 孤儿支付转退款并标记已处理
func (h *Handler) AdminReconcilePayment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	paymentID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			shared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	current, err := h.PaymentCoordinator.Reconcile(c.Request.Context(), adminID, paymentID, req.Remark)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, current)
}

// AdminSubmitRefund 将退款中的支付单提交到支付网关
func (h *Handler) AdminSubmitRefund(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	paymentID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.PaymentCoordinator.SubmitRefund(c.Request.Context(), adminID, paymentID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
