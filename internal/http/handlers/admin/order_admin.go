package admin

import (
	"strings"

	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"
	"github.com/lingxian-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 管理端更新订单状态
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Remark string `json:"remark"`
}

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	query := service.OrderQuery{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		OrderNo:  strings.TrimSpace(c.Query("order_no")),
	}
	if !shared.ParseCreatedRange(c, &query.CreatedFrom, &query.CreatedTo) {
		return
	}
	orders, total, err := h.OrderService.AdminListOrders(query)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// AdminGetOrder 管理端订单详情（含支付单）
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.AdminGetOrder(orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// AdminListOrderLogs 订单状态流转审计
func (h *Handler) AdminListOrderLogs(c *gin.Context) {
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	logs, total, err := h.OrderService.AdminListOrderLogs(orderID, page, pageSize)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}

// AdminUpdateOrderStatus 推进订单状态（备货、配送、取消、退款）
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.AdminUpdateStatus(c.Request.Context(), adminID, orderID, strings.TrimSpace(req.Status), strings.TrimSpace(req.Remark))
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	shared.RequestLog(c).Infow("admin_order_status_updated",
		"admin_id", adminID,
		"order_id", orderID,
		"status", order.Status,
	)
	response.Success(c, order)
}

// AdminConfirmRefund 确认退款完成
func (h *Handler) AdminConfirmRefund(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.AdminConfirmRefund(c.Request.Context(), adminID, orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}
