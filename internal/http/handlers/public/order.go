package public

import (
	"strings"

	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"
	"github.com/lingxian-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderItemRequest 订单项请求
type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Items            []OrderItemRequest `json:"items" binding:"required"`
	DeliveryType     string             `json:"delivery_type" binding:"required"`
	AddressID        *uint              `json:"address_id"`
	PickupPointID    *uint              `json:"pickup_point_id"`
	UserCouponID     *uint              `json:"user_coupon_id"`
	PointsUsed       int                `json:"points_used"`
	DeliveryTimeSlot string             `json:"delivery_time_slot"`
	Remark           string             `json:"remark"`
}

func (req CreateOrderRequest) toInput() service.CreateOrderInput {
	items := make([]service.PricingItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.PricingItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return service.CreateOrderInput{
		Items:            items,
		DeliveryType:     strings.TrimSpace(req.DeliveryType),
		AddressID:        req.AddressID,
		PickupPointID:    req.PickupPointID,
		UserCouponID:     req.UserCouponID,
		PointsUsed:       req.PointsUsed,
		DeliveryTimeSlot: strings.TrimSpace(req.DeliveryTimeSlot),
		Remark:           strings.TrimSpace(req.Remark),
	}
}

// CancelOrderRequest 取消订单请求
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// RefundRequest 申请退款请求，amount 为空表示全额
type RefundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// PreviewOrder 订单金额预览
func (h *Handler) PreviewOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	preview, err := h.OrderService.PreviewOrder(c.Request.Context(), uid, req.toInput())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, preview)
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.OrderService.CreateOrder(c.Request.Context(), uid, req.toInput())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
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
	orders, total, err := h.OrderService.ListOrders(uid, query)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(uid, orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrderLogs 订单状态流转记录
func (h *Handler) ListOrderLogs(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	logs, total, err := h.OrderService.ListOrderLogs(uid, orderID, page, pageSize)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}

// CancelOrder 用户取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			shared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	order, err := h.OrderService.CancelOrder(c.Request.Context(), uid, orderID, req.Reason)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// ConfirmReceipt 确认收货
func (h *Handler) ConfirmReceipt(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.OrderService.ConfirmReceipt(c.Request.Context(), uid, orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, result.Order)
}

// RequestRefund 申请退款
func (h *Handler) RequestRefund(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			shared.RespondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	amount := decimal.Zero
	if raw := strings.TrimSpace(req.Amount); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "error.refund_amount_invalid", nil)
			return
		}
		amount = parsed
	}
	order, err := h.OrderService.RequestRefund(c.Request.Context(), uid, orderID, amount, req.Reason)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, order)
}
