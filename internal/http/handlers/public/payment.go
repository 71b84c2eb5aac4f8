package public

import (
	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// InitiatePayment 发起支付，返回小程序调起支付所需参数
func (h *Handler) InitiatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.PaymentCoordinator.Initiate(c.Request.Context(), uid, orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// GetPayment 查询订单支付状态
func (h *Handler) GetPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	current, err := h.OrderService.GetPayment(uid, orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, current)
}

// MockPaymentSuccess 模拟网关回调成功，仅在 mock 模式注册
func (h *Handler) MockPaymentSuccess(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	outcome, err := h.PaymentCoordinator.SimulateSuccess(c.Request.Context(), uid, orderID)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, outcome)
}
