package public

import (
	"strconv"
	"strings"

	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DeliveryFee 按配送区域与订单金额预估配送费
func (h *Handler) DeliveryFee(c *gin.Context) {
	zoneID, err := strconv.ParseUint(strings.TrimSpace(c.Query("zone_id")), 10, 64)
	if err != nil || zoneID == 0 {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(c.DefaultQuery("amount", "0")))
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	fee, err := h.Pricing.QuoteDeliveryFee(uint(zoneID), amount)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"zone_id":      zoneID,
		"amount":       amount.StringFixed(2),
		"delivery_fee": fee.StringFixed(2),
	})
}
