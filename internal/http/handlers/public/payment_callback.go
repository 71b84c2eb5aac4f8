package public

import (
	"io"
	"net/http"
	"strings"

	"github.com/lingxian-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

const maxCallbackBodyBytes = 64 << 10

// WechatPayNotify 微信支付结果通知，验签与解密由网关完成
func (h *Handler) WechatPayNotify(c *gin.Context) {
	log := shared.RequestLog(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBodyBytes))
	if err != nil {
		log.Warnw("payment_callback_body_read_failed", "error", err)
		respondWechatCallback(c, false)
		return
	}
	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}
	log.Infow("payment_callback_received",
		"gateway", h.PaymentCoordinator.GatewayName(),
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"wechatpay_serial", strings.TrimSpace(c.GetHeader("Wechatpay-Serial")),
	)

	outcome, err := h.PaymentCoordinator.HandleNotification(c.Request.Context(), headers, body)
	if err != nil {
		log.Warnw("payment_callback_handle_failed", "error", err)
		respondWechatCallback(c, false)
		return
	}
	log.Infow("payment_callback_processed",
		"payment_id", outcome.Payment.ID,
		"order_id", outcome.Payment.OrderID,
		"outcome", outcome.Outcome,
	)
	respondWechatCallback(c, true)
}

// respondWechatCallback 非 2xx 时网关会按退避策略重发通知
func respondWechatCallback(c *gin.Context, success bool) {
	if success {
		c.JSON(http.StatusOK, gin.H{
			"code":    "SUCCESS",
			"message": "成功",
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    "FAIL",
		"message": "失败",
	})
}
