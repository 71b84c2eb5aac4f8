package shared

import (
	"errors"

	"github.com/lingxian-next/internal/http/response"
	"github.com/lingxian-next/internal/payment"
	"github.com/lingxian-next/internal/payment/wechatpay"
	"github.com/lingxian-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedHandlerError 业务错误到接口错误码与文案 key 的映射
type MappedHandlerError struct {
	Target error
	Code   int
	Key    string
}

// RespondWithMappedError 命中规则时不记录原始错误，未命中按 fallback 响应并记录
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// RespondServiceError 使用通用规则表映射服务层错误
func RespondServiceError(c *gin.Context, err error) {
	RespondWithMappedError(c, err, ServiceErrorRules, response.CodeInternal, "error.internal")
}

// ServiceErrorRules 服务层哨兵错误映射，具体错误在前
var ServiceErrorRules = []MappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrPaymentNotFound, Code: response.CodeNotFound, Key: "error.payment_not_found"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrProductNotFound, Code: response.CodeBadRequest, Key: "error.product_not_found"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},

	{Target: service.ErrInvalidOrderItem, Code: response.CodeBadRequest, Key: "error.order_item_invalid"},
	{Target: service.ErrTooManyOrderItems, Code: response.CodeBadRequest, Key: "error.order_items_too_many"},
	{Target: service.ErrDeliveryTypeInvalid, Code: response.CodeBadRequest, Key: "error.delivery_type_invalid"},
	{Target: service.ErrDeliveryAddressRequired, Code: response.CodeBadRequest, Key: "error.delivery_address_required"},
	{Target: service.ErrPickupPointRequired, Code: response.CodeBadRequest, Key: "error.pickup_point_required"},
	{Target: service.ErrDeliveryZoneUnavailable, Code: response.CodeBadRequest, Key: "error.delivery_zone_unavailable"},
	{Target: service.ErrProductUnavailable, Code: response.CodeBadRequest, Key: "error.product_unavailable"},
	{Target: service.ErrCouponUnavailable, Code: response.CodeBadRequest, Key: "error.coupon_unavailable"},
	{Target: service.ErrPointsInsufficient, Code: response.CodeBadRequest, Key: "error.points_insufficient"},
	{Target: service.ErrInvalidPoints, Code: response.CodeBadRequest, Key: "error.points_invalid"},
	{Target: service.ErrInvalidChangeType, Code: response.CodeBadRequest, Key: "error.points_change_type_invalid"},
	{Target: service.ErrRefundAmountInvalid, Code: response.CodeBadRequest, Key: "error.refund_amount_invalid"},
	{Target: service.ErrPartialRefundUnsupported, Code: response.CodeBadRequest, Key: "error.partial_refund_unsupported"},
	{Target: service.ErrInvalidStatus, Code: response.CodeBadRequest, Key: "error.order_status_unknown"},

	{Target: service.ErrInsufficientStock, Code: response.CodeConflict, Key: "error.stock_insufficient"},
	{Target: service.ErrInvalidTransition, Code: response.CodeConflict, Key: "error.order_status_invalid"},
	{Target: service.ErrTransitionRequiresPayment, Code: response.CodeBadRequest, Key: "error.order_requires_payment"},
	{Target: service.ErrConflict, Code: response.CodeConflict, Key: "error.order_conflict"},
	{Target: service.ErrOrderExpired, Code: response.CodeConflict, Key: "error.order_expired"},
	{Target: service.ErrAlreadyPaid, Code: response.CodeConflict, Key: "error.payment_already_paid"},
	{Target: service.ErrNotPaid, Code: response.CodeConflict, Key: "error.payment_not_paid"},
	{Target: service.ErrPaymentConflict, Code: response.CodeConflict, Key: "error.payment_conflict"},
	{Target: service.ErrAmountMismatch, Code: response.CodeBadRequest, Key: "error.payment_amount_mismatch"},
	{Target: service.ErrRefundNotRequested, Code: response.CodeConflict, Key: "error.refund_not_requested"},
	{Target: service.ErrNotOrphaned, Code: response.CodeConflict, Key: "error.payment_not_orphaned"},
	{Target: service.ErrAlreadySignedIn, Code: response.CodeConflict, Key: "error.already_signed_in"},

	{Target: service.ErrMockPaymentOff, Code: response.CodeForbidden, Key: "error.payment_mock_disabled"},
	{Target: service.ErrPaymentUnavailable, Code: response.CodeBadGateway, Key: "error.payment_gateway_unavailable"},
	{Target: payment.ErrGatewayUnavailable, Code: response.CodeBadGateway, Key: "error.payment_gateway_unavailable"},
	{Target: payment.ErrNotificationInvalid, Code: response.CodeBadRequest, Key: "error.payment_notification_invalid"},
	{Target: wechatpay.ErrSignatureInvalid, Code: response.CodeBadRequest, Key: "error.payment_notification_invalid"},
}
