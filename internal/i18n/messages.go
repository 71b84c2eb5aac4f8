package i18n

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.bad_request":                  "请求参数错误",
		"error.unauthorized":                 "未登录或登录已过期",
		"error.forbidden":                    "无权限访问",
		"error.not_found":                    "资源不存在",
		"error.too_many_requests":            "请求过于频繁，请稍后再试",
		"error.internal":                     "服务器内部错误",
		"error.user_id_invalid":              "用户标识无效",
		"error.admin_id_invalid":             "管理员标识无效",
		"error.context_type_invalid":         "上下文类型错误",
		"error.order_not_found":              "订单不存在",
		"error.order_item_invalid":           "订单商品无效",
		"error.order_items_too_many":         "订单商品数量超出限制",
		"error.order_status_invalid":         "订单状态不允许该操作",
		"error.order_status_unknown":         "未知的订单状态",
		"error.order_conflict":               "订单已被其他操作修改，请刷新后重试",
		"error.order_expired":                "订单已超过支付时限",
		"error.order_requires_payment":       "订单需通过支付完成",
		"error.product_not_found":            "商品不存在",
		"error.product_unavailable":          "商品已下架",
		"error.stock_insufficient":           "商品库存不足",
		"error.delivery_type_invalid":        "配送方式无效",
		"error.delivery_address_required":    "请选择收货地址",
		"error.pickup_point_required":        "请选择自提点",
		"error.delivery_zone_unavailable":    "配送区域不可用",
		"error.coupon_unavailable":           "优惠券不可用",
		"error.points_insufficient":          "积分不足",
		"error.points_invalid":               "积分数量无效",
		"error.points_change_type_invalid":   "积分类型无效",
		"error.already_signed_in":            "今日已签到",
		"error.user_not_found":               "用户不存在",
		"error.refund_amount_invalid":        "退款金额无效",
		"error.partial_refund_unsupported":   "暂不支持部分退款",
		"error.refund_not_requested":         "订单未申请退款",
		"error.payment_not_found":            "支付记录不存在",
		"error.payment_already_paid":         "订单已支付",
		"error.payment_not_paid":             "订单未支付",
		"error.payment_conflict":             "支付流水冲突",
		"error.payment_amount_mismatch":      "支付金额不一致",
		"error.payment_gateway_unavailable":  "支付服务暂不可用",
		"error.payment_mock_disabled":        "模拟支付未开启",
		"error.payment_not_orphaned":         "支付记录无需对账",
		"error.payment_notification_invalid": "支付通知无效",
		"error.auth_header_missing":          "缺少认证信息",
		"error.auth_header_invalid":          "认证信息格式错误",
		"error.token_invalid":                "登录凭证无效",
		"error.user_disabled":                "账号已被禁用",
		"error.rate_limit_unavailable":       "限流服务暂不可用",
	},
	LocaleEnUS: {
		"error.bad_request":                  "Invalid request parameters",
		"error.unauthorized":                 "Not logged in or session expired",
		"error.forbidden":                    "Access denied",
		"error.not_found":                    "Resource not found",
		"error.too_many_requests":            "Too many requests, please try again later",
		"error.internal":                     "Internal server error",
		"error.user_id_invalid":              "Invalid user id",
		"error.admin_id_invalid":             "Invalid admin id",
		"error.context_type_invalid":         "Invalid context type",
		"error.order_not_found":              "Order not found",
		"error.order_item_invalid":           "Invalid order item",
		"error.order_items_too_many":         "Too many order items",
		"error.order_status_invalid":         "Operation not allowed in current order status",
		"error.order_status_unknown":         "Unknown order status",
		"error.order_conflict":               "Order was modified concurrently, please retry",
		"error.order_expired":                "Order payment window has expired",
		"error.order_requires_payment":       "Order can only become paid through payment",
		"error.product_not_found":            "Product not found",
		"error.product_unavailable":          "Product is unavailable",
		"error.stock_insufficient":           "Insufficient stock",
		"error.delivery_type_invalid":        "Invalid delivery type",
		"error.delivery_address_required":    "Delivery address is required",
		"error.pickup_point_required":        "Pickup point is required",
		"error.delivery_zone_unavailable":    "Delivery zone unavailable",
		"error.coupon_unavailable":           "Coupon unavailable",
		"error.points_insufficient":          "Insufficient points",
		"error.points_invalid":               "Invalid points amount",
		"error.points_change_type_invalid":   "Invalid points change type",
		"error.already_signed_in":            "Already signed in today",
		"error.user_not_found":               "User not found",
		"error.refund_amount_invalid":        "Invalid refund amount",
		"error.partial_refund_unsupported":   "Partial refunds are not supported",
		"error.refund_not_requested":         "No refund has been requested",
		"error.payment_not_found":            "Payment not found",
		"error.payment_already_paid":         "Order already paid",
		"error.payment_not_paid":             "Order not paid",
		"error.payment_conflict":             "Payment transaction conflict",
		"error.payment_amount_mismatch":      "Payment amount mismatch",
		"error.payment_gateway_unavailable":  "Payment gateway unavailable",
		"error.payment_mock_disabled":        "Mock payment is disabled",
		"error.payment_not_orphaned":         "Payment does not need reconciliation",
		"error.payment_notification_invalid": "Invalid payment notification",
		"error.auth_header_missing":          "Missing authorization header",
		"error.auth_header_invalid":          "Malformed authorization header",
		"error.token_invalid":                "Invalid token",
		"error.user_disabled":                "Account disabled",
		"error.rate_limit_unavailable":       "Rate limiter unavailable",
	},
}
