package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusPreparing  = "preparing"
	OrderStatusReady      = "ready"
	OrderStatusDelivering = "delivering"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunding  = "refunding"
	OrderStatusRefunded   = "refunded"
)

// 配送方式常量
const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
)

// 支付状态常量
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusRefunding = "refunding"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// 支付渠道常量
const (
	PaymentChannelWechat = "wechat"
	PaymentChannelMock   = "mock"
)

// 支付对账状态常量
const (
	PaymentReconcileNone     = ""
	PaymentReconcileOrphaned = "orphaned"
	PaymentReconcileConflict = "conflict"
	PaymentReconcileResolved = "resolved"
)

// 积分变动类型常量
const (
	PointsChangeEarn  = "earn"
	PointsChangeSpend = "spend"
)

// 积分来源类型常量
const (
	PointsSourceSignIn      = "sign_in"
	PointsSourceOrder       = "order"
	PointsSourceActivity    = "activity"
	PointsSourceOrderDeduct = "order_deduct"
	PointsSourceOrderRefund = "order_refund"
)

// 积分规则类型常量
const (
	PointRuleSignIn   = "sign_in"
	PointRuleOrder    = "order"
	PointRuleActivity = "activity"
)

// 优惠券常量
const (
	CouponTypeFullReduction = 1
	CouponTypeDiscount      = 2

	UserCouponStatusUnused  = 0
	UserCouponStatusUsed    = 1
	UserCouponStatusExpired = 2
)

// 通用启用状态
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

// 订单通知场景
const (
	NotifySceneOrderCreated   = "order_created"
	NotifySceneOrderPaid      = "order_paid"
	NotifySceneOrderShipped   = "order_shipped"
	NotifySceneOrderCompleted = "order_completed"
)

// 操作人常量
const (
	OperatorUser            = "用户"
	OperatorSystem          = "系统"
	OperatorPaymentCallback = "支付回调"
	OperatorAdminPrefix     = "管理员#"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 队列任务类型常量
const (
	TaskOrderNotify        = "order:notify"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskPaymentOrphanAlert = "payment:orphan_alert"
)
