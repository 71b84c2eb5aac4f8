package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// 网关回调中的交易结果
const (
	NotificationSuccess = "success"
	NotificationFailed  = "failed"
	NotificationPending = "pending"
)

// 网关名称
const (
	GatewayWechat = "wechat"
	GatewayMock   = "mock"
)

var (
	// ErrNotificationInvalid 回调报文无法解析或验签失败
	ErrNotificationInvalid = errors.New("payment notification invalid")
	// ErrGatewayUnavailable 网关不可用（超时、限流、网络错误）
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// PrepayRequest 预下单请求
type PrepayRequest struct {
	PaymentNo   string
	OrderNo     string
	Amount      decimal.Decimal
	Description string
	OpenID      string
	ClientIP    string
	ExpireAt    *time.Time
}

// PrepayResult 预下单结果，PayParams 为客户端拉起支付所需参数
type PrepayResult struct {
	PrepayID  string
	PayParams map[string]string
	Raw       map[string]interface{}
}

// RefundRequest 退款请求
type RefundRequest struct {
	OrderNo       string
	PaymentNo     string
	RefundNo      string
	TransactionID string
	Amount        decimal.Decimal
	Total         decimal.Decimal
	Reason        string
}

// RefundResult 退款受理结果
type RefundResult struct {
	RefundID string
	Status   string
	Raw      map[string]interface{}
}

// Notification 验签解密后的支付结果通知
type Notification struct {
	OrderNo       string
	PaymentNo     string
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	PaidAt        *time.Time
	Raw           map[string]interface{}
}

// Gateway 支付网关契约。实现方不得持有数据库事务。
type Gateway interface {
	Name() string
	CreatePrepay(ctx context.Context, req PrepayRequest) (*PrepayResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	ParseNotification(ctx context.Context, headers map[string]string, body []byte) (*Notification, error)
}
