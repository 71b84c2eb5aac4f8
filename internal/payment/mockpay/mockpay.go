package mockpay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lingxian-next/internal/payment"

	"github.com/shopspring/decimal"
)

// TransactionPrefix 模拟交易号前缀
const TransactionPrefix = "mock_txn_"

// Gateway 本地模拟支付网关，不发起任何外部请求
type Gateway struct {
	now func() time.Time
}

// New 创建模拟网关
func New() *Gateway {
	return &Gateway{now: time.Now}
}

// callbackBody 模拟回调报文
type callbackBody struct {
	OrderNo       string `json:"order_no"`
	PaymentNo     string `json:"payment_no"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
}

func (g *Gateway) Name() string {
	return payment.GatewayMock
}

// CreatePrepay 生成确定性的预支付标识
func (g *Gateway) CreatePrepay(ctx context.Context, req payment.PrepayRequest) (*payment.PrepayResult, error) {
	if strings.TrimSpace(req.PaymentNo) == "" {
		return nil, fmt.Errorf("%w: payment_no is required", payment.ErrGatewayUnavailable)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount is negative", payment.ErrGatewayUnavailable)
	}
	prepayID := "mock_prepay_" + strings.TrimSpace(req.PaymentNo)
	return &payment.PrepayResult{
		PrepayID: prepayID,
		PayParams: map[string]string{
			"channel":   payment.GatewayMock,
			"package":   "prepay_id=" + prepayID,
			"timeStamp": fmt.Sprintf("%d", g.now().Unix()),
		},
	}, nil
}

// Refund 模拟退款立即受理
func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: refund amount must be positive", payment.ErrGatewayUnavailable)
	}
	return &payment.RefundResult{
		RefundID: "mock_refund_" + strings.TrimSpace(req.RefundNo),
		Status:   "SUCCESS",
	}, nil
}

// ParseNotification 解析模拟回调（JSON，无签名）
func (g *Gateway) ParseNotification(ctx context.Context, headers map[string]string, body []byte) (*payment.Notification, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", payment.ErrNotificationInvalid)
	}
	var parsed callbackBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrNotificationInvalid, err)
	}
	return BuildNotification(parsed.OrderNo, parsed.PaymentNo, parsed.TransactionID, parsed.Status, parsed.Amount)
}

// BuildNotification 组装模拟通知，供模拟成功入口复用
func BuildNotification(orderNo, paymentNo, transactionID, status, amount string) (*payment.Notification, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case payment.NotificationSuccess, payment.NotificationFailed, payment.NotificationPending:
	default:
		return nil, fmt.Errorf("%w: unsupported status %q", payment.ErrNotificationInvalid, status)
	}
	if strings.TrimSpace(orderNo) == "" && strings.TrimSpace(paymentNo) == "" {
		return nil, fmt.Errorf("%w: order_no or payment_no is required", payment.ErrNotificationInvalid)
	}
	if status == payment.NotificationSuccess && strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", payment.ErrNotificationInvalid)
	}
	parsedAmount := decimal.Zero
	if strings.TrimSpace(amount) != "" {
		value, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("%w: amount is invalid", payment.ErrNotificationInvalid)
		}
		parsedAmount = value
	}
	return &payment.Notification{
		OrderNo:       strings.TrimSpace(orderNo),
		PaymentNo:     strings.TrimSpace(paymentNo),
		TransactionID: strings.TrimSpace(transactionID),
		Status:        status,
		Amount:        parsedAmount,
	}, nil
}

// TransactionIDFor 模拟交易号：mock_txn_<prepay_id>
func TransactionIDFor(prepayID string) string {
	return TransactionPrefix + strings.TrimSpace(prepayID)
}
