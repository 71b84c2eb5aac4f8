package service

import (
	"errors"
	"fmt"
)

// 参数校验类错误，在任何写操作之前返回
var (
	ErrInvalidOrderItem          = errors.New("invalid order item")
	ErrTooManyOrderItems         = errors.New("too many order items")
	ErrDeliveryTypeInvalid       = errors.New("invalid delivery type")
	ErrDeliveryAddressRequired   = errors.New("delivery address required")
	ErrPickupPointRequired       = errors.New("pickup point required")
	ErrDeliveryZoneUnavailable   = errors.New("delivery zone unavailable")
	ErrProductUnavailable        = errors.New("product unavailable")
	ErrCouponUnavailable         = errors.New("coupon unavailable")
	ErrPointsInsufficient        = errors.New("points insufficient")
	ErrInvalidPoints             = errors.New("invalid points")
	ErrRefundAmountInvalid       = errors.New("refund amount invalid")
	ErrPartialRefundUnsupported  = errors.New("partial refund unsupported")
	ErrTransitionRequiresPayment = errors.New("transition requires payment")
	ErrInvalidStatus             = errors.New("invalid order status")
	ErrInvalidChangeType         = errors.New("invalid points change type")
)

// 状态与并发类错误
var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrNotPaid            = errors.New("payment not paid")
	ErrPaymentConflict    = errors.New("payment transaction conflict")
	ErrConflict           = errors.New("concurrent modification")
	ErrAlreadySignedIn    = errors.New("already signed in today")
	ErrMockPaymentOff     = errors.New("mock payment disabled")
	ErrPaymentUnavailable = errors.New("payment gateway unavailable")
	ErrNotOrphaned        = errors.New("payment is not orphaned")
	ErrOrderExpired       = errors.New("order payment expired")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrRefundNotRequested = errors.New("refund not requested")
	ErrQueueUnavailable   = errors.New("queue unavailable")
)

// 查找类错误
var (
	ErrNotFound        = errors.New("not found")
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrPaymentNotFound = fmt.Errorf("payment %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
)

// InsufficientStockError 某个商品库存不足
type InsufficientStockError struct {
	ProductID uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// Is 支持 errors.Is(err, ErrInsufficientStock)
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidTransitionError 状态机拒绝的流转
type InvalidTransitionError struct {
	Current string
	Target  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.Current, e.Target)
}

// Is 支持 errors.Is(err, ErrInvalidTransition)
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
