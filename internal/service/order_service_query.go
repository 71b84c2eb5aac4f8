package service

import (
	"strings"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"
)

// OrderQuery 订单列表查询参数
type OrderQuery struct {
	Page        int
	PageSize    int
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// GetOrder 获取用户订单详情，过期未支付的订单会先被取消
func (s *OrderService) GetOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.ensureCancelledIfExpired(order, func() (*models.Order, error) {
		return s.orderRepo.GetByIDAndUser(orderID, userID)
	})
}

// GetOrderByNo 按订单号获取用户订单
func (s *OrderService) GetOrderByNo(userID uint, orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return s.GetOrder(userID, order.ID)
}

// AdminGetOrder 管理端订单详情
func (s *OrderService) AdminGetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Payment == nil {
		current, err := s.paymentRepo.GetByOrderID(order.ID)
		if err != nil {
			return nil, err
		}
		order.Payment = current
	}
	return order, nil
}

// ListOrders 用户订单列表
func (s *OrderService) ListOrders(userID uint, query OrderQuery) ([]models.Order, int64, error) {
	if query.Status != "" && !IsValidOrderStatus(query.Status) {
		return nil, 0, ErrInvalidStatus
	}
	orders, total, err := s.orderRepo.ListByUser(repository.OrderListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		UserID:   userID,
		Status:   query.Status,
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		if isExpiredPending(&orders[i]) {
			if refreshed, err := s.CancelExpiredOrder(orders[i].ID); err == nil && refreshed != nil {
				orders[i].Status = refreshed.Status
				orders[i].CancelReason = refreshed.CancelReason
				orders[i].CancelledAt = refreshed.CancelledAt
			}
		}
	}
	return orders, total, nil
}

// AdminListOrders 管理端订单列表
func (s *OrderService) AdminListOrders(query OrderQuery) ([]models.Order, int64, error) {
	if query.Status != "" && !IsValidOrderStatus(query.Status) {
		return nil, 0, ErrInvalidStatus
	}
	return s.orderRepo.ListAdmin(repository.OrderListFilter{
		Page:        query.Page,
		PageSize:    query.PageSize,
		Status:      query.Status,
		OrderNo:     strings.TrimSpace(query.OrderNo),
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
	})
}

// ListOrderLogs 用户查看自己订单的状态日志
func (s *OrderService) ListOrderLogs(userID, orderID uint, page, pageSize int) ([]models.OrderLog, int64, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, 0, err
	}
	if order == nil {
		return nil, 0, ErrOrderNotFound
	}
	return s.logRepo.ListByOrder(orderID, page, pageSize)
}

// AdminListOrderLogs 管理端订单日志
func (s *OrderService) AdminListOrderLogs(orderID uint, page, pageSize int) ([]models.OrderLog, int64, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, 0, err
	}
	if order == nil {
		return nil, 0, ErrOrderNotFound
	}
	return s.logRepo.ListByOrder(orderID, page, pageSize)
}

// GetPayment 用户查询订单的支付单
func (s *OrderService) GetPayment(userID, orderID uint) (*models.Payment, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	current, err := s.paymentRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrPaymentNotFound
	}
	return current, nil
}

// AdminListPayments 管理端支付单列表
func (s *OrderService) AdminListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListAdmin(filter)
}

// ListOrphanedPayments 待对账的孤儿支付
func (s *OrderService) ListOrphanedPayments(page, pageSize int) ([]models.Payment, int64, error) {
	return s.paymentRepo.ListOrphaned(page, pageSize)
}

func (s *OrderService) ensureCancelledIfExpired(order *models.Order, reload func() (*models.Order, error)) (*models.Order, error) {
	if !isExpiredPending(order) {
		return order, nil
	}
	if _, err := s.CancelExpiredOrder(order.ID); err != nil {
		logger.Warnw("order_lazy_expire_cancel_failed", "order_id", order.ID, "error", err)
		return order, nil
	}
	refreshed, err := reload()
	if err != nil {
		return nil, err
	}
	if refreshed == nil {
		return nil, ErrOrderNotFound
	}
	return refreshed, nil
}

func isExpiredPending(order *models.Order) bool {
	if order == nil || order.Status != constants.OrderStatusPending || order.ExpiresAt == nil {
		return false
	}
	return !order.ExpiresAt.After(time.Now())
}
