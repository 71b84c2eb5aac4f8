package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/payment"
	"github.com/lingxian-next/internal/payment/mockpay"
	"github.com/lingxian-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db          *gorm.DB
	orderRepo   *repository.GormOrderRepository
	paymentRepo *repository.GormPaymentRepository
	logRepo     *repository.GormOrderLogRepository
	userRepo    *repository.GormUserRepository
	pointsRepo  *repository.GormPointsRepository
	messageRepo *repository.GormMessageRepository
	stock       *StockLedger
	machine     *OrderStateMachine
	coordinator *PaymentCoordinator
	orders      *OrderService
	points      *PointsService
}

var userSeq atomic.Int64

type fixtureOptions struct {
	gateway         payment.Gateway
	mockAutoSuccess bool
}

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newServiceFixture(t *testing.T, name string) *serviceFixture {
	t.Helper()
	return newServiceFixtureWith(t, name, fixtureOptions{gateway: mockpay.New(), mockAutoSuccess: true})
}

func newServiceFixtureWith(t *testing.T, name string, opts fixtureOptions) *serviceFixture {
	t.Helper()
	return newServiceFixtureOn(setupServiceTestDB(t, name), opts)
}

// newServiceFixtureOn 在已迁移的数据库上组装服务，调用方负责设置 models.DB
func newServiceFixtureOn(db *gorm.DB, opts fixtureOptions) *serviceFixture {
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	logRepo := repository.NewOrderLogRepository(db)
	userRepo := repository.NewUserRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	stock := NewStockLedger(productRepo)
	coupons := NewCouponLedger(couponRepo)
	ledger := NewPointsLedger(pointsRepo, userRepo)
	machine := NewOrderStateMachine(orderRepo, logRepo, stock, ledger, coupons)
	notifier := NewQueueNotifier(nil, messageRepo)
	coordinator := NewPaymentCoordinator(orderRepo, paymentRepo, userRepo, machine, opts.gateway, nil, notifier, nil, PaymentCoordinatorOptions{
		GatewayTimeout:  time.Second,
		MockAutoSuccess: opts.mockAutoSuccess,
	})
	pricing := NewPricingResolver(productRepo, deliveryRepo, NewCouponPointsDiscount(coupons, userRepo, 100), 20)
	orders := NewOrderService(OrderServiceDeps{
		OrderRepo:            orderRepo,
		LogRepo:              logRepo,
		PaymentRepo:          paymentRepo,
		Pricing:              pricing,
		Stock:                stock,
		Machine:              machine,
		Coordinator:          coordinator,
		Coupons:              coupons,
		Points:               ledger,
		Notifier:             notifier,
		PaymentExpireMinutes: 15,
	})
	return &serviceFixture{
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		logRepo:     logRepo,
		userRepo:    userRepo,
		pointsRepo:  pointsRepo,
		messageRepo: messageRepo,
		stock:       stock,
		machine:     machine,
		coordinator: coordinator,
		orders:      orders,
		points:      NewPointsService(pointsRepo, userRepo, ledger, nil),
	}
}

func (f *serviceFixture) seedUser(t *testing.T, points int) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		OpenID:      fmt.Sprintf("openid_%d", userSeq.Add(1)),
		Nickname:    "测试用户",
		TotalPoints: points,
		Status:      constants.StatusEnabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (f *serviceFixture) seedProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	now := time.Now()
	product := &models.Product{
		Name:      name,
		Price:     models.MustMoney(price),
		Stock:     stock,
		Status:    constants.StatusEnabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (f *serviceFixture) seedPickupPoint(t *testing.T) *models.PickupPoint {
	t.Helper()
	now := time.Now()
	point := &models.PickupPoint{
		Name:      "社区自提点",
		Address:   "幸福路 1 号",
		Status:    constants.StatusEnabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.db.Create(point).Error; err != nil {
		t.Fatalf("create pickup point failed: %v", err)
	}
	return point
}

func (f *serviceFixture) seedAddress(t *testing.T, userID uint, zoneID *uint) *models.UserAddress {
	t.Helper()
	now := time.Now()
	address := &models.UserAddress{
		UserID:        userID,
		ReceiverName:  "张三",
		ReceiverPhone: "13800000000",
		Province:      "浙江省",
		City:          "杭州市",
		District:      "西湖区",
		Detail:        "文三路 100 号",
		ZoneID:        zoneID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.db.Create(address).Error; err != nil {
		t.Fatalf("create address failed: %v", err)
	}
	return address
}

func (f *serviceFixture) seedZone(t *testing.T, baseFee string, threshold string) *models.DeliveryZone {
	t.Helper()
	now := time.Now()
	zone := &models.DeliveryZone{
		Name:      "城西",
		BaseFee:   models.MustMoney(baseFee),
		Status:    constants.StatusEnabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if threshold != "" {
		value := models.MustMoney(threshold)
		zone.FreeThreshold = &value
	}
	if err := f.db.Create(zone).Error; err != nil {
		t.Fatalf("create zone failed: %v", err)
	}
	return zone
}

func (f *serviceFixture) seedRule(t *testing.T, ruleType string, points int) {
	t.Helper()
	if err := f.pointsRepo.SaveRule(&models.PointRule{
		RuleType: ruleType,
		Points:   points,
		Status:   constants.StatusEnabled,
	}); err != nil {
		t.Fatalf("save rule failed: %v", err)
	}
}

func (f *serviceFixture) seedUserCoupon(t *testing.T, userID uint, couponType int, value, minAmount string) *models.UserCoupon {
	t.Helper()
	now := time.Now()
	coupon := &models.Coupon{
		Name:       "新人券",
		Type:       couponType,
		Value:      models.MustMoney(value),
		MinAmount:  models.MustMoney(minAmount),
		TotalCount: 100,
		Status:     constants.StatusEnabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	userCoupon := &models.UserCoupon{
		UserID:    userID,
		CouponID:  coupon.ID,
		Status:    constants.UserCouponStatusUnused,
		CreatedAt: now,
	}
	if err := f.db.Create(userCoupon).Error; err != nil {
		t.Fatalf("create user coupon failed: %v", err)
	}
	return userCoupon
}

func (f *serviceFixture) productStock(t *testing.T, id uint) int {
	t.Helper()
	var product models.Product
	if err := f.db.First(&product, id).Error; err != nil {
		t.Fatalf("load product failed: %v", err)
	}
	return product.Stock
}

func (f *serviceFixture) userPoints(t *testing.T, id uint) int {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, id).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	return user.TotalPoints
}

func (f *serviceFixture) reloadOrder(t *testing.T, id uint) *models.Order {
	t.Helper()
	order, err := f.orderRepo.GetByID(id)
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	return order
}

func (f *serviceFixture) reloadPayment(t *testing.T, orderID uint) *models.Payment {
	t.Helper()
	current, err := f.paymentRepo.GetByOrderID(orderID)
	if err != nil || current == nil {
		t.Fatalf("load payment failed: %v", err)
	}
	return current
}

func (f *serviceFixture) countLogs(t *testing.T, orderID uint) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&models.OrderLog{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count logs failed: %v", err)
	}
	return count
}

func pickupInput(pointID uint, items ...PricingItem) CreateOrderInput {
	id := pointID
	return CreateOrderInput{
		Items:         items,
		DeliveryType:  constants.DeliveryTypePickup,
		PickupPointID: &id,
	}
}

// createPickupOrder 下单：商品 A 10.00×2 + 商品 B 3.00×1，自提
func (f *serviceFixture) createPickupOrder(t *testing.T, userID uint) (*models.Order, *models.Product, *models.Product) {
	t.Helper()
	productA := f.seedProduct(t, "有机菠菜", "10.00", 10)
	productB := f.seedProduct(t, "土鸡蛋", "3.00", 5)
	point := f.seedPickupPoint(t)
	order, err := f.orders.CreateOrder(context.Background(), userID, pickupInput(point.ID,
		PricingItem{ProductID: productA.ID, Quantity: 2},
		PricingItem{ProductID: productB.ID, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order, productA, productB
}

// payOrder 发起支付并通过模拟网关回调成功
func (f *serviceFixture) payOrder(t *testing.T, userID, orderID uint) *models.Payment {
	t.Helper()
	if _, err := f.coordinator.Initiate(context.Background(), userID, orderID); err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	outcome, err := f.coordinator.SimulateSuccess(context.Background(), userID, orderID)
	if err != nil {
		t.Fatalf("simulate success failed: %v", err)
	}
	if outcome.Outcome != PaymentOutcomePaid {
		t.Fatalf("expected paid outcome, got %s", outcome.Outcome)
	}
	return outcome.Payment
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal failed: %v", err)
	}
	return value
}
