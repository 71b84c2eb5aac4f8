package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/lingxian-next/internal/authz"
	"github.com/lingxian-next/internal/cache"
	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/metrics"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/payment"
	"github.com/lingxian-next/internal/payment/mockpay"
	"github.com/lingxian-next/internal/payment/wechatpay"
	"github.com/lingxian-next/internal/queue"
	"github.com/lingxian-next/internal/repository"
	"github.com/lingxian-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Collector
	Gateway     payment.Gateway

	// Repositories
	UserRepo     repository.UserRepository
	ProductRepo  repository.ProductRepository
	OrderRepo    repository.OrderRepository
	OrderLogRepo repository.OrderLogRepository
	PaymentRepo  repository.PaymentRepository
	CouponRepo   repository.CouponRepository
	DeliveryRepo repository.DeliveryRepository
	PointsRepo   repository.PointsRepository
	MessageRepo  repository.MessageRepository

	// Services
	AuthzService       *authz.Service
	StockLedger        *service.StockLedger
	CouponLedger       *service.GormCouponLedger
	PointsLedger       *service.PointsLedger
	Pricing            *service.DefaultPricingResolver
	OrderStateMachine  *service.OrderStateMachine
	Notifier           *service.QueueNotifier
	PaymentCoordinator *service.PaymentCoordinator
	OrderService       *service.OrderService
	PointsService      *service.PointsService
}

// NewContainer 初始化容器，models.DB 需已初始化
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	gateway, err := NewGateway(&cfg.Payment)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Gateway:     gateway,
	}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.Default()
	}

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewGateway 按配置选择支付网关
func NewGateway(cfg *config.PaymentConfig) (payment.Gateway, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", payment.GatewayMock:
		logger.Infow("provider_mock_gateway_enabled", "mock_auto_success", cfg.MockAutoSuccess)
		return mockpay.New(), nil
	case payment.GatewayWechat:
		gateway, err := wechatpay.New(wechatpay.Config{
			AppID:              cfg.Wechat.AppID,
			MerchantID:         cfg.Wechat.MchID,
			MerchantSerialNo:   cfg.Wechat.MerchantSerialNo,
			MerchantPrivateKey: cfg.Wechat.MerchantPrivateKey,
			APIV3Key:           cfg.Wechat.APIv3Key,
			NotifyURL:          cfg.Wechat.NotifyURL,
			RefundNotifyURL:    cfg.Wechat.RefundNotifyURL,
		}, cfg.GatewayQPS)
		if err != nil {
			return nil, fmt.Errorf("init wechat gateway failed: %w", err)
		}
		return gateway, nil
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.OrderLogRepo = repository.NewOrderLogRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.DeliveryRepo = repository.NewDeliveryRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.MessageRepo = repository.NewMessageRepository(db)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}
	c.AuthzService = authzService

	orderCfg := c.Config.Order
	c.StockLedger = service.NewStockLedger(c.ProductRepo)
	c.CouponLedger = service.NewCouponLedger(c.CouponRepo)
	c.PointsLedger = service.NewPointsLedger(c.PointsRepo, c.UserRepo)
	c.Pricing = service.NewPricingResolver(
		c.ProductRepo,
		c.DeliveryRepo,
		service.NewCouponPointsDiscount(c.CouponLedger, c.UserRepo, orderCfg.PointsPerYuan),
		orderCfg.MaxItems,
	)
	c.OrderStateMachine = service.NewOrderStateMachine(c.OrderRepo, c.OrderLogRepo, c.StockLedger, c.PointsLedger, c.CouponLedger)
	c.Notifier = service.NewQueueNotifier(c.QueueClient, c.MessageRepo)
	c.PaymentCoordinator = service.NewPaymentCoordinator(
		c.OrderRepo,
		c.PaymentRepo,
		c.UserRepo,
		c.OrderStateMachine,
		c.Gateway,
		c.QueueClient,
		c.Notifier,
		c.Metrics,
		service.PaymentCoordinatorOptions{
			GatewayTimeout:  time.Duration(c.Config.Payment.GatewayTimeoutSeconds) * time.Second,
			MockAutoSuccess: c.Config.Payment.MockAutoSuccess,
		},
	)
	c.OrderService = service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:            c.OrderRepo,
		LogRepo:              c.OrderLogRepo,
		PaymentRepo:          c.PaymentRepo,
		Pricing:              c.Pricing,
		Stock:                c.StockLedger,
		Machine:              c.OrderStateMachine,
		Coordinator:          c.PaymentCoordinator,
		Coupons:              c.CouponLedger,
		Points:               c.PointsLedger,
		QueueClient:          c.QueueClient,
		Notifier:             c.Notifier,
		Metrics:              c.Metrics,
		PaymentExpireMinutes: orderCfg.PaymentExpireMinutes,
	})
	c.PointsService = service.NewPointsService(c.PointsRepo, c.UserRepo, c.PointsLedger, c.Metrics)
	return nil
}

// Close 释放队列与缓存连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
