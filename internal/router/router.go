package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lingxian-next/internal/authz"
	"github.com/lingxian-next/internal/cache"
	"github.com/lingxian-next/internal/config"
	adminhandlers "github.com/lingxian-next/internal/http/handlers/admin"
	publichandlers "github.com/lingxian-next/internal/http/handlers/public"
	"github.com/lingxian-next/internal/http/response"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/metrics"
	"github.com/lingxian-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "lx"
	}
	createOrderRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:create_order", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(MetricsMiddleware(c.Metrics))

	apiV1 := r.Group("/api/v1")
	{
		public := apiV1.Group("/public")
		{
			public.GET("/delivery-fee", publicHandler.DeliveryFee)
		}

		// 支付网关回调不走用户鉴权，由网关签名校验
		apiV1.POST("/payments/wechat/notify", publicHandler.WechatPayNotify)

		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.POST("/orders", RateLimitMiddleware(cache.Client(), createOrderRule, KeyByUserOrIP), publicHandler.CreateOrder)
			user.POST("/orders/preview", publicHandler.PreviewOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.GET("/orders/:id/logs", publicHandler.ListOrderLogs)
			user.POST("/orders/:id/cancel", publicHandler.CancelOrder)
			user.POST("/orders/:id/confirm", publicHandler.ConfirmReceipt)
			user.POST("/orders/:id/refund", publicHandler.RequestRefund)

			user.POST("/orders/:id/payments", publicHandler.InitiatePayment)
			user.GET("/orders/:id/payment", publicHandler.GetPayment)
			if c.PaymentCoordinator != nil && c.PaymentCoordinator.MockEnabled() {
				user.POST("/orders/:id/payments/mock-success", publicHandler.MockPaymentSuccess)
			}

			user.GET("/points/summary", publicHandler.GetPointsSummary)
			user.GET("/points/records", publicHandler.ListPointsRecords)
			user.POST("/points/sign-in", publicHandler.SignIn)
		}

		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(cfg.JWT.SecretKey), AdminRBACMiddleware(c.AuthzService))
		{
			admin.GET("/orders", adminHandler.AdminListOrders)
			admin.GET("/orders/:id", adminHandler.AdminGetOrder)
			admin.GET("/orders/:id/logs", adminHandler.AdminListOrderLogs)
			admin.PATCH("/orders/:id/status", adminHandler.AdminUpdateOrderStatus)
			admin.POST("/orders/:id/refund/confirm", adminHandler.AdminConfirmRefund)

			admin.GET("/payments", adminHandler.AdminListPayments)
			admin.GET("/payments/orphaned", adminHandler.AdminListOrphanedPayments)
			admin.POST("/payments/:id/reconcile", adminHandler.AdminReconcilePayment)
			admin.POST("/payments/:id/refund", adminHandler.AdminSubmitRefund)

			admin.GET("/authz/me", adminHandler.AdminGetMyPermissions)
			admin.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.Handler()))
	}

	r.GET("/health", func(ctx *gin.Context) {
		redisStatus := "disabled"
		if cache.Enabled() {
			pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			defer cancel()
			redisStatus = "ok"
			if err := cache.Ping(pingCtx); err != nil {
				logger.Warnw("router_health_redis_ping_failed", "error", err)
				redisStatus = "down"
			}
		}
		ctx.JSON(200, gin.H{"status": "ok", "redis": redisStatus})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 由已注册的后台路由生成可授权的权限目录
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}
	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))
	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     adminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Module != items[j].Module {
			return items[i].Module < items[j].Module
		}
		if items[i].Object != items[j].Object {
			return items[i].Object < items[j].Object
		}
		return items[i].Method < items[j].Method
	})
	return items
}

func adminPermissionModule(object string) string {
	segments := strings.Split(strings.TrimPrefix(strings.TrimSpace(object), "/"), "/")
	if len(segments) < 2 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
