package main

import (
	"flag"
	"time"

	"github.com/lingxian-next/internal/authz"
	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/logger"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"
	"github.com/lingxian-next/internal/service"

	"github.com/joho/godotenv"
)

type seedAdmin struct {
	ID       uint
	Username string
	Role     string
}

func main() {
	var withTokens bool
	flag.BoolVar(&withTokens, "tokens", true, "为演示用户与管理员签发 JWT")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	seedProducts()
	zoneID := seedDeliveryZones()
	seedPickupPoints(zoneID)
	seedPointRules()
	user := seedDemoUser(zoneID)
	seedCoupons(user)
	admins := seedAdminRoles()

	if !withTokens {
		return
	}
	if user != nil {
		token, expiresAt, err := service.GenerateUserJWT(cfg.UserJWT, user.ID)
		if err != nil {
			stdLog.Printf("Failed to sign user token: %v", err)
		} else {
			stdLog.Printf("User token (user_id=%d, expires %s): %s", user.ID, expiresAt.Format(time.RFC3339), token)
		}
	}
	for _, admin := range admins {
		token, _, err := service.GenerateAdminJWT(cfg.JWT, admin.ID, admin.Username)
		if err != nil {
			stdLog.Printf("Failed to sign admin token %s: %v", admin.Username, err)
			continue
		}
		stdLog.Printf("Admin token (%s, role=%s): %s", admin.Username, admin.Role, token)
	}
}

func seedProducts() {
	products := []models.Product{
		{Name: "有机菠菜 500g", Price: models.MustMoney("8.00"), Stock: 200, Status: constants.StatusEnabled},
		{Name: "散养土鸡蛋 10枚", Price: models.MustMoney("15.80"), Stock: 120, Status: constants.StatusEnabled},
		{Name: "赣南脐橙 2.5kg", Price: models.MustMoney("39.90"), Stock: 60, Status: constants.StatusEnabled},
		{Name: "东北五常大米 5kg", Price: models.MustMoney("69.00"), Stock: 40, Status: constants.StatusEnabled},
	}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("name = ?", product.Name).First(&existing).Error; err == nil {
			logger.Infow("seed_product_exists", "name", product.Name)
			continue
		}
		if err := models.DB.Create(&product).Error; err != nil {
			logger.Warnw("seed_product_create_failed", "name", product.Name, "error", err)
			continue
		}
		logger.Infow("seed_product_created", "name", product.Name, "id", product.ID)
	}
}

func seedDeliveryZones() uint {
	threshold := models.MustMoney("59.00")
	zones := []models.DeliveryZone{
		{Name: "城西", BaseFee: models.MustMoney("5.00"), FreeThreshold: &threshold, Status: constants.StatusEnabled},
		{Name: "城东", BaseFee: models.MustMoney("8.00"), Status: constants.StatusEnabled},
	}
	var firstID uint
	for _, zone := range zones {
		var existing models.DeliveryZone
		if err := models.DB.Where("name = ?", zone.Name).First(&existing).Error; err == nil {
			if firstID == 0 {
				firstID = existing.ID
			}
			continue
		}
		if err := models.DB.Create(&zone).Error; err != nil {
			logger.Warnw("seed_zone_create_failed", "name", zone.Name, "error", err)
			continue
		}
		if firstID == 0 {
			firstID = zone.ID
		}
		logger.Infow("seed_zone_created", "name", zone.Name, "id", zone.ID)
	}
	return firstID
}

func seedPickupPoints(zoneID uint) {
	var zoneRef *uint
	if zoneID > 0 {
		zoneRef = &zoneID
	}
	points := []models.PickupPoint{
		{Name: "幸福里社区自提点", Address: "幸福路 1 号", Phone: "0571-88880001", ZoneID: zoneRef, Status: constants.StatusEnabled},
		{Name: "文三路门店", Address: "文三路 100 号", Phone: "0571-88880002", ZoneID: zoneRef, Status: constants.StatusEnabled},
	}
	for _, point := range points {
		var existing models.PickupPoint
		if err := models.DB.Where("name = ?", point.Name).First(&existing).Error; err == nil {
			continue
		}
		if err := models.DB.Create(&point).Error; err != nil {
			logger.Warnw("seed_pickup_point_create_failed", "name", point.Name, "error", err)
		}
	}
}

func seedPointRules() {
	repo := repository.NewPointsRepository(models.DB)
	rules := []models.PointRule{
		{RuleType: constants.PointRuleSignIn, Points: 10, Description: "每日签到", Status: constants.StatusEnabled},
		{RuleType: constants.PointRuleOrder, Points: 5, Description: "订单完成按实付金额 5% 发放", Status: constants.StatusEnabled},
	}
	for i := range rules {
		if err := repo.SaveRule(&rules[i]); err != nil {
			logger.Warnw("seed_point_rule_save_failed", "rule_type", rules[i].RuleType, "error", err)
		}
	}
}

func seedDemoUser(zoneID uint) *models.User {
	var user models.User
	if err := models.DB.Where("open_id = ?", "demo_openid").First(&user).Error; err != nil {
		user = models.User{OpenID: "demo_openid", Nickname: "演示用户", Phone: "13800000000", TotalPoints: 500, Status: constants.StatusEnabled}
		if err := models.DB.Create(&user).Error; err != nil {
			logger.Warnw("seed_user_create_failed", "error", err)
			return nil
		}
		logger.Infow("seed_user_created", "id", user.ID)
	}

	var count int64
	models.DB.Model(&models.UserAddress{}).Where("user_id = ?", user.ID).Count(&count)
	if count == 0 {
		var zoneRef *uint
		if zoneID > 0 {
			zoneRef = &zoneID
		}
		address := models.UserAddress{
			UserID:        user.ID,
			ReceiverName:  "张三",
			ReceiverPhone: "13800000000",
			Province:      "浙江省",
			City:          "杭州市",
			District:      "西湖区",
			Detail:        "文三路 100 号 3 幢 502",
			ZoneID:        zoneRef,
		}
		if err := models.DB.Create(&address).Error; err != nil {
			logger.Warnw("seed_address_create_failed", "error", err)
		}
	}
	return &user
}

func seedCoupons(user *models.User) {
	coupons := []models.Coupon{
		{Name: "满30减5", Type: constants.CouponTypeFullReduction, Value: models.MustMoney("5.00"), MinAmount: models.MustMoney("30.00"), TotalCount: 1000, Status: constants.StatusEnabled},
		{Name: "全场九折", Type: constants.CouponTypeDiscount, Value: models.MustMoney("0.90"), TotalCount: 1000, Status: constants.StatusEnabled},
	}
	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("name = ?", coupon.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&coupon).Error; err != nil {
				logger.Warnw("seed_coupon_create_failed", "name", coupon.Name, "error", err)
				continue
			}
			existing = coupon
		}
		if user == nil {
			continue
		}
		var owned int64
		models.DB.Model(&models.UserCoupon{}).Where("user_id = ? AND coupon_id = ?", user.ID, existing.ID).Count(&owned)
		if owned > 0 {
			continue
		}
		expireAt := time.Now().AddDate(0, 1, 0)
		grant := models.UserCoupon{UserID: user.ID, CouponID: existing.ID, Status: constants.UserCouponStatusUnused, ExpireAt: &expireAt}
		if err := models.DB.Create(&grant).Error; err != nil {
			logger.Warnw("seed_user_coupon_create_failed", "coupon_id", existing.ID, "error", err)
		}
	}
}

func seedAdminRoles() []seedAdmin {
	svc, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("seed_authz_init_failed", "error", err)
		return nil
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("seed_authz_bootstrap_failed", "error", err)
		return nil
	}
	admins := []seedAdmin{
		{ID: 1, Username: "finance", Role: authz.RoleFinance},
		{ID: 2, Username: "support", Role: authz.RoleSupport},
		{ID: 3, Username: "auditor", Role: authz.RoleReadonlyAuditor},
	}
	for _, admin := range admins {
		if err := svc.AssignRole(admin.ID, admin.Role); err != nil {
			logger.Warnw("seed_admin_role_failed", "admin_id", admin.ID, "role", admin.Role, "error", err)
		}
	}
	return admins
}
