package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lingxian-next/internal/authz"
	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/constants"
	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/provider"
	"github.com/lingxian-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type routerFixture struct {
	cfg       *config.Config
	container *provider.Container
	engine    *gin.Engine
}

type apiEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		JWT:     config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 1},
		UserJWT: config.JWTConfig{SecretKey: "user-secret", ExpireHours: 1},
		Order:   config.OrderConfig{PaymentExpireMinutes: 15, PointsPerYuan: 100, MaxItems: 20},
		Payment: config.PaymentConfig{Provider: "mock", MockAutoSuccess: true, GatewayTimeoutSeconds: 1},
	}
	container, err := provider.NewContainer(cfg)
	if err != nil {
		t.Fatalf("new container failed: %v", err)
	}
	return &routerFixture{cfg: cfg, container: container, engine: SetupRouter(cfg, container)}
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body interface{}) apiEnvelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: http status %d body=%s", method, path, w.Code, w.Body.String())
	}
	var env apiEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode failed: %v body=%s", method, path, err, w.Body.String())
	}
	return env
}

func (f *routerFixture) userToken(t *testing.T) (uint, string) {
	t.Helper()
	user := &models.User{OpenID: fmt.Sprintf("router_%d", time.Now().UnixNano()), Nickname: "路由测试", Status: constants.StatusEnabled}
	if err := models.DB.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	token, _, err := service.GenerateUserJWT(f.cfg.UserJWT, user.ID)
	if err != nil {
		t.Fatalf("generate user token failed: %v", err)
	}
	return user.ID, token
}

func (f *routerFixture) adminToken(t *testing.T, adminID uint, role string) string {
	t.Helper()
	if err := f.container.AuthzService.AssignRole(adminID, role); err != nil {
		t.Fatalf("assign admin role failed: %v", err)
	}
	token, _, err := service.GenerateAdminJWT(f.cfg.JWT, adminID, role)
	if err != nil {
		t.Fatalf("generate admin token failed: %v", err)
	}
	return token
}

func TestOrderPaymentFlowOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	_, token := f.userToken(t)

	product := &models.Product{Name: "有机菠菜", Price: models.MustMoney("8.00"), Stock: 5, Status: constants.StatusEnabled}
	if err := models.DB.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	point := &models.PickupPoint{Name: "社区自提点", Address: "幸福路 1 号", Status: constants.StatusEnabled}
	if err := models.DB.Create(point).Error; err != nil {
		t.Fatalf("create pickup point failed: %v", err)
	}

	if env := f.do(t, http.MethodGet, "/api/v1/orders", "", nil); env.StatusCode != 401 {
		t.Fatalf("anonymous order list want 401 got %d", env.StatusCode)
	}

	orderBody := map[string]interface{}{
		"items":           []map[string]interface{}{{"product_id": product.ID, "quantity": 2}},
		"delivery_type":   constants.DeliveryTypePickup,
		"pickup_point_id": point.ID,
	}
	env := f.do(t, http.MethodPost, "/api/v1/orders", token, orderBody)
	if env.StatusCode != 0 {
		t.Fatalf("create order failed: %d %s", env.StatusCode, env.Msg)
	}
	var order struct {
		ID          uint   `json:"id"`
		OrderNo     string `json:"order_no"`
		Status      string `json:"status"`
		FinalAmount string `json:"final_amount"`
	}
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending || order.FinalAmount != "16.00" {
		t.Fatalf("unexpected order: %+v", order)
	}

	env = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/payments", order.ID), token, nil)
	if env.StatusCode != 0 {
		t.Fatalf("initiate payment failed: %d %s", env.StatusCode, env.Msg)
	}
	env = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/payments/mock-success", order.ID), token, nil)
	if env.StatusCode != 0 {
		t.Fatalf("mock success failed: %d %s", env.StatusCode, env.Msg)
	}

	env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", order.ID), token, nil)
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("order want paid got %s", order.Status)
	}

	// 已支付订单不可再发起支付
	env = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/payments", order.ID), token, nil)
	if env.StatusCode != 409 {
		t.Fatalf("second initiate want 409 got %d (%s)", env.StatusCode, env.Msg)
	}

	// 已支付订单收到另一笔交易号：确认接收，转人工对账
	conflict := fmt.Sprintf(`{"order_no":"%s","transaction_id":"wx_other","status":"success","amount":"16.00"}`, order.OrderNo)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/wechat/notify", bytes.NewReader([]byte(conflict))))
	var ack map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode callback ack failed: %v", err)
	}
	if w.Code != http.StatusOK || ack["code"] != "SUCCESS" {
		t.Fatalf("conflicting callback want 200 SUCCESS got %d %s", w.Code, ack["code"])
	}

	support := f.adminToken(t, 21, authz.RoleSupport)
	env = f.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/admin/orders/%d/status", order.ID), support,
		map[string]string{"status": constants.OrderStatusPreparing, "remark": "开始备货"})
	if env.StatusCode != 0 {
		t.Fatalf("support update status failed: %d %s", env.StatusCode, env.Msg)
	}
	env = f.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/admin/orders/%d/status", order.ID), support,
		map[string]string{"status": constants.OrderStatusCompleted})
	if env.StatusCode != 409 {
		t.Fatalf("preparing -> completed want 409 got %d", env.StatusCode)
	}
}

func TestAdminRBACOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	auditor := f.adminToken(t, 31, authz.RoleReadonlyAuditor)
	support := f.adminToken(t, 32, authz.RoleSupport)
	finance := f.adminToken(t, 33, authz.RoleFinance)

	if env := f.do(t, http.MethodGet, "/api/v1/admin/orders", auditor, nil); env.StatusCode != 0 {
		t.Fatalf("auditor list orders want 0 got %d", env.StatusCode)
	}
	if env := f.do(t, http.MethodGet, "/api/v1/admin/payments/orphaned", auditor, nil); env.StatusCode != 0 {
		t.Fatalf("auditor list orphaned want 0 got %d", env.StatusCode)
	}
	if env := f.do(t, http.MethodPatch, "/api/v1/admin/orders/1/status", auditor, map[string]string{"status": "preparing"}); env.StatusCode != 403 {
		t.Fatalf("auditor update status want 403 got %d", env.StatusCode)
	}
	if env := f.do(t, http.MethodPost, "/api/v1/admin/payments/1/reconcile", support, nil); env.StatusCode != 403 {
		t.Fatalf("support reconcile want 403 got %d", env.StatusCode)
	}
	if env := f.do(t, http.MethodPost, "/api/v1/admin/payments/999/reconcile", finance, nil); env.StatusCode != 404 {
		t.Fatalf("finance reconcile of missing payment want 404 got %d", env.StatusCode)
	}

	env := f.do(t, http.MethodGet, "/api/v1/admin/authz/permissions", auditor, nil)
	var catalog []adminPermissionCatalogItem
	if err := json.Unmarshal(env.Data, &catalog); err != nil {
		t.Fatalf("decode catalog failed: %v", err)
	}
	found := false
	for _, item := range catalog {
		if item.Permission == "POST:/admin/payments/:id/reconcile" && item.Module == "payments" {
			found = true
		}
	}
	if !found {
		t.Fatalf("catalog missing reconcile permission: %+v", catalog)
	}

	env = f.do(t, http.MethodGet, "/api/v1/admin/authz/me", finance, nil)
	var profile struct {
		Role        string `json:"role"`
		Permissions []struct {
			Object string `json:"object"`
			Action string `json:"action"`
		} `json:"permissions"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("decode profile failed: %v", err)
	}
	if profile.Role != authz.RoleFinance || len(profile.Permissions) != 4 {
		t.Fatalf("unexpected finance profile: %+v", profile)
	}
}

func TestPublicRoutes(t *testing.T) {
	f := newRouterFixture(t)
	threshold := models.MustMoney("50.00")
	zone := &models.DeliveryZone{Name: "城西", BaseFee: models.MustMoney("6.00"), FreeThreshold: &threshold, Status: constants.StatusEnabled}
	if err := models.DB.Create(zone).Error; err != nil {
		t.Fatalf("create zone failed: %v", err)
	}

	env := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/public/delivery-fee?zone_id=%d&amount=20", zone.ID), "", nil)
	if env.StatusCode != 0 {
		t.Fatalf("delivery fee failed: %d %s", env.StatusCode, env.Msg)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health want 200 got %d", w.Code)
	}
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled want 404 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/wechat/notify", bytes.NewReader([]byte("not-json"))))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid callback want 400 got %d", w.Code)
	}
	var ack map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode callback ack failed: %v", err)
	}
	if ack["code"] != "FAIL" {
		t.Fatalf("callback ack want FAIL got %s", ack["code"])
	}
}
