package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"
)

// 管理员主体 admin:<id>，角色主体 role:<name>
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

var (
	ErrUnavailable = errors.New("authz service unavailable")
	ErrUnknownRole = errors.New("unknown admin role")
	ErrAdminID     = errors.New("admin id is required")
)

// Policy 一条后台接口权限
type Policy struct {
	Role   string `json:"role"`
	Object string `json:"object"`
	Action string `json:"action"`
}

// Service 后台接口鉴权，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceAdmin 判定管理员能否以 method 访问路由模板 path
func (s *Service) EnforceAdmin(adminID uint, path, method string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if adminID == 0 {
		return false, nil
	}
	return s.enforcer.Enforce(adminSubject(adminID), NormalizeObject(path), NormalizeAction(method))
}

// AssignRole 管理员只持有一个预置角色，重复分配会覆盖
func (s *Service) AssignRole(adminID uint, role string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if adminID == 0 {
		return ErrAdminID
	}
	if !IsBuiltinRole(role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	subject := adminSubject(adminID)
	if _, err := s.enforcer.RemoveFilteredGroupingPolicy(0, subject); err != nil {
		return fmt.Errorf("clear admin role failed: %w", err)
	}
	if _, err := s.enforcer.AddGroupingPolicy(subject, roleSubject(role)); err != nil {
		return fmt.Errorf("assign admin role failed: %w", err)
	}
	return nil
}

// RoleOf 管理员当前角色，未分配返回空串
func (s *Service) RoleOf(adminID uint) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if adminID == 0 {
		return "", ErrAdminID
	}
	roles, err := s.enforcer.GetRolesForUser(adminSubject(adminID))
	if err != nil {
		return "", fmt.Errorf("get admin role failed: %w", err)
	}
	for _, role := range roles {
		name := strings.TrimPrefix(role, rolePrefix)
		if IsBuiltinRole(name) {
			return name, nil
		}
	}
	return "", nil
}

// Permissions 角色的全部权限，含继承得到的部分
func (s *Service) Permissions(role string) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !IsBuiltinRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	rules, err := s.enforcer.GetImplicitPermissionsForUser(roleSubject(role))
	if err != nil {
		return nil, fmt.Errorf("get role permissions failed: %w", err)
	}
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Role:   strings.TrimPrefix(rule[0], rolePrefix),
			Object: rule[1],
			Action: rule[2],
		})
	}
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Object == policies[j].Object {
			return policies[i].Action < policies[j].Action
		}
		return policies[i].Object < policies[j].Object
	})
	return policies, nil
}

func adminSubject(adminID uint) string {
	return fmt.Sprintf("admin:%d", adminID)
}

func roleSubject(role string) string {
	return rolePrefix + strings.TrimSpace(role)
}

// NormalizeObject 路由模板去掉 /api/v1 前缀后参与匹配
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
