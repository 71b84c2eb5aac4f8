package authz

import "fmt"

const (
	RoleReadonlyAuditor = "readonly_auditor"
	RoleSupport         = "support"
	RoleFinance         = "finance"
)

type roleSeed struct {
	role     string
	inherits string
	policies [][2]string
}

// 客服推进订单状态，财务处理退款与对账，审计只读
var builtinRoles = []roleSeed{
	{
		role:     RoleReadonlyAuditor,
		policies: [][2]string{{"/admin/*", "GET"}},
	},
	{
		role:     RoleSupport,
		inherits: RoleReadonlyAuditor,
		policies: [][2]string{{"/admin/orders/:id/status", "PATCH"}},
	},
	{
		role:     RoleFinance,
		inherits: RoleReadonlyAuditor,
		policies: [][2]string{
			{"/admin/orders/:id/refund/confirm", "POST"},
			{"/admin/payments/:id/reconcile", "POST"},
			{"/admin/payments/:id/refund", "POST"},
		},
	},
}

// BuiltinRoles 预置角色名
func BuiltinRoles() []string {
	roles := make([]string, 0, len(builtinRoles))
	for _, seed := range builtinRoles {
		roles = append(roles, seed.role)
	}
	return roles
}

func IsBuiltinRole(role string) bool {
	for _, seed := range builtinRoles {
		if seed.role == role {
			return true
		}
	}
	return false
}

// BootstrapBuiltinRoles 把预置角色的策略与继承关系重置为当前矩阵，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range builtinRoles {
		subject := roleSubject(seed.role)
		if _, err := s.enforcer.RemoveFilteredPolicy(0, subject); err != nil {
			return fmt.Errorf("reset role %s policies failed: %w", seed.role, err)
		}
		if _, err := s.enforcer.RemoveFilteredGroupingPolicy(0, subject); err != nil {
			return fmt.Errorf("reset role %s inheritance failed: %w", seed.role, err)
		}
		rules := make([][]string, 0, len(seed.policies))
		for _, p := range seed.policies {
			rules = append(rules, []string{subject, NormalizeObject(p[0]), NormalizeAction(p[1])})
		}
		if _, err := s.enforcer.AddPolicies(rules); err != nil {
			return fmt.Errorf("add role %s policies failed: %w", seed.role, err)
		}
		if seed.inherits != "" {
			if _, err := s.enforcer.AddGroupingPolicy(subject, roleSubject(seed.inherits)); err != nil {
				return fmt.Errorf("link role %s inheritance failed: %w", seed.role, err)
			}
		}
	}
	return nil
}
