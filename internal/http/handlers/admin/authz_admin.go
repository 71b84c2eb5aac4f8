package admin

import (
	"github.com/lingxian-next/internal/authz"
	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AdminProfile 当前管理员的角色与权限
type AdminProfile struct {
	AdminID     uint           `json:"admin_id"`
	Username    string         `json:"username"`
	Role        string         `json:"role"`
	Permissions []authz.Policy `json:"permissions"`
}

// AdminGetMyPermissions 查询当前管理员的角色与有效权限
func (h *Handler) AdminGetMyPermissions(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	role, err := h.AuthzService.RoleOf(adminID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	profile := AdminProfile{
		AdminID:     adminID,
		Username:    c.GetString(shared.ContextAdminUsername),
		Role:        role,
		Permissions: []authz.Policy{},
	}
	if role != "" {
		policies, err := h.AuthzService.Permissions(role)
		if err != nil {
			shared.RespondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		profile.Permissions = policies
	}
	response.Success(c, profile)
}
