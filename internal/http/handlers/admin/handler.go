package admin

import (
	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 后台管理接口处理器
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func getAdminID(c *gin.Context) (uint, bool) {
	return shared.GetContextUintWithKeys(c, shared.ContextAdminID, "error.admin_id_invalid")
}
