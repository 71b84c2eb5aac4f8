package public

import (
	"github.com/lingxian-next/internal/http/handlers/shared"
	"github.com/lingxian-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 小程序用户侧与公开接口处理器
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func getUserID(c *gin.Context) (uint, bool) {
	return shared.GetContextUintWithKeys(c, shared.ContextUserID, "error.user_id_invalid")
}
