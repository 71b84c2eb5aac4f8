package shared

import (
	"github.com/lingxian-next/internal/http/response"
	"github.com/lingxian-next/internal/i18n"
	"github.com/lingxian-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString(ContextRequestID); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 按语言返回错误文案；err 非空时记录原因，5xx 记为 error 级别
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		log := RequestLog(c)
		kv := []interface{}{"code", code, "key", key, "path", c.FullPath(), "error", err}
		if code >= response.CodeInternal {
			log.Errorw("handler_error", kv...)
		} else {
			log.Warnw("handler_error", kv...)
		}
	}
	response.Error(c, code, msg)
}
