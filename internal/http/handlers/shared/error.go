package shared

import (
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 带 request_id 与运营方ID的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	fields := make([]interface{}, 0, 4)
	if id := response.RequestID(c); id != "" {
		fields = append(fields, "request_id", id)
	}
	if operatorID, ok := c.Get(ContextKeyOperatorID); ok {
		fields = append(fields, "operator_id", operatorID)
	}
	if len(fields) == 0 {
		return logger.S()
	}
	return logger.SW(fields...)
}

// RespondError 按消息 key 返回错误；err 非空时记录原始错误，不透出给调用方
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := Message(key)
	if err != nil {
		RequestLog(c).Errorw("handler_error", "code", code, "message_key", key, "error", err)
	}
	response.Error(c, code, msg)
}
