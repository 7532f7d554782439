package shared

import (
	"strconv"
	"strings"

	"github.com/affiliate-desk/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ContextKeyOperatorID 鉴权中间件写入的运营方ID
const ContextKeyOperatorID = "operator_id"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OperatorID 读取当前运营方ID；未鉴权时直接返回 401
func OperatorID(c *gin.Context) (uint, bool) {
	id, ok := c.Get(ContextKeyOperatorID)
	operatorID, typed := id.(uint)
	if !ok || !typed || operatorID == 0 {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	return operatorID, true
}

// ParsePage 读取 page / page_size，非法值回落到默认值，page_size 上限 100
func ParsePage(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	if err != nil || pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
