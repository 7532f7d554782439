package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getOperatorID(c *gin.Context) (uint, bool) {
	return handlershared.OperatorID(c)
}

func parsePathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}

func parseQueryUint(c *gin.Context, name string) uint {
	value, _ := strconv.ParseUint(strings.TrimSpace(c.Query(name)), 10, 64)
	return uint(value)
}

func parsePagination(c *gin.Context) (int, int) {
	return handlershared.ParsePage(c)
}
