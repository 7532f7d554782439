package admin

import (
	"strconv"
	"strings"

	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
)

func parseDashboardQuery(c *gin.Context, operatorID uint) service.DashboardQueryInput {
	input := service.DashboardQueryInput{
		OperatorID:   operatorID,
		Range:        strings.TrimSpace(c.Query("range")),
		ForceRefresh: c.Query("force_refresh") == "1" || strings.EqualFold(c.Query("force_refresh"), "true"),
	}
	if from, ok := parseQueryTime(c, "from"); ok {
		input.From = from
	}
	if to, ok := parseQueryTime(c, "to"); ok {
		input.To = to
	}
	if limit, err := strconv.Atoi(strings.TrimSpace(c.Query("limit"))); err == nil {
		input.Limit = limit
	}
	return input
}

// GetDashboardOverview 仪表盘总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.DashboardService == nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", nil)
		return
	}
	data, err := h.DashboardService.GetOverview(c.Request.Context(), parseDashboardQuery(c, operatorID))
	if err != nil {
		respondMappedError(c, err, dashboardErrorRules, "error.dashboard_fetch_failed")
		return
	}
	response.Success(c, data)
}

// GetDashboardTrends 仪表盘趋势
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.DashboardService == nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", nil)
		return
	}
	data, err := h.DashboardService.GetTrends(c.Request.Context(), parseDashboardQuery(c, operatorID))
	if err != nil {
		respondMappedError(c, err, dashboardErrorRules, "error.dashboard_fetch_failed")
		return
	}
	response.Success(c, data)
}

// GetDashboardRankings 仪表盘排行
func (h *Handler) GetDashboardRankings(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.DashboardService == nil {
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", nil)
		return
	}
	data, err := h.DashboardService.GetRankings(c.Request.Context(), parseDashboardQuery(c, operatorID))
	if err != nil {
		respondMappedError(c, err, dashboardErrorRules, "error.dashboard_fetch_failed")
		return
	}
	response.Success(c, data)
}
