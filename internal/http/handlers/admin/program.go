package admin

import (
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateProgramRequest 创建推广计划请求
type CreateProgramRequest struct {
	Name           string          `json:"name" binding:"required"`
	Kind           string          `json:"kind" binding:"required"`
	CommissionType string          `json:"commission_type" binding:"required"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Status         string          `json:"status"`
}

// UpdateProgramRequest 更新推广计划请求
type UpdateProgramRequest struct {
	Name           *string          `json:"name"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	Status         *string          `json:"status"`
}

// ListPrograms 查询运营方推广计划
func (h *Handler) ListPrograms(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.ProgramService == nil {
		respondError(c, response.CodeInternal, "error.program_fetch_failed", nil)
		return
	}
	rows, err := h.ProgramService.ListPrograms(operatorID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.program_fetch_failed", err)
		return
	}
	response.Success(c, rows)
}

// CreateProgram 创建推广计划
func (h *Handler) CreateProgram(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.ProgramService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	program, err := h.ProgramService.CreateProgram(operatorID, service.ProgramInput{
		Name:           req.Name,
		Kind:           req.Kind,
		CommissionType: req.CommissionType,
		CommissionRate: req.CommissionRate,
		Status:         req.Status,
	})
	if err != nil {
		respondMappedError(c, err, programErrorRules, "error.save_failed")
		return
	}
	response.Success(c, program)
}

// UpdateProgram 更新推广计划
func (h *Handler) UpdateProgram(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.ProgramService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	program, err := h.ProgramService.UpdateProgram(operatorID, id, service.ProgramUpdateInput{
		Name:           req.Name,
		CommissionRate: req.CommissionRate,
		Status:         req.Status,
	})
	if err != nil {
		respondMappedError(c, err, programErrorRules, "error.save_failed")
		return
	}
	response.Success(c, program)
}
