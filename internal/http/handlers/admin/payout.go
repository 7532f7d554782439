package admin

import (
	"strings"

	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/repository"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePayoutRequest 登记打款请求
type CreatePayoutRequest struct {
	AffiliateID uint            `json:"affiliate_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method" binding:"required"`
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
}

// ListPayouts 查询运营方打款记录
func (h *Handler) ListPayouts(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "error.payout_fetch_failed", nil)
		return
	}
	page, pageSize := parsePagination(c)
	rows, total, err := h.PayoutService.ListPayouts(repository.PayoutListFilter{
		Page:        page,
		PageSize:    pageSize,
		OperatorID:  operatorID,
		AffiliateID: parseQueryUint(c, "affiliate_id"),
		Status:      strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.payout_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, page, pageSize, total)
}

// CreatePayout 登记打款
func (h *Handler) CreatePayout(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	var req CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	payout, err := h.PayoutService.CreatePayout(operatorID, service.PayoutCreateInput{
		AffiliateID: req.AffiliateID,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		Status:      req.Status,
	})
	if err != nil {
		respondMappedError(c, err, payoutErrorRules, "error.save_failed")
		return
	}
	requestLog(c).Infow("payout_recorded",
		"operator_id", operatorID,
		"affiliate_id", payout.AffiliateID,
		"payout_id", payout.ID,
		"amount", payout.Amount.String(),
	)
	response.Success(c, payout)
}

// UpdatePayoutStatus 推进打款状态
func (h *Handler) UpdatePayoutStatus(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.PayoutService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	payout, err := h.PayoutService.UpdatePayoutStatus(operatorID, id, req.Status)
	if err != nil {
		respondMappedError(c, err, payoutErrorRules, "error.save_failed")
		return
	}
	response.Success(c, payout)
}
