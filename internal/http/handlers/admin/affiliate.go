package admin

import (
	"strings"

	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/repository"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateAffiliateRequest 创建推广用户请求
type CreateAffiliateRequest struct {
	ProgramID uint   `json:"program_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Status    string `json:"status"`
}

// ListAffiliates 查询运营方推广用户
func (h *Handler) ListAffiliates(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "error.affiliate_fetch_failed", nil)
		return
	}
	page, pageSize := parsePagination(c)
	rows, total, err := h.AffiliateService.ListAffiliates(repository.AffiliateListFilter{
		Page:       page,
		PageSize:   pageSize,
		OperatorID: operatorID,
		ProgramID:  parseQueryUint(c, "program_id"),
		Status:     strings.TrimSpace(c.Query("status")),
		Keyword:    strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.affiliate_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, page, pageSize, total)
}

// CreateAffiliate 创建推广用户
func (h *Handler) CreateAffiliate(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	var req CreateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	affiliate, err := h.AffiliateService.CreateAffiliate(operatorID, service.AffiliateCreateInput{
		ProgramID: req.ProgramID,
		Name:      req.Name,
		Email:     req.Email,
		Status:    req.Status,
	})
	if err != nil {
		respondMappedError(c, err, concatAffiliateRules(), "error.save_failed")
		return
	}
	requestLog(c).Infow("affiliate_created",
		"operator_id", operatorID,
		"affiliate_id", affiliate.ID,
		"referral_code", affiliate.ReferralCode,
	)
	response.Success(c, affiliate)
}

// UpdateAffiliateStatus 更新推广用户状态
func (h *Handler) UpdateAffiliateStatus(c *gin.Context) {
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
	if h.AffiliateService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	affiliate, err := h.AffiliateService.UpdateAffiliateStatus(operatorID, id, req.Status)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "error.save_failed")
		return
	}
	response.Success(c, affiliate)
}

// GetAffiliateLedger 查询推广用户账本与待结算余额
func (h *Handler) GetAffiliateLedger(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	if h.LedgerService == nil {
		respondError(c, response.CodeInternal, "error.ledger_fetch_failed", nil)
		return
	}
	ledger, err := h.LedgerService.Ledger(operatorID, id)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "error.ledger_fetch_failed")
		return
	}
	response.Success(c, ledger)
}

func concatAffiliateRules() []handlershared.MappedError {
	return handlershared.ConcatMappedErrors(affiliateErrorRules, programErrorRules)
}
