package admin

import (
	"strings"
	"time"

	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/repository"

	"github.com/gin-gonic/gin"
)

// StatusUpdateRequest 状态变更请求
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListReferrals 查询运营方推荐记录
func (h *Handler) ListReferrals(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, "error.referral_fetch_failed", nil)
		return
	}
	page, pageSize := parsePagination(c)
	filter := repository.ReferralListFilter{
		Page:             page,
		PageSize:         pageSize,
		OperatorID:       operatorID,
		AffiliateID:      parseQueryUint(c, "affiliate_id"),
		Status:           strings.TrimSpace(c.Query("status")),
		ValidationStatus: strings.TrimSpace(c.Query("validation_status")),
		CustomerEmail:    strings.TrimSpace(c.Query("customer_email")),
	}
	if from, ok := parseQueryTime(c, "created_from"); ok {
		filter.CreatedFrom = from
	}
	if to, ok := parseQueryTime(c, "created_to"); ok {
		filter.CreatedTo = to
	}

	rows, total, err := h.ReferralService.ListReferrals(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.referral_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, rows, page, pageSize, total)
}

// UpdateReferralStatus 推进推荐记录状态
func (h *Handler) UpdateReferralStatus(c *gin.Context) {
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
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, "error.save_failed", nil)
		return
	}
	referral, err := h.ReferralService.UpdateReferralStatus(operatorID, id, req.Status)
	if err != nil {
		respondMappedError(c, err, referralStatusErrorRules, "error.save_failed")
		return
	}
	response.Success(c, referral)
}

// ValidateReferrals 对运营方未校验或 amber 的推荐记录批量对账
func (h *Handler) ValidateReferrals(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	if h.ValidationService == nil {
		respondError(c, response.CodeInternal, "error.validation_failed", nil)
		return
	}
	result, err := h.ValidationService.ReconcileOperator(c.Request.Context(), operatorID)
	if err != nil {
		respondMappedError(c, err, validationErrorRules, "error.validation_failed")
		return
	}
	requestLog(c).Infow("referral_batch_validated",
		"operator_id", operatorID,
		"total", result.Total,
		"validated", result.Validated,
		"errored", result.Errored,
		"canceled", result.Canceled,
	)
	response.Success(c, result)
}

// ValidateReferral 对单条推荐记录对账
func (h *Handler) ValidateReferral(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	if h.ValidationService == nil {
		respondError(c, response.CodeInternal, "error.validation_failed", nil)
		return
	}
	referral, err := h.ValidationService.ReconcileByID(c.Request.Context(), operatorID, id)
	if err != nil {
		respondMappedError(c, err, validationErrorRules, "error.validation_failed")
		return
	}
	response.Success(c, referral)
}

func parseQueryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, true
		}
	}
	return nil, false
}
