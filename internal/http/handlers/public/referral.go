package public

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const visitorCookieMaxAge = 365 * 24 * 3600

// TrackReferralRequest 归因事件上报请求
type TrackReferralRequest struct {
	ReferralCode  string          `json:"referral_code"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	Action        string          `json:"action"`
	Amount        decimal.Decimal `json:"amount"`
	ListingsCount int             `json:"listings_count"`
}

// TrackReferralResponse 归因事件上报结果
type TrackReferralResponse struct {
	Attributed bool             `json:"attributed"`
	Referral   *models.Referral `json:"referral,omitempty"`
}

// TrackReferral 上报注册/购买事件并归因到推广用户
func (h *Handler) TrackReferral(c *gin.Context) {
	var req TrackReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if strings.TrimSpace(req.CustomerEmail) == "" || strings.TrimSpace(req.CustomerName) == "" || strings.TrimSpace(req.Action) == "" {
		respondError(c, response.CodeBadRequest, "error.missing_fields", nil)
		return
	}
	if h.attribution == nil {
		respondError(c, response.CodeInternal, "error.referral_track_failed", nil)
		return
	}

	code := strings.TrimSpace(req.ReferralCode)
	if cookieToken, err := c.Cookie(constants.AttributionCookieName); err == nil && cookieToken != "" {
		// 令牌只允许使用一次，无论本次归因成功与否都清除
		h.clearAttributionCookie(c)
		if code == "" && h.tokens != nil {
			code = h.tokens.Redeem(c.Request.Context(), cookieToken)
		}
	}

	result, err := h.attribution.Attribute(service.AttributionInput{
		ReferralCode:  code,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		EventType:     req.Action,
		Amount:        req.Amount,
		ListingsCount: req.ListingsCount,
	})
	if err != nil {
		if errors.Is(err, service.ErrReferralAlreadyTracked) || errors.Is(err, service.ErrInvalidReferralCode) {
			requestLog(c).Infow("referral_track_rejected",
				"referral_code", code,
				"action", req.Action,
				"reason", err.Error(),
			)
		}
		respondReferralTrackError(c, err)
		return
	}

	response.Success(c, TrackReferralResponse{
		Attributed: result.Attributed(),
		Referral:   result.Referral,
	})
}

// RedirectReferral 推荐链接入口：记录点击、写入归因凭证并跳转落地页
func (h *Handler) RedirectReferral(c *gin.Context) {
	code := strings.TrimSpace(c.Query(constants.AttributionQueryCode))
	target := h.resolveRedirectTarget(c.Query(constants.AttributionQueryTo))
	if code == "" || h.attribution == nil {
		c.Redirect(http.StatusFound, target)
		return
	}

	visitorKey := h.ensureVisitorKey(c)
	affiliate, err := h.attribution.TrackClick(service.ClickInput{
		ReferralCode: code,
		VisitorKey:   visitorKey,
		LandingURL:   target,
		Referrer:     c.GetHeader("Referer"),
		ClientIP:     c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidReferralCode) {
			requestLog(c).Infow("referral_redirect_code_invalid", "referral_code", code)
		} else {
			requestLog(c).Errorw("referral_redirect_click_failed", "referral_code", code, "error", err)
		}
		c.Redirect(http.StatusFound, target)
		return
	}

	if h.tokens != nil {
		token, expiresAt, err := h.tokens.Issue(affiliate.ReferralCode)
		if err != nil {
			requestLog(c).Errorw("attribution_token_issue_failed", "affiliate_id", affiliate.ID, "error", err)
		} else {
			h.setCookie(c, constants.AttributionCookieName, token, int(time.Until(expiresAt).Seconds()))
		}
	}
	c.Redirect(http.StatusFound, target)
}

// resolveRedirectTarget 仅允许站内路径或白名单域名，其余回落到默认落地页
func (h *Handler) resolveRedirectTarget(raw string) string {
	fallback := "/"
	if landing := strings.TrimSpace(h.cfg.DefaultLandingURL); landing != "" {
		fallback = landing
	}
	allowed := h.cfg.AllowedRedirectHosts
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	if parsed.Scheme == "" && parsed.Host == "" {
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
			return parsed.String()
		}
		return fallback
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fallback
	}
	host := strings.ToLower(parsed.Hostname())
	for _, item := range allowed {
		if strings.EqualFold(strings.TrimSpace(item), host) {
			return parsed.String()
		}
	}
	return fallback
}

func (h *Handler) ensureVisitorKey(c *gin.Context) string {
	if value, err := c.Cookie(constants.VisitorCookieName); err == nil {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	value := uuid.NewString()
	h.setCookie(c, constants.VisitorCookieName, value, visitorCookieMaxAge)
	return value
}

func (h *Handler) clearAttributionCookie(c *gin.Context) {
	h.setCookie(c, constants.AttributionCookieName, "", -1)
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", strings.TrimSpace(h.cfg.CookieDomain), h.cfg.CookieSecure, true)
}
