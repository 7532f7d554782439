package admin

import (
	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var loginErrorRules = []handlershared.MappedError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: service.ErrOperatorDisabled, Code: response.CodeForbidden, Key: "error.operator_disabled"},
}

var passwordErrorRules = []handlershared.MappedError{
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
	{Target: service.ErrPasswordMismatch, Code: response.CodeBadRequest, Key: "error.password_mismatch"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
}

var dashboardErrorRules = []handlershared.MappedError{
	{Target: service.ErrDashboardRangeInvalid, Code: response.CodeBadRequest, Key: "error.dashboard_range_invalid"},
}

var validationErrorRules = []handlershared.MappedError{
	{Target: service.ErrReferralNotFound, Code: response.CodeNotFound, Key: "error.referral_not_found"},
	{Target: service.ErrMarketplaceDisabled, Code: response.CodeInternal, Key: "error.marketplace_not_configured"},
}

var programErrorRules = []handlershared.MappedError{
	{Target: service.ErrProgramNotFound, Code: response.CodeNotFound, Key: "error.program_not_found"},
	{Target: service.ErrProgramInvalid, Code: response.CodeBadRequest, Key: "error.program_invalid"},
}

var affiliateErrorRules = []handlershared.MappedError{
	{Target: service.ErrAffiliateNotFound, Code: response.CodeNotFound, Key: "error.affiliate_not_found"},
	{Target: service.ErrAffiliateInvalid, Code: response.CodeBadRequest, Key: "error.affiliate_invalid"},
	{Target: service.ErrAffiliateEmailExists, Code: response.CodeConflict, Key: "error.affiliate_email_exists"},
	{Target: service.ErrAffiliateCodeExhausted, Code: response.CodeInternal, Key: "error.affiliate_code_exhausted"},
	{Target: service.ErrAffiliateStatusInvalid, Code: response.CodeBadRequest, Key: "error.affiliate_status_invalid"},
}

var referralStatusErrorRules = []handlershared.MappedError{
	{Target: service.ErrReferralNotFound, Code: response.CodeNotFound, Key: "error.referral_not_found"},
	{Target: service.ErrReferralStatusInvalid, Code: response.CodeBadRequest, Key: "error.referral_status_invalid"},
}

var payoutErrorRules = []handlershared.MappedError{
	{Target: service.ErrAffiliateNotFound, Code: response.CodeNotFound, Key: "error.affiliate_not_found"},
	{Target: service.ErrPayoutInvalid, Code: response.CodeBadRequest, Key: "error.payout_invalid"},
	{Target: service.ErrPayoutNotFound, Code: response.CodeNotFound, Key: "error.payout_not_found"},
	{Target: service.ErrPayoutStatusInvalid, Code: response.CodeBadRequest, Key: "error.payout_status_invalid"},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackKey string) {
	handlershared.RespondMappedError(c, err, rules, response.CodeInternal, fallbackKey)
}
