package public

import (
	handlershared "github.com/affiliate-desk/internal/http/handlers/shared"
	"github.com/affiliate-desk/internal/http/response"
	"github.com/affiliate-desk/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var referralTrackErrorRules = []handlershared.MappedError{
	{Target: service.ErrMissingFields, Code: response.CodeBadRequest, Key: "error.missing_fields"},
	{Target: service.ErrInvalidEventType, Code: response.CodeBadRequest, Key: "error.event_type_invalid"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrInvalidAmount, Code: response.CodeBadRequest, Key: "error.amount_invalid"},
	{Target: service.ErrInvalidReferralCode, Code: response.CodeNotFound, Key: "error.referral_code_invalid"},
	{Target: service.ErrReferralAlreadyTracked, Code: response.CodeConflict, Key: "error.referral_already_tracked"},
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondReferralTrackError(c *gin.Context, err error) {
	handlershared.RespondMappedError(c, err, referralTrackErrorRules, response.CodeInternal, "error.referral_track_failed")
}
