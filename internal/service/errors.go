package service

import "errors"

// 通用错误
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorDisabled   = errors.New("operator disabled")
	ErrForbidden          = errors.New("forbidden")
)

// 归因相关错误
var (
	ErrMissingFields           = errors.New("missing required fields")
	ErrInvalidEventType        = errors.New("invalid event type")
	ErrInvalidEmail            = errors.New("invalid customer email")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidReferralCode     = errors.New("invalid referral code")
	ErrReferralAlreadyTracked  = errors.New("referral already tracked")
	ErrAffiliateNotFound       = errors.New("affiliate not found")
	ErrReferralNotFound        = errors.New("referral not found")
	ErrAttributionTokenInvalid = errors.New("attribution token invalid")
)

// 校验相关错误
var (
	ErrExternalLookupFailed = errors.New("external lookup failed")
	ErrMarketplaceDisabled  = errors.New("marketplace lookup not configured")
)

// 运营后台相关错误
var (
	ErrProgramNotFound        = errors.New("program not found")
	ErrProgramInvalid         = errors.New("program invalid")
	ErrAffiliateInvalid       = errors.New("affiliate invalid")
	ErrAffiliateEmailExists   = errors.New("affiliate email already exists")
	ErrAffiliateCodeExhausted = errors.New("affiliate code generation exhausted")
	ErrAffiliateStatusInvalid = errors.New("affiliate status invalid")
	ErrReferralStatusInvalid  = errors.New("referral status transition invalid")
	ErrPayoutInvalid          = errors.New("payout invalid")
	ErrPayoutNotFound         = errors.New("payout not found")
	ErrPayoutStatusInvalid    = errors.New("payout status transition invalid")
	ErrDashboardRangeInvalid  = errors.New("dashboard range invalid")
	ErrWeakPassword           = errors.New("password too weak")
	ErrPasswordMismatch       = errors.New("current password mismatch")
)
