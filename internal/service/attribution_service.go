package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/queue"
	"github.com/affiliate-desk/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultClickDedupeWindow = 10 * time.Minute

// AttributionInput 归因事件输入
type AttributionInput struct {
	ReferralCode  string
	CustomerEmail string
	CustomerName  string
	EventType     string
	Amount        decimal.Decimal
	ListingsCount int
}

// AttributionResult 归因结果；未携带推荐码时 Referral 为空
type AttributionResult struct {
	Referral *models.Referral
}

// Attributed 是否生成了推荐记录
func (r AttributionResult) Attributed() bool {
	return r.Referral != nil
}

// ClickInput 推荐链接点击输入
type ClickInput struct {
	ReferralCode string
	VisitorKey   string
	LandingURL   string
	Referrer     string
	ClientIP     string
	UserAgent    string
}

// AttributionService 推荐归因服务
type AttributionService struct {
	cfg           *config.Config
	directory     *AffiliateDirectory
	affiliateRepo repository.AffiliateRepository
	referralRepo  repository.ReferralRepository
	queueClient   *queue.Client
}

// NewAttributionService 创建推荐归因服务
func NewAttributionService(
	cfg *config.Config,
	directory *AffiliateDirectory,
	affiliateRepo repository.AffiliateRepository,
	referralRepo repository.ReferralRepository,
	queueClient *queue.Client,
) *AttributionService {
	return &AttributionService{
		cfg:           cfg,
		directory:     directory,
		affiliateRepo: affiliateRepo,
		referralRepo:  referralRepo,
		queueClient:   queueClient,
	}
}

// Attribute 将事件归因到推广用户并生成推荐记录
func (s *AttributionService) Attribute(input AttributionInput) (AttributionResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	name := strings.TrimSpace(input.CustomerName)
	eventType := strings.ToLower(strings.TrimSpace(input.EventType))
	if email == "" || name == "" || eventType == "" {
		return AttributionResult{}, ErrMissingFields
	}
	if eventType != constants.EventTypeSignup && eventType != constants.EventTypePurchase {
		return AttributionResult{}, ErrInvalidEventType
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AttributionResult{}, ErrInvalidEmail
	}
	if input.Amount.IsNegative() || input.ListingsCount < 0 {
		return AttributionResult{}, ErrInvalidAmount
	}

	code := normalizeReferralCode(input.ReferralCode)
	if code == "" {
		return AttributionResult{}, nil
	}

	affiliate, err := s.directory.FindByCode(code)
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			return AttributionResult{}, ErrInvalidReferralCode
		}
		return AttributionResult{}, err
	}

	existing, err := s.referralRepo.GetByAffiliateAndEmail(affiliate.ID, email)
	if err != nil {
		return AttributionResult{}, err
	}
	if existing != nil {
		return AttributionResult{}, ErrReferralAlreadyTracked
	}

	amount := input.Amount
	if eventType == constants.EventTypeSignup {
		amount = decimal.Zero
	}
	commission := ComputeCommission(affiliate.Program, eventType, amount)
	status := constants.ReferralStatusPending
	if eventType == constants.EventTypeSignup {
		status = constants.ReferralStatusApproved
	}

	now := time.Now()
	referral := &models.Referral{
		AffiliateID:      affiliate.ID,
		ProgramID:        affiliate.ProgramID,
		CustomerEmail:    email,
		CustomerName:     name,
		EventType:        eventType,
		Amount:           models.NewMoneyFromDecimal(amount),
		ListingsCount:    input.ListingsCount,
		CommissionEarned: models.NewMoneyFromDecimal(commission),
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.referralRepo.Create(referral); err != nil {
		if repository.IsUniqueViolation(err) {
			return AttributionResult{}, ErrReferralAlreadyTracked
		}
		return AttributionResult{}, err
	}
	referral.Affiliate = affiliate

	s.scheduleCounters(referral)
	s.scheduleValidation(referral)

	logger.Infow("referral_attributed",
		"referral_id", referral.ID,
		"affiliate_id", affiliate.ID,
		"event_type", eventType,
		"commission", referral.CommissionEarned.String(),
	)
	return AttributionResult{Referral: referral}, nil
}

// ApplyReferralCounters 累加推荐记录对应的推广用户计数，重复调用不会重复累加
func (s *AttributionService) ApplyReferralCounters(referralID uint) error {
	if referralID == 0 {
		return nil
	}
	return s.referralRepo.Transaction(func(tx *gorm.DB) error {
		referralRepo := s.referralRepo.WithTx(tx)
		referral, err := referralRepo.GetByID(referralID)
		if err != nil {
			return err
		}
		if referral == nil {
			return fmt.Errorf("%w: %d", ErrReferralNotFound, referralID)
		}
		first, err := referralRepo.MarkCountersApplied(referral.ID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
		return s.affiliateRepo.WithTx(tx).IncrementCounters(referral.AffiliateID, 1, referral.CommissionEarned.Decimal)
	})
}

// SweepPendingCounters 补偿累加入队与同步累加都失败的推荐记录计数，返回本轮补偿条数
func (s *AttributionService) SweepPendingCounters(ctx context.Context, grace time.Duration, limit int) (int, error) {
	if grace < 0 {
		grace = 0
	}
	ids, err := s.referralRepo.ListCountersPending(time.Now().Add(-grace), limit)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := s.ApplyReferralCounters(id); err != nil {
			logger.Warnw("referral_counters_sweep_failed", "referral_id", id, "error", err)
			continue
		}
		applied++
	}
	if applied > 0 {
		logger.Infow("referral_counters_swept", "pending", len(ids), "applied", applied)
	}
	return applied, nil
}

// TrackClick 记录推荐链接点击，返回推荐码对应的推广用户
func (s *AttributionService) TrackClick(input ClickInput) (*models.Affiliate, error) {
	affiliate, err := s.directory.FindByCode(input.ReferralCode)
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}

	visitorKey := strings.TrimSpace(input.VisitorKey)
	if visitorKey != "" {
		duplicated, err := s.affiliateRepo.HasRecentClick(affiliate.ID, visitorKey, time.Now().Add(-s.clickDedupeWindow()))
		if err != nil {
			return nil, err
		}
		if duplicated {
			return affiliate, nil
		}
	}

	click := &models.AffiliateClick{
		AffiliateID: affiliate.ID,
		VisitorKey:  visitorKey,
		LandingURL:  strings.TrimSpace(input.LandingURL),
		Referrer:    strings.TrimSpace(input.Referrer),
		ClientIP:    strings.TrimSpace(input.ClientIP),
		UserAgent:   strings.TrimSpace(input.UserAgent),
		CreatedAt:   time.Now(),
	}
	if err := s.affiliateRepo.CreateClick(click); err != nil {
		return nil, err
	}
	return affiliate, nil
}

func (s *AttributionService) scheduleCounters(referral *models.Referral) {
	if s.queueClient != nil && s.queueClient.Enabled() {
		err := s.queueClient.EnqueueAffiliateCounters(queue.AffiliateCountersPayload{ReferralID: referral.ID})
		if err == nil {
			return
		}
		logger.Warnw("referral_counters_enqueue_failed", "referral_id", referral.ID, "error", err)
	}
	if err := s.ApplyReferralCounters(referral.ID); err != nil {
		logger.Errorw("referral_counters_apply_failed",
			"referral_id", referral.ID,
			"affiliate_id", referral.AffiliateID,
			"error", err,
		)
	}
}

func (s *AttributionService) scheduleValidation(referral *models.Referral) {
	if s.cfg == nil || !s.cfg.Validation.ValidateOnCreate {
		return
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueReferralValidate(queue.ReferralValidatePayload{ReferralID: referral.ID}); err != nil {
		logger.Warnw("referral_validate_enqueue_failed", "referral_id", referral.ID, "error", err)
	}
}

func (s *AttributionService) clickDedupeWindow() time.Duration {
	if s.cfg != nil && s.cfg.Attribution.ClickDedupeMinutes > 0 {
		return time.Duration(s.cfg.Attribution.ClickDedupeMinutes) * time.Minute
	}
	return defaultClickDedupeWindow
}
