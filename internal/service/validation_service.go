package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/marketplace"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultValidationDelay   = 100 * time.Millisecond
	defaultValidationTimeout = 5 * time.Second
)

// MarketplaceDirectory 外部市场系统用户查询；用户不存在时返回 nil, nil
type MarketplaceDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*marketplace.User, error)
}

// ValidationItemResult 单条校验结果
type ValidationItemResult struct {
	ReferralID uint   `json:"referral_id"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ValidationBatchResult 批量校验汇总
type ValidationBatchResult struct {
	Total     int                    `json:"total"`
	Validated int                    `json:"validated"`
	Errored   int                    `json:"errored"`
	Failed    int                    `json:"failed"`
	Green     int                    `json:"green"`
	Amber     int                    `json:"amber"`
	Red       int                    `json:"red"`
	Canceled  bool                   `json:"canceled"`
	Items     []ValidationItemResult `json:"items"`
}

func (r *ValidationBatchResult) record(item ValidationItemResult) {
	r.Items = append(r.Items, item)
	if item.Status == "" {
		r.Failed++
		return
	}
	if item.Status == constants.ValidationStatusError {
		// 外部查询失败，未得出结论
		r.Errored++
		return
	}
	r.Validated++
	switch item.Status {
	case constants.ValidationStatusGreen:
		r.Green++
	case constants.ValidationStatusAmber:
		r.Amber++
	case constants.ValidationStatusRed:
		r.Red++
	}
}

// ValidationService 推荐记录对账服务
type ValidationService struct {
	referralRepo repository.ReferralRepository
	market       MarketplaceDirectory
	timeout      time.Duration
	delay        time.Duration
	workers      int
	now          func() time.Time
}

// NewValidationService 创建推荐记录对账服务
func NewValidationService(cfg *config.Config, referralRepo repository.ReferralRepository, market MarketplaceDirectory) *ValidationService {
	svc := &ValidationService{
		referralRepo: referralRepo,
		market:       market,
		timeout:      defaultValidationTimeout,
		delay:        defaultValidationDelay,
		workers:      1,
		now:          time.Now,
	}
	if cfg != nil {
		if cfg.Marketplace.TimeoutMS > 0 {
			svc.timeout = time.Duration(cfg.Marketplace.TimeoutMS) * time.Millisecond
		}
		if cfg.Validation.DelayMS >= 0 {
			svc.delay = time.Duration(cfg.Validation.DelayMS) * time.Millisecond
		}
		if cfg.Validation.Workers > 1 {
			svc.workers = cfg.Validation.Workers
		}
	}
	return svc
}

// Reconcile 查询外部市场并写入校验状态。
// 查询失败记为 error 状态；只有持久化失败或上层取消才返回错误。
func (s *ValidationService) Reconcile(ctx context.Context, referral *models.Referral) (string, error) {
	if referral == nil || referral.ID == 0 {
		return "", ErrReferralNotFound
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	status, lookupErr := s.lookup(ctx, referral.CustomerEmail)
	if lookupErr != nil && ctx.Err() != nil {
		// 批量被取消，不写入
		return "", ctx.Err()
	}

	errText := ""
	if lookupErr != nil {
		errText = lookupErr.Error()
		logger.Ctx(ctx).Warnw("referral_validation_lookup_failed", "referral_id", referral.ID, "error", lookupErr)
	}
	now := s.now()
	if err := s.referralRepo.UpdateValidation(referral.ID, status, errText, now); err != nil {
		logger.Ctx(ctx).Errorw("referral_validation_persist_failed", "referral_id", referral.ID, "status", status, "error", err)
		return "", err
	}
	referral.ValidationStatus = &status
	referral.ValidationError = errText
	referral.ValidationUpdatedAt = &now
	return status, nil
}

// ReconcileAll 批量校验；单条失败不影响其余记录，取消后停止派发
func (s *ValidationService) ReconcileAll(ctx context.Context, referrals []models.Referral) ValidationBatchResult {
	result := ValidationBatchResult{Total: len(referrals), Items: make([]ValidationItemResult, 0, len(referrals))}
	if len(referrals) == 0 {
		return result
	}

	var limiter *rate.Limiter
	if s.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	}
	var mu sync.Mutex
	collect := func(item ValidationItemResult) {
		mu.Lock()
		result.record(item)
		mu.Unlock()
	}

	stopped := false
	group := new(errgroup.Group)
	group.SetLimit(s.workers)
	for i := range referrals {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				stopped = true
				break
			}
		} else if ctx.Err() != nil {
			stopped = true
			break
		}
		referral := &referrals[i]
		group.Go(func() error {
			status, err := s.Reconcile(ctx, referral)
			item := ValidationItemResult{ReferralID: referral.ID, Status: status}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				item.Error = err.Error()
			}
			collect(item)
			return nil
		})
	}
	_ = group.Wait()

	if stopped || (ctx.Err() != nil && len(result.Items) < result.Total) {
		result.Canceled = true
	}
	logger.Ctx(ctx).Infow("referral_validation_batch_finished",
		"total", result.Total,
		"validated", result.Validated,
		"errored", result.Errored,
		"failed", result.Failed,
		"canceled", result.Canceled,
	)
	return result
}

// ReconcileOperator 校验运营方名下所有未校验、amber 或 error 的推荐记录
func (s *ValidationService) ReconcileOperator(ctx context.Context, operatorID uint) (ValidationBatchResult, error) {
	candidates, err := s.referralRepo.ListValidationCandidates(operatorID)
	if err != nil {
		return ValidationBatchResult{}, err
	}
	return s.ReconcileAll(logger.With(ctx, "operator_id", operatorID), candidates), nil
}

// ReconcileByID 校验运营方名下的单条推荐记录
func (s *ValidationService) ReconcileByID(ctx context.Context, operatorID, referralID uint) (*models.Referral, error) {
	referral, err := s.referralRepo.GetByIDForOperator(operatorID, referralID)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrReferralNotFound
	}
	if _, err := s.Reconcile(ctx, referral); err != nil {
		return nil, err
	}
	return referral, nil
}

// ReconcileReferral 按ID校验单条推荐记录（异步任务入口）
func (s *ValidationService) ReconcileReferral(ctx context.Context, referralID uint) error {
	referral, err := s.referralRepo.GetByID(referralID)
	if err != nil {
		return err
	}
	if referral == nil {
		return nil
	}
	_, err = s.Reconcile(ctx, referral)
	return err
}

func (s *ValidationService) lookup(ctx context.Context, email string) (string, error) {
	if s.market == nil {
		return constants.ValidationStatusError, ErrMarketplaceDisabled
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.market.GetUserByEmail(lookupCtx, email)
	if err != nil {
		return constants.ValidationStatusError, fmt.Errorf("%w: %v", ErrExternalLookupFailed, err)
	}
	if user == nil {
		return constants.ValidationStatusRed, nil
	}
	if user.EmailVerified {
		return constants.ValidationStatusGreen, nil
	}
	return constants.ValidationStatusAmber, nil
}
