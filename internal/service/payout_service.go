package service

import (
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"

	"github.com/shopspring/decimal"
)

// PayoutCreateInput 登记打款输入
type PayoutCreateInput struct {
	AffiliateID uint
	Amount      decimal.Decimal
	Method      string
	Reference   string
	Status      string
}

// PayoutService 打款登记服务
type PayoutService struct {
	repo          repository.PayoutRepository
	affiliateRepo repository.AffiliateRepository
}

// NewPayoutService 创建打款登记服务
func NewPayoutService(repo repository.PayoutRepository, affiliateRepo repository.AffiliateRepository) *PayoutService {
	return &PayoutService{repo: repo, affiliateRepo: affiliateRepo}
}

// CreatePayout 登记打款
func (s *PayoutService) CreatePayout(operatorID uint, input PayoutCreateInput) (*models.Payout, error) {
	method := strings.TrimSpace(input.Method)
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = constants.PayoutStatusPending
	}
	if method == "" || !input.Amount.IsPositive() || !validPayoutStatus(status) {
		return nil, ErrPayoutInvalid
	}
	if _, err := s.ownedAffiliate(operatorID, input.AffiliateID); err != nil {
		return nil, err
	}

	now := time.Now()
	payout := &models.Payout{
		AffiliateID: input.AffiliateID,
		Amount:      models.NewMoneyFromDecimal(input.Amount),
		Method:      method,
		Reference:   strings.TrimSpace(input.Reference),
		Status:      status,
		CreatedAt:   now,
	}
	if isFinalPayoutStatus(status) {
		payout.ProcessedAt = &now
	}
	if err := s.repo.Create(payout); err != nil {
		return nil, err
	}
	return payout, nil
}

// UpdatePayoutStatus 推进打款状态，终态不可再变更
func (s *PayoutService) UpdatePayoutStatus(operatorID, id uint, rawStatus string) (*models.Payout, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	payout, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrPayoutNotFound
	}
	if _, err := s.ownedAffiliate(operatorID, payout.AffiliateID); err != nil {
		return nil, ErrPayoutNotFound
	}
	if !canTransitPayout(payout.Status, status) {
		return nil, ErrPayoutStatusInvalid
	}

	var processedAt *time.Time
	if isFinalPayoutStatus(status) {
		now := time.Now()
		processedAt = &now
	}
	if err := s.repo.UpdateStatus(payout.ID, status, processedAt); err != nil {
		return nil, err
	}
	payout.Status = status
	if processedAt != nil {
		payout.ProcessedAt = processedAt
	}
	return payout, nil
}

// ListPayouts 查询打款记录
func (s *PayoutService) ListPayouts(filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	return s.repo.List(filter)
}

func (s *PayoutService) ownedAffiliate(operatorID, affiliateID uint) (*models.Affiliate, error) {
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || affiliate.OperatorID != operatorID {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

func validPayoutStatus(status string) bool {
	switch status {
	case constants.PayoutStatusPending, constants.PayoutStatusProcessing, constants.PayoutStatusCompleted, constants.PayoutStatusFailed:
		return true
	default:
		return false
	}
}

func isFinalPayoutStatus(status string) bool {
	return status == constants.PayoutStatusCompleted || status == constants.PayoutStatusFailed
}

func canTransitPayout(from, to string) bool {
	switch from {
	case constants.PayoutStatusPending:
		return to == constants.PayoutStatusProcessing || to == constants.PayoutStatusCompleted || to == constants.PayoutStatusFailed
	case constants.PayoutStatusProcessing:
		return to == constants.PayoutStatusCompleted || to == constants.PayoutStatusFailed
	default:
		return false
	}
}
