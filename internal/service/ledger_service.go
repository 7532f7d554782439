package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"

	"github.com/shopspring/decimal"
)

// LedgerTransaction 账本流水（推荐为正，打款为负）
type LedgerTransaction struct {
	Kind        string       `json:"kind"`
	SourceID    uint         `json:"source_id"`
	Amount      models.Money `json:"amount"`
	Status      string       `json:"status"`
	Description string       `json:"description"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// AffiliateLedger 推广用户账本
type AffiliateLedger struct {
	AffiliateID  uint                `json:"affiliate_id"`
	Transactions []LedgerTransaction `json:"transactions"`
	Earned       models.Money        `json:"earned"`
	PaidOut      models.Money        `json:"paid_out"`
	Outstanding  models.Money        `json:"outstanding"`
}

// LedgerService 打款对账服务
type LedgerService struct {
	affiliateRepo repository.AffiliateRepository
	referralRepo  repository.ReferralRepository
	payoutRepo    repository.PayoutRepository
	offsetPolicy  string
}

// NewLedgerService 创建打款对账服务
func NewLedgerService(
	cfg *config.Config,
	affiliateRepo repository.AffiliateRepository,
	referralRepo repository.ReferralRepository,
	payoutRepo repository.PayoutRepository,
) *LedgerService {
	policy := constants.PayoutOffsetNonFailed
	if cfg != nil && strings.TrimSpace(cfg.Ledger.PayoutOffsetPolicy) == constants.PayoutOffsetCompleted {
		policy = constants.PayoutOffsetCompleted
	}
	return &LedgerService{
		affiliateRepo: affiliateRepo,
		referralRepo:  referralRepo,
		payoutRepo:    payoutRepo,
		offsetPolicy:  policy,
	}
}

// Ledger 生成推广用户账本；operatorID 非 0 时校验归属
func (s *LedgerService) Ledger(operatorID, affiliateID uint) (*AffiliateLedger, error) {
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || (operatorID != 0 && affiliate.OperatorID != operatorID) {
		return nil, ErrAffiliateNotFound
	}

	referrals, err := s.referralRepo.ListGreenByAffiliate(affiliate.ID)
	if err != nil {
		return nil, err
	}
	payouts, err := s.payoutRepo.ListByAffiliate(affiliate.ID)
	if err != nil {
		return nil, err
	}
	return BuildLedger(affiliate.ID, referrals, payouts, s.offsetPolicy), nil
}

// BuildLedger 合并推荐与打款为按时间升序的流水，时间相同保持推荐在前、各自按ID升序
func BuildLedger(affiliateID uint, referrals []models.Referral, payouts []models.Payout, offsetPolicy string) *AffiliateLedger {
	transactions := make([]LedgerTransaction, 0, len(referrals)+len(payouts))
	earned := decimal.Zero
	paid := decimal.Zero

	for _, referral := range referrals {
		if referral.ValidationStatusValue() != constants.ValidationStatusGreen {
			continue
		}
		commission := referral.CommissionEarned.Decimal
		earned = earned.Add(commission)
		transactions = append(transactions, LedgerTransaction{
			Kind:        constants.TransactionKindReferral,
			SourceID:    referral.ID,
			Amount:      models.NewMoneyFromDecimal(commission),
			Status:      referral.Status,
			Description: fmt.Sprintf("%s referral: %s", referral.EventType, referral.CustomerEmail),
			OccurredAt:  referral.CreatedAt,
		})
	}
	for _, payout := range payouts {
		if payoutOffsets(payout.Status, offsetPolicy) {
			paid = paid.Add(payout.Amount.Decimal)
		}
		description := "payout via " + payout.Method
		if ref := strings.TrimSpace(payout.Reference); ref != "" {
			description += " (" + ref + ")"
		}
		transactions = append(transactions, LedgerTransaction{
			Kind:        constants.TransactionKindPayout,
			SourceID:    payout.ID,
			Amount:      payout.Amount.Neg(),
			Status:      payout.Status,
			Description: description,
			OccurredAt:  payout.CreatedAt,
		})
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		left, right := transactions[i], transactions[j]
		if !left.OccurredAt.Equal(right.OccurredAt) {
			return left.OccurredAt.Before(right.OccurredAt)
		}
		// 同一时间：推荐在前，再按来源ID升序，与输入顺序无关
		if left.Kind != right.Kind {
			return left.Kind == constants.TransactionKindReferral
		}
		return left.SourceID < right.SourceID
	})

	return &AffiliateLedger{
		AffiliateID:  affiliateID,
		Transactions: transactions,
		Earned:       models.NewMoneyFromDecimal(earned),
		PaidOut:      models.NewMoneyFromDecimal(paid),
		Outstanding:  models.NewMoneyFromDecimal(earned.Sub(paid)),
	}
}

func payoutOffsets(status, policy string) bool {
	switch strings.TrimSpace(status) {
	case constants.PayoutStatusCompleted:
		return true
	case constants.PayoutStatusPending, constants.PayoutStatusProcessing:
		return policy != constants.PayoutOffsetCompleted
	default:
		return false
	}
}
