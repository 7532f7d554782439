package service

import (
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"
)

// ReferralService 推荐记录后台管理服务
type ReferralService struct {
	repo repository.ReferralRepository
}

// NewReferralService 创建推荐记录后台管理服务
func NewReferralService(repo repository.ReferralRepository) *ReferralService {
	return &ReferralService{repo: repo}
}

// ListReferrals 查询推荐记录
func (s *ReferralService) ListReferrals(filter repository.ReferralListFilter) ([]models.Referral, int64, error) {
	return s.repo.List(filter)
}

// UpdateReferralStatus 推进推荐记录状态：pending→approved/rejected，approved→paid。
// 佣金金额与校验状态不受影响。
func (s *ReferralService) UpdateReferralStatus(operatorID, id uint, rawStatus string) (*models.Referral, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	referral, err := s.repo.GetByIDForOperator(operatorID, id)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrReferralNotFound
	}
	if !canTransitReferral(referral.Status, status) {
		return nil, ErrReferralStatusInvalid
	}
	now := time.Now()
	ok, err := s.repo.UpdateStatus(referral.ID, referral.Status, status, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发修改
		return nil, ErrReferralStatusInvalid
	}
	referral.Status = status
	referral.UpdatedAt = now
	return referral, nil
}

func canTransitReferral(from, to string) bool {
	switch from {
	case constants.ReferralStatusPending:
		return to == constants.ReferralStatusApproved || to == constants.ReferralStatusRejected
	case constants.ReferralStatusApproved:
		return to == constants.ReferralStatusPaid
	default:
		return false
	}
}
