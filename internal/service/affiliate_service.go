package service

import (
	"crypto/rand"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"
)

const (
	affiliateCodeLength   = 8
	affiliateCodeAttempts = 8
)

// AffiliateCreateInput 创建推广用户输入
type AffiliateCreateInput struct {
	ProgramID uint
	Name      string
	Email     string
	Status    string
}

// AffiliateService 推广用户管理服务
type AffiliateService struct {
	repo        repository.AffiliateRepository
	programRepo repository.ProgramRepository
}

// NewAffiliateService 创建推广用户管理服务
func NewAffiliateService(repo repository.AffiliateRepository, programRepo repository.ProgramRepository) *AffiliateService {
	return &AffiliateService{repo: repo, programRepo: programRepo}
}

// CreateAffiliate 创建推广用户并生成唯一推荐码
func (s *AffiliateService) CreateAffiliate(operatorID uint, input AffiliateCreateInput) (*models.Affiliate, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = constants.AffiliateStatusActive
	}
	if operatorID == 0 || name == "" || email == "" || !validAffiliateStatus(status) {
		return nil, ErrAffiliateInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrAffiliateInvalid
	}

	program, err := s.programRepo.GetByID(input.ProgramID)
	if err != nil {
		return nil, err
	}
	if program == nil || program.OperatorID != operatorID {
		return nil, ErrProgramNotFound
	}

	existing, err := s.repo.GetByOperatorAndEmail(operatorID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAffiliateEmailExists
	}

	for i := 0; i < affiliateCodeAttempts; i++ {
		code, genErr := generateAffiliateCode()
		if genErr != nil {
			return nil, genErr
		}
		now := time.Now()
		affiliate := &models.Affiliate{
			OperatorID:   operatorID,
			ProgramID:    program.ID,
			Name:         name,
			Email:        email,
			ReferralCode: code,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Create(affiliate); err != nil {
			if !repository.IsUniqueViolation(err) {
				return nil, err
			}
			// 邮箱冲突直接返回，推荐码冲突则重试
			dup, lookupErr := s.repo.GetByOperatorAndEmail(operatorID, email)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if dup != nil {
				return nil, ErrAffiliateEmailExists
			}
			logger.Debugw("affiliate_code_collision", "attempt", i+1)
			continue
		}
		affiliate.Program = *program
		return affiliate, nil
	}
	return nil, ErrAffiliateCodeExhausted
}

// UpdateAffiliateStatus 更新推广用户状态
func (s *AffiliateService) UpdateAffiliateStatus(operatorID, id uint, rawStatus string) (*models.Affiliate, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if !validAffiliateStatus(status) {
		return nil, ErrAffiliateStatusInvalid
	}
	affiliate, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || affiliate.OperatorID != operatorID {
		return nil, ErrAffiliateNotFound
	}
	now := time.Now()
	if err := s.repo.UpdateStatus(affiliate.ID, status, now); err != nil {
		return nil, err
	}
	affiliate.Status = status
	affiliate.UpdatedAt = now
	return affiliate, nil
}

// ListAffiliates 查询运营方推广用户
func (s *AffiliateService) ListAffiliates(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	return s.repo.List(filter)
}

func validAffiliateStatus(status string) bool {
	switch status {
	case constants.AffiliateStatusActive, constants.AffiliateStatusInactive, constants.AffiliateStatusPending:
		return true
	default:
		return false
	}
}

func generateAffiliateCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}
