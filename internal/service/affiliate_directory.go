package service

import (
	"strings"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"
)

// AffiliateDirectory 推广用户目录，只解析状态为 active 的推广用户
type AffiliateDirectory struct {
	repo repository.AffiliateRepository
}

// NewAffiliateDirectory 创建推广用户目录
func NewAffiliateDirectory(repo repository.AffiliateRepository) *AffiliateDirectory {
	return &AffiliateDirectory{repo: repo}
}

// FindByCode 按推荐码查找推广用户及其推广计划
func (d *AffiliateDirectory) FindByCode(code string) (*models.Affiliate, error) {
	normalized := normalizeReferralCode(code)
	if normalized == "" {
		return nil, ErrAffiliateNotFound
	}
	affiliate, err := d.repo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	return resolvableAffiliate(affiliate)
}

// FindByID 按ID查找推广用户及其推广计划
func (d *AffiliateDirectory) FindByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, ErrAffiliateNotFound
	}
	affiliate, err := d.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return resolvableAffiliate(affiliate)
}

func resolvableAffiliate(affiliate *models.Affiliate) (*models.Affiliate, error) {
	if affiliate == nil || strings.TrimSpace(affiliate.Status) != constants.AffiliateStatusActive {
		return nil, ErrAffiliateNotFound
	}
	if affiliate.Program.ID == 0 {
		return nil, ErrAffiliateNotFound
	}
	return affiliate, nil
}

func normalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
