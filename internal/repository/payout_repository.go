package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/models"

	"gorm.io/gorm"
)

// PayoutRepository 打款记录数据访问接口
type PayoutRepository interface {
	GetByID(id uint) (*models.Payout, error)
	Create(payout *models.Payout) error
	ListByAffiliate(affiliateID uint) ([]models.Payout, error)
	List(filter PayoutListFilter) ([]models.Payout, int64, error)
	UpdateStatus(id uint, status string, processedAt *time.Time) error
}

// GormPayoutRepository GORM 打款记录仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建打款记录仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// GetByID 按ID获取打款记录
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// Create 创建打款记录
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// ListByAffiliate 查询推广用户全部打款记录，按ID升序
func (r *GormPayoutRepository) ListByAffiliate(affiliateID uint) ([]models.Payout, error) {
	if affiliateID == 0 {
		return []models.Payout{}, nil
	}
	var rows []models.Payout
	if err := r.db.Where("affiliate_id = ?", affiliateID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// List 查询打款记录列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{}).
		Joins("JOIN affiliates ON affiliates.id = payouts.affiliate_id")
	if filter.OperatorID != 0 {
		query = query.Where("affiliates.operator_id = ?", filter.OperatorID)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("payouts.affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("payouts.status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Payout
	if err := query.Select("payouts.*").Order("payouts.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus 更新打款状态
func (r *GormPayoutRepository) UpdateStatus(id uint, status string, processedAt *time.Time) error {
	if id == 0 {
		return nil
	}
	updates := map[string]interface{}{"status": strings.TrimSpace(status)}
	if processedAt != nil {
		updates["processed_at"] = *processedAt
	}
	return r.db.Model(&models.Payout{}).Where("id = ?", id).Updates(updates).Error
}
