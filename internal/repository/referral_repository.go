package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 推荐记录数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	GetByID(id uint) (*models.Referral, error)
	GetByIDForOperator(operatorID, id uint) (*models.Referral, error)
	GetByAffiliateAndEmail(affiliateID uint, email string) (*models.Referral, error)
	Create(referral *models.Referral) error
	List(filter ReferralListFilter) ([]models.Referral, int64, error)
	ListValidationCandidates(operatorID uint) ([]models.Referral, error)
	ListGreenByAffiliate(affiliateID uint) ([]models.Referral, error)
	UpdateValidation(id uint, status string, lookupErr string, validatedAt time.Time) error
	UpdateStatus(id uint, fromStatus, toStatus string, updatedAt time.Time) (bool, error)
	MarkCountersApplied(id uint) (bool, error)
	ListCountersPending(createdBefore time.Time, limit int) ([]uint, error)
}

// GormReferralRepository GORM 推荐记录仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐记录仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取推荐记录
func (r *GormReferralRepository) GetByID(id uint) (*models.Referral, error) {
	if id == 0 {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.First(&referral, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByIDForOperator 按ID获取运营方名下的推荐记录
func (r *GormReferralRepository) GetByIDForOperator(operatorID, id uint) (*models.Referral, error) {
	if operatorID == 0 || id == 0 {
		return nil, nil
	}
	var referral models.Referral
	err := r.db.Model(&models.Referral{}).
		Joins("JOIN affiliates ON affiliates.id = referrals.affiliate_id").
		Where("referrals.id = ? AND affiliates.operator_id = ?", id, operatorID).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByAffiliateAndEmail 查询同一推广用户下的客户推荐记录
func (r *GormReferralRepository) GetByAffiliateAndEmail(affiliateID uint, email string) (*models.Referral, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if affiliateID == 0 || normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("affiliate_id = ? AND customer_email = ?", affiliateID, normalized).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// Create 创建推荐记录
func (r *GormReferralRepository) Create(referral *models.Referral) error {
	return r.db.Omit(clause.Associations).Create(referral).Error
}

// List 查询推荐记录列表
func (r *GormReferralRepository) List(filter ReferralListFilter) ([]models.Referral, int64, error) {
	query := r.db.Model(&models.Referral{}).
		Joins("JOIN affiliates ON affiliates.id = referrals.affiliate_id")
	if filter.OperatorID != 0 {
		query = query.Where("affiliates.operator_id = ?", filter.OperatorID)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("referrals.affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("referrals.status = ?", status)
	}
	if vs := strings.TrimSpace(filter.ValidationStatus); vs != "" {
		if vs == "none" {
			query = query.Where("referrals.validation_status IS NULL")
		} else {
			query = query.Where("referrals.validation_status = ?", vs)
		}
	}
	if email := strings.TrimSpace(filter.CustomerEmail); email != "" {
		query = query.Where("referrals.customer_email "+likeOperatorByDialect(dbDialectName(r.db))+" ?", "%"+strings.ToLower(email)+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("referrals.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("referrals.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Referral
	if err := query.Select("referrals.*").Order("referrals.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListValidationCandidates 查询运营方待校验的推荐记录（未校验、amber 或上次查询出错）
func (r *GormReferralRepository) ListValidationCandidates(operatorID uint) ([]models.Referral, error) {
	if operatorID == 0 {
		return []models.Referral{}, nil
	}
	var rows []models.Referral
	err := r.db.Model(&models.Referral{}).
		Select("referrals.*").
		Joins("JOIN affiliates ON affiliates.id = referrals.affiliate_id").
		Where("affiliates.operator_id = ?", operatorID).
		Where("(referrals.validation_status IS NULL OR referrals.validation_status IN ?)", []string{
			constants.ValidationStatusAmber,
			constants.ValidationStatusError,
		}).
		Order("referrals.id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListGreenByAffiliate 查询推广用户已校验为 green 的推荐记录，按ID升序
func (r *GormReferralRepository) ListGreenByAffiliate(affiliateID uint) ([]models.Referral, error) {
	if affiliateID == 0 {
		return []models.Referral{}, nil
	}
	var rows []models.Referral
	if err := r.db.Where("affiliate_id = ? AND validation_status = ?", affiliateID, constants.ValidationStatusGreen).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateValidation 写入校验结果，只更新校验相关字段
func (r *GormReferralRepository) UpdateValidation(id uint, status string, lookupErr string, validatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	if len(lookupErr) > 512 {
		lookupErr = lookupErr[:512]
	}
	return r.db.Model(&models.Referral{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"validation_status":     status,
			"validation_error":      lookupErr,
			"validation_updated_at": validatedAt,
			"updated_at":            validatedAt,
		}).Error
}

// UpdateStatus 条件更新推荐记录状态，返回是否命中
func (r *GormReferralRepository) UpdateStatus(id uint, fromStatus, toStatus string, updatedAt time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Referral{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCountersApplied 标记计数已累加，返回本次是否为首次标记
func (r *GormReferralRepository) MarkCountersApplied(id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Referral{}).
		Where("id = ? AND counters_applied = ?", id, false).
		Update("counters_applied", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListCountersPending 查询创建早于指定时间且计数尚未累加的推荐记录ID
func (r *GormReferralRepository) ListCountersPending(createdBefore time.Time, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	err := r.db.Model(&models.Referral{}).
		Where("counters_applied = ? AND created_at < ?", false, createdBefore).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
