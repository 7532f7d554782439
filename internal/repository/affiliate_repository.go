package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广用户数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetByID(id uint) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	GetByOperatorAndEmail(operatorID uint, email string) (*models.Affiliate, error)
	Create(affiliate *models.Affiliate) error
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)
	IncrementCounters(id uint, referrals int64, earnings decimal.Decimal) error

	CreateClick(click *models.AffiliateClick) error
	HasRecentClick(affiliateID uint, visitorKey string, since time.Time) (bool, error)
}

// GormAffiliateRepository GORM 推广用户仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广用户仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取推广用户（含推广计划）
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("Program").First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推荐码获取推广用户（含推广计划）
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("Program").Where("referral_code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByOperatorAndEmail 按运营方与邮箱获取推广用户
func (r *GormAffiliateRepository) GetByOperatorAndEmail(operatorID uint, email string) (*models.Affiliate, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if operatorID == 0 || normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("operator_id = ? AND email = ?", operatorID, normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// Create 创建推广用户
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Omit(clause.Associations).Create(affiliate).Error
}

// UpdateStatus 更新推广用户状态
func (r *GormAffiliateRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// List 查询推广用户列表
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{}).Preload("Program")
	if filter.OperatorID != 0 {
		query = query.Where("affiliates.operator_id = ?", filter.OperatorID)
	}
	if filter.ProgramID != 0 {
		query = query.Where("affiliates.program_id = ?", filter.ProgramID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("affiliates.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordCondition(dbDialectName(r.db), []string{"affiliates.email", "affiliates.name", "affiliates.referral_code"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Affiliate
	if err := query.Order("affiliates.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// IncrementCounters 原子累加推广用户冗余计数（不做读-改-写）
func (r *GormAffiliateRepository) IncrementCounters(id uint, referrals int64, earnings decimal.Decimal) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_referrals": gorm.Expr("total_referrals + ?", referrals),
			"total_earnings":  gorm.Expr("total_earnings + ?", earnings.Round(2)),
			"updated_at":      time.Now(),
		}).Error
}

// CreateClick 创建推荐链接点击记录
func (r *GormAffiliateRepository) CreateClick(click *models.AffiliateClick) error {
	return r.db.Create(click).Error
}

// HasRecentClick 查询是否存在近期重复点击
func (r *GormAffiliateRepository) HasRecentClick(affiliateID uint, visitorKey string, since time.Time) (bool, error) {
	key := strings.TrimSpace(visitorKey)
	if affiliateID == 0 || key == "" {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.AffiliateClick{}).
		Where("affiliate_id = ? AND visitor_key = ? AND created_at >= ?", affiliateID, key, since).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}
