package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"

	"gorm.io/gorm"
)

// OperatorRepository 运营方数据访问接口
type OperatorRepository interface {
	GetByID(id uint) (*models.Operator, error)
	GetByEmail(email string) (*models.Operator, error)
	ListActiveIDs() ([]uint, error)
	Create(operator *models.Operator) error
	TouchLastLogin(id uint, at time.Time) error
	UpdatePassword(id uint, passwordHash string, at time.Time) error
}

// GormOperatorRepository GORM 实现
type GormOperatorRepository struct {
	db *gorm.DB
}

// NewOperatorRepository 创建运营方仓库
func NewOperatorRepository(db *gorm.DB) *GormOperatorRepository {
	return &GormOperatorRepository{db: db}
}

// GetByID 按ID获取运营方
func (r *GormOperatorRepository) GetByID(id uint) (*models.Operator, error) {
	if id == 0 {
		return nil, nil
	}
	var operator models.Operator
	if err := r.db.First(&operator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// GetByEmail 按邮箱获取运营方
func (r *GormOperatorRepository) GetByEmail(email string) (*models.Operator, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var operator models.Operator
	if err := r.db.Where("email = ?", normalized).First(&operator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// ListActiveIDs 查询全部启用中的运营方ID
func (r *GormOperatorRepository) ListActiveIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Operator{}).
		Where("status = ?", constants.OperatorStatusActive).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create 创建运营方
func (r *GormOperatorRepository) Create(operator *models.Operator) error {
	return r.db.Create(operator).Error
}

// TouchLastLogin 更新最后登录时间
func (r *GormOperatorRepository) TouchLastLogin(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Operator{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// UpdatePassword 更新密码哈希
func (r *GormOperatorRepository) UpdatePassword(id uint, passwordHash string, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Operator{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    at,
	}).Error
}
