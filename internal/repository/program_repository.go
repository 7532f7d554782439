package repository

import (
	"errors"

	"github.com/affiliate-desk/internal/models"

	"gorm.io/gorm"
)

// ProgramRepository 推广计划数据访问接口
type ProgramRepository interface {
	GetByID(id uint) (*models.Program, error)
	Create(program *models.Program) error
	Update(program *models.Program) error
	ListByOperator(operatorID uint) ([]models.Program, error)
}

// GormProgramRepository GORM 实现
type GormProgramRepository struct {
	db *gorm.DB
}

// NewProgramRepository 创建推广计划仓库
func NewProgramRepository(db *gorm.DB) *GormProgramRepository {
	return &GormProgramRepository{db: db}
}

// GetByID 按ID获取推广计划
func (r *GormProgramRepository) GetByID(id uint) (*models.Program, error) {
	if id == 0 {
		return nil, nil
	}
	var program models.Program
	if err := r.db.First(&program, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &program, nil
}

// Create 创建推广计划
func (r *GormProgramRepository) Create(program *models.Program) error {
	return r.db.Create(program).Error
}

// Update 更新推广计划
func (r *GormProgramRepository) Update(program *models.Program) error {
	return r.db.Save(program).Error
}

// ListByOperator 查询运营方的全部推广计划
func (r *GormProgramRepository) ListByOperator(operatorID uint) ([]models.Program, error) {
	var rows []models.Program
	if err := r.db.Where("operator_id = ?", operatorID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
