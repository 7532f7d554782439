package service

import (
	"strings"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"

	"github.com/shopspring/decimal"
)

// ProgramInput 创建推广计划输入
type ProgramInput struct {
	Name           string
	Kind           string
	CommissionType string
	CommissionRate decimal.Decimal
	Status         string
}

// ProgramUpdateInput 更新推广计划输入，计划类型与计算方式创建后不可变
type ProgramUpdateInput struct {
	Name           *string
	CommissionRate *decimal.Decimal
	Status         *string
}

// ProgramService 推广计划管理服务
type ProgramService struct {
	repo repository.ProgramRepository
}

// NewProgramService 创建推广计划管理服务
func NewProgramService(repo repository.ProgramRepository) *ProgramService {
	return &ProgramService{repo: repo}
}

// CreateProgram 创建推广计划
func (s *ProgramService) CreateProgram(operatorID uint, input ProgramInput) (*models.Program, error) {
	name := strings.TrimSpace(input.Name)
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	commissionType := strings.ToLower(strings.TrimSpace(input.CommissionType))
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = constants.ProgramStatusActive
	}
	if operatorID == 0 || name == "" {
		return nil, ErrProgramInvalid
	}
	if kind != constants.ProgramKindSignup && kind != constants.ProgramKindPurchase {
		return nil, ErrProgramInvalid
	}
	if commissionType != constants.CommissionTypeFixed && commissionType != constants.CommissionTypePercentage {
		return nil, ErrProgramInvalid
	}
	if !validProgramStatus(status) || !validCommissionRate(commissionType, input.CommissionRate) {
		return nil, ErrProgramInvalid
	}

	now := time.Now()
	program := &models.Program{
		OperatorID:     operatorID,
		Name:           name,
		Kind:           kind,
		CommissionType: commissionType,
		CommissionRate: models.NewRateFromDecimal(input.CommissionRate),
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(program); err != nil {
		return nil, err
	}
	return program, nil
}

// UpdateProgram 更新推广计划，已计算的佣金不受影响
func (s *ProgramService) UpdateProgram(operatorID, id uint, input ProgramUpdateInput) (*models.Program, error) {
	program, err := s.getOwnedProgram(operatorID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProgramInvalid
		}
		program.Name = name
	}
	if input.CommissionRate != nil {
		if !validCommissionRate(program.CommissionType, *input.CommissionRate) {
			return nil, ErrProgramInvalid
		}
		program.CommissionRate = models.NewRateFromDecimal(*input.CommissionRate)
	}
	if input.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*input.Status))
		if !validProgramStatus(status) {
			return nil, ErrProgramInvalid
		}
		program.Status = status
	}
	program.UpdatedAt = time.Now()
	if err := s.repo.Update(program); err != nil {
		return nil, err
	}
	return program, nil
}

// ListPrograms 查询运营方推广计划
func (s *ProgramService) ListPrograms(operatorID uint) ([]models.Program, error) {
	return s.repo.ListByOperator(operatorID)
}

func (s *ProgramService) getOwnedProgram(operatorID, id uint) (*models.Program, error) {
	program, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if program == nil || program.OperatorID != operatorID {
		return nil, ErrProgramNotFound
	}
	return program, nil
}

func validProgramStatus(status string) bool {
	return status == constants.ProgramStatusActive || status == constants.ProgramStatusInactive
}

func validCommissionRate(commissionType string, rate decimal.Decimal) bool {
	if rate.IsNegative() {
		return false
	}
	if commissionType == constants.CommissionTypePercentage && rate.GreaterThan(hundred) {
		return false
	}
	return true
}
