package service

import (
	"strings"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeCommission 计算单次事件的佣金，纯函数。
// 仅在计划类型与事件类型不一致时佣金为 0，计划状态不参与计算；结果保留 2 位小数且不为负。
func ComputeCommission(program models.Program, eventType string, amount decimal.Decimal) decimal.Decimal {
	if strings.TrimSpace(program.Kind) != strings.TrimSpace(eventType) {
		return decimal.Zero
	}

	rate := program.CommissionRate.Decimal
	var result decimal.Decimal
	switch strings.TrimSpace(program.CommissionType) {
	case constants.CommissionTypeFixed:
		result = rate
	case constants.CommissionTypePercentage:
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		result = amount.Mul(rate).Div(hundred)
	default:
		return decimal.Zero
	}

	result = result.Round(2)
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}
