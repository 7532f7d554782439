package models

import (
	"time"

	"gorm.io/gorm"
)

// Program 推广计划
// 已产生推荐记录后仅允许修改佣金与状态，且修改不影响已计算的佣金。
type Program struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                         // 主键
	OperatorID     uint           `gorm:"not null;index" json:"operator_id"`                            // 运营方ID
	Name           string         `gorm:"type:varchar(128);not null" json:"name"`                       // 计划名称
	Kind           string         `gorm:"type:varchar(20);not null" json:"kind"`                        // 计划类型 signup/purchase
	CommissionRate Rate           `gorm:"type:decimal(20,4);not null;default:0" json:"commission_rate"` // 佣金数值（固定金额或百分比）
	CommissionType string         `gorm:"type:varchar(20);not null" json:"commission_type"`             // 佣金计算方式 fixed/percentage
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`                // 状态
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (Program) TableName() string {
	return "programs"
}
