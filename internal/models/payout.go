package models

import "time"

// Payout 打款记录（由运营方打款流程写入，结算引擎只读）
type Payout struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                // 主键
	AffiliateID uint       `gorm:"not null;index" json:"affiliate_id"`                  // 推广用户ID
	Amount      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 打款金额
	Method      string     `gorm:"type:varchar(32);not null" json:"method"`             // 打款方式
	Reference   string     `gorm:"type:varchar(128)" json:"reference"`                  // 外部流水号
	Status      string     `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                             // 创建时间
	ProcessedAt *time.Time `gorm:"index" json:"processed_at,omitempty"`                 // 处理完成时间
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
