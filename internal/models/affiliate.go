package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广用户
// TotalEarnings / TotalReferrals 为冗余计数，与推荐记录最终一致。
type Affiliate struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                                             // 主键
	OperatorID     uint           `gorm:"not null;index;uniqueIndex:idx_affiliate_operator_email" json:"operator_id"`       // 运营方ID
	ProgramID      uint           `gorm:"not null;index" json:"program_id"`                                                 // 推广计划ID
	Name           string         `gorm:"type:varchar(128);not null" json:"name"`                                           // 名称
	Email          string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_affiliate_operator_email" json:"email"` // 邮箱（同一运营方下唯一）
	ReferralCode   string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"referral_code"`                       // 推荐码（创建后不可变）
	TotalEarnings  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`                      // 累计佣金
	TotalReferrals int64          `gorm:"not null;default:0" json:"total_referrals"`                                        // 累计推荐数
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`                                    // 状态
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                                          // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                                          // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                                   // 软删除时间

	Program Program `gorm:"foreignKey:ProgramID" json:"program,omitempty"` // 推广计划快照
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
