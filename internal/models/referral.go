package models

import "time"

// Referral 推荐记录
// (affiliate_id, customer_email) 唯一，作为去重兜底约束。
type Referral struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                                                      // 主键
	AffiliateID         uint       `gorm:"not null;index;uniqueIndex:idx_referral_affiliate_email" json:"affiliate_id"`               // 推广用户ID
	ProgramID           uint       `gorm:"not null;index" json:"program_id"`                                                          // 创建时的推广计划ID
	CustomerEmail       string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_referral_affiliate_email" json:"customer_email"` // 客户邮箱（小写）
	CustomerName        string     `gorm:"type:varchar(255);not null" json:"customer_name"`                                           // 客户名称
	EventType           string     `gorm:"type:varchar(20);not null;index" json:"event_type"`                                         // 事件类型
	Amount              Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                                       // 订单金额（注册为 0）
	ListingsCount       int        `gorm:"not null;default:0" json:"listings_count"`                                                  // 客户上架数量
	CommissionEarned    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"commission_earned"`                            // 佣金（创建时计算，之后不变）
	Status              string     `gorm:"type:varchar(20);not null;index" json:"status"`                                             // 状态
	ValidationStatus    *string    `gorm:"type:varchar(20);index" json:"validation_status"`                                           // 校验状态（空表示未校验）
	ValidationError     string     `gorm:"type:varchar(512)" json:"validation_error,omitempty"`                                       // 最近一次校验失败原因
	ValidationUpdatedAt *time.Time `gorm:"index" json:"validation_updated_at"`                                                        // 校验时间
	CountersApplied     bool       `gorm:"not null;default:false" json:"-"`                                                           // 是否已累加推广用户计数
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                                                   // 创建时间
	UpdatedAt           time.Time  `gorm:"index" json:"updated_at"`                                                                   // 更新时间

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广用户
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}

// ValidationStatusValue 返回校验状态，未校验时为空字符串
func (r Referral) ValidationStatusValue() string {
	if r.ValidationStatus == nil {
		return ""
	}
	return *r.ValidationStatus
}
