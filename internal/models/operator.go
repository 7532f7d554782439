package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator 运营方账号（推广计划与推广用户的归属方）
type Operator struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                // 主键
	Name         string         `gorm:"type:varchar(128);not null" json:"name"`              // 名称
	Email        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"` // 登录邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                                   // 密码哈希（不返回给前端）
	Status       string         `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	LastLoginAt  *time.Time     `json:"last_login_at"`                                       // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}
