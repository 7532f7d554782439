package repository

import "time"

// AffiliateListFilter 查询推广用户列表的过滤条件
type AffiliateListFilter struct {
	Page       int
	PageSize   int
	OperatorID uint
	ProgramID  uint
	Status     string
	Keyword    string
}

// ReferralListFilter 查询推荐记录列表的过滤条件
type ReferralListFilter struct {
	Page             int
	PageSize         int
	OperatorID       uint
	AffiliateID      uint
	Status           string
	ValidationStatus string
	CustomerEmail    string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// PayoutListFilter 查询打款记录列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	OperatorID  uint
	AffiliateID uint
	Status      string
}
