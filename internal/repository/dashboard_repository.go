package repository

import (
	"fmt"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 运营方仪表盘统计数据访问接口
type DashboardRepository interface {
	GetOverview(operatorID uint, startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetReferralTrends(operatorID uint, startAt, endAt time.Time) ([]DashboardReferralTrendRow, error)
	GetClickTrends(operatorID uint, startAt, endAt time.Time) ([]DashboardClickTrendRow, error)
	GetTopAffiliates(operatorID uint, startAt, endAt time.Time, limit int) ([]DashboardAffiliateRankingRow, error)
}

// DashboardOverviewRow 仪表盘总览统计
type DashboardOverviewRow struct {
	ReferralsTotal      int64
	ReferralsPending    int64
	ReferralsApproved   int64
	ReferralsRejected   int64
	ReferralsPaid       int64
	ValidationUnchecked int64
	ValidationGreen     int64
	ValidationAmber     int64
	ValidationRed       int64
	ValidationError     int64
	CommissionTotal     models.Money
	CommissionGreen     models.Money
	ClicksTotal         int64
	PayoutsCompleted    models.Money
	PayoutsInFlight     models.Money
	ActiveAffiliates    int64
}

// DashboardReferralTrendRow 推荐记录按日趋势
type DashboardReferralTrendRow struct {
	Day        string
	Referrals  int64
	Green      int64
	Commission models.Money
}

// DashboardClickTrendRow 点击按日趋势
type DashboardClickTrendRow struct {
	Day    string
	Clicks int64
}

// DashboardAffiliateRankingRow 推广用户排行
type DashboardAffiliateRankingRow struct {
	AffiliateID   uint
	Name          string
	ReferralCode  string
	ReferralCount int64
	Commission    models.Money
}

// GormDashboardRepository GORM 仪表盘仓储
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓储
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

type dashboardSumRow struct {
	Total models.Money
}

func (r *GormDashboardRepository) referralBase(operatorID uint, startAt, endAt time.Time) *gorm.DB {
	return r.db.Model(&models.Referral{}).
		Joins("JOIN affiliates ON affiliates.id = referrals.affiliate_id").
		Where("affiliates.operator_id = ? AND referrals.created_at >= ? AND referrals.created_at < ?", operatorID, startAt, endAt)
}

func (r *GormDashboardRepository) payoutBase(operatorID uint, startAt, endAt time.Time) *gorm.DB {
	return r.db.Model(&models.Payout{}).
		Joins("JOIN affiliates ON affiliates.id = payouts.affiliate_id").
		Where("affiliates.operator_id = ? AND payouts.created_at >= ? AND payouts.created_at < ?", operatorID, startAt, endAt)
}

// GetOverview 获取运营方在时间窗口内的总览统计
func (r *GormDashboardRepository) GetOverview(operatorID uint, startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	base := func() *gorm.DB {
		return r.referralBase(operatorID, startAt, endAt)
	}

	if err := base().Count(&result.ReferralsTotal).Error; err != nil {
		return result, err
	}
	statusCounts := []struct {
		status string
		dest   *int64
	}{
		{constants.ReferralStatusPending, &result.ReferralsPending},
		{constants.ReferralStatusApproved, &result.ReferralsApproved},
		{constants.ReferralStatusRejected, &result.ReferralsRejected},
		{constants.ReferralStatusPaid, &result.ReferralsPaid},
	}
	for _, item := range statusCounts {
		if err := base().Where("referrals.status = ?", item.status).Count(item.dest).Error; err != nil {
			return result, err
		}
	}

	if err := base().Where("referrals.validation_status IS NULL").Count(&result.ValidationUnchecked).Error; err != nil {
		return result, err
	}
	validationCounts := []struct {
		status string
		dest   *int64
	}{
		{constants.ValidationStatusGreen, &result.ValidationGreen},
		{constants.ValidationStatusAmber, &result.ValidationAmber},
		{constants.ValidationStatusRed, &result.ValidationRed},
		{constants.ValidationStatusError, &result.ValidationError},
	}
	for _, item := range validationCounts {
		if err := base().Where("referrals.validation_status = ?", item.status).Count(item.dest).Error; err != nil {
			return result, err
		}
	}

	var sum dashboardSumRow
	if err := base().Select("COALESCE(SUM(referrals.commission_earned), 0) as total").Scan(&sum).Error; err != nil {
		return result, err
	}
	result.CommissionTotal = sum.Total

	sum = dashboardSumRow{}
	if err := base().
		Where("referrals.validation_status = ?", constants.ValidationStatusGreen).
		Select("COALESCE(SUM(referrals.commission_earned), 0) as total").
		Scan(&sum).Error; err != nil {
		return result, err
	}
	result.CommissionGreen = sum.Total

	if err := r.db.Model(&models.AffiliateClick{}).
		Joins("JOIN affiliates ON affiliates.id = affiliate_clicks.affiliate_id").
		Where("affiliates.operator_id = ? AND affiliate_clicks.created_at >= ? AND affiliate_clicks.created_at < ?", operatorID, startAt, endAt).
		Count(&result.ClicksTotal).Error; err != nil {
		return result, err
	}

	sum = dashboardSumRow{}
	if err := r.payoutBase(operatorID, startAt, endAt).
		Where("payouts.status = ?", constants.PayoutStatusCompleted).
		Select("COALESCE(SUM(payouts.amount), 0) as total").
		Scan(&sum).Error; err != nil {
		return result, err
	}
	result.PayoutsCompleted = sum.Total

	sum = dashboardSumRow{}
	if err := r.payoutBase(operatorID, startAt, endAt).
		Where("payouts.status IN ?", []string{constants.PayoutStatusPending, constants.PayoutStatusProcessing}).
		Select("COALESCE(SUM(payouts.amount), 0) as total").
		Scan(&sum).Error; err != nil {
		return result, err
	}
	result.PayoutsInFlight = sum.Total

	if err := r.db.Model(&models.Affiliate{}).
		Where("operator_id = ? AND status = ?", operatorID, constants.AffiliateStatusActive).
		Count(&result.ActiveAffiliates).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetReferralTrends 获取推荐记录按日趋势
func (r *GormDashboardRepository) GetReferralTrends(operatorID uint, startAt, endAt time.Time) ([]DashboardReferralTrendRow, error) {
	type totalRow struct {
		Day        string
		Total      int64
		Commission models.Money
	}
	type greenRow struct {
		Day   string
		Green int64
	}

	dayExpr := dayBucketExpr(dbDialectName(r.db), "referrals.created_at")

	var totals []totalRow
	if err := r.referralBase(operatorID, startAt, endAt).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total, COALESCE(SUM(referrals.commission_earned), 0) as commission", dayExpr)).
		Group(dayExpr).
		Order("day asc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var greens []greenRow
	if err := r.referralBase(operatorID, startAt, endAt).
		Where("referrals.validation_status = ?", constants.ValidationStatusGreen).
		Select(fmt.Sprintf("%s as day, COUNT(*) as green", dayExpr)).
		Group(dayExpr).
		Order("day asc").
		Scan(&greens).Error; err != nil {
		return nil, err
	}

	greenMap := make(map[string]int64, len(greens))
	for _, item := range greens {
		greenMap[item.Day] = item.Green
	}

	result := make([]DashboardReferralTrendRow, 0, len(totals))
	for _, item := range totals {
		result = append(result, DashboardReferralTrendRow{
			Day:        item.Day,
			Referrals:  item.Total,
			Green:      greenMap[item.Day],
			Commission: item.Commission,
		})
	}
	return result, nil
}

// GetClickTrends 获取点击按日趋势
func (r *GormDashboardRepository) GetClickTrends(operatorID uint, startAt, endAt time.Time) ([]DashboardClickTrendRow, error) {
	dayExpr := dayBucketExpr(dbDialectName(r.db), "affiliate_clicks.created_at")
	var rows []DashboardClickTrendRow
	if err := r.db.Model(&models.AffiliateClick{}).
		Joins("JOIN affiliates ON affiliates.id = affiliate_clicks.affiliate_id").
		Where("affiliates.operator_id = ? AND affiliate_clicks.created_at >= ? AND affiliate_clicks.created_at < ?", operatorID, startAt, endAt).
		Select(fmt.Sprintf("%s as day, COUNT(*) as clicks", dayExpr)).
		Group(dayExpr).
		Order("day asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTopAffiliates 按窗口内佣金获取推广用户排行
func (r *GormDashboardRepository) GetTopAffiliates(operatorID uint, startAt, endAt time.Time, limit int) ([]DashboardAffiliateRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []DashboardAffiliateRankingRow
	err := r.referralBase(operatorID, startAt, endAt).
		Select("affiliates.id as affiliate_id, affiliates.name as name, affiliates.referral_code as referral_code, COUNT(referrals.id) as referral_count, COALESCE(SUM(referrals.commission_earned), 0) as commission").
		Group("affiliates.id, affiliates.name, affiliates.referral_code").
		Order("commission desc, referral_count desc, affiliates.id asc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
