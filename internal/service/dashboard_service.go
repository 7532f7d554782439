package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-desk/internal/cache"
	"github.com/affiliate-desk/internal/repository"
)

const (
	dashboardCacheTTL         = 45 * time.Second
	dashboardCustomMaxDays    = 90
	dashboardTopAffiliatesMax = 10
)

// DashboardService 仪表盘服务
// 说明：聚合运营方推广业务数据，按 UTC 自然日分桶。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	OperatorID   uint
	Range        string
	From         *time.Time
	To           *time.Time
	Limit        int
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range      string              `json:"range"`
	From       string              `json:"from"`
	To         string              `json:"to"`
	KPI        DashboardKPI        `json:"kpi"`
	Validation DashboardValidation `json:"validation"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	ReferralsTotal    int64  `json:"referrals_total"`
	ReferralsPending  int64  `json:"referrals_pending"`
	ReferralsApproved int64  `json:"referrals_approved"`
	ReferralsRejected int64  `json:"referrals_rejected"`
	ReferralsPaid     int64  `json:"referrals_paid"`
	ClicksTotal       int64  `json:"clicks_total"`
	ConversionRate    string `json:"conversion_rate"`
	CommissionTotal   string `json:"commission_total"`
	CommissionGreen   string `json:"commission_green"`
	PayoutsCompleted  string `json:"payouts_completed"`
	PayoutsInFlight   string `json:"payouts_in_flight"`
	ActiveAffiliates  int64  `json:"active_affiliates"`
}

// DashboardValidation 校验结果分布
type DashboardValidation struct {
	Unchecked int64  `json:"unchecked"`
	Green     int64  `json:"green"`
	Amber     int64  `json:"amber"`
	Red       int64  `json:"red"`
	Error     int64  `json:"error"`
	GreenRate string `json:"green_rate"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range  string                `json:"range"`
	From   string                `json:"from"`
	To     string                `json:"to"`
	Points []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date       string `json:"date"`
	Clicks     int64  `json:"clicks"`
	Referrals  int64  `json:"referrals"`
	Green      int64  `json:"green"`
	Commission string `json:"commission"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range         string                      `json:"range"`
	From          string                      `json:"from"`
	To            string                      `json:"to"`
	TopAffiliates []DashboardAffiliateRanking `json:"top_affiliates"`
}

// DashboardAffiliateRanking 推广用户排行项
type DashboardAffiliateRanking struct {
	AffiliateID  uint   `json:"affiliate_id"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code"`
	Referrals    int64  `json:"referrals"`
	Commission   string `json:"commission"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
}

func (w dashboardWindow) cacheKey(kind string, operatorID uint, extra ...interface{}) string {
	key := fmt.Sprintf("dashboard:%s:%d:%s:%d:%d", kind, operatorID, w.rangeKey, w.startAt.Unix(), w.endAt.Unix())
	for _, item := range extra {
		key += fmt.Sprintf(":%v", item)
	}
	return key
}

func (w dashboardWindow) fromLabel() string {
	return w.startAt.Format(time.RFC3339)
}

func (w dashboardWindow) toLabel() string {
	return w.endAt.Add(-time.Second).Format(time.RFC3339)
}

// GetOverview 获取总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	return cache.Remember(ctx, window.cacheKey("overview", input.OperatorID), dashboardCacheTTL, input.ForceRefresh, func() (*DashboardOverviewResponse, error) {
		return s.buildOverview(input.OperatorID, window)
	})
}

func (s *DashboardService) buildOverview(operatorID uint, window dashboardWindow) (*DashboardOverviewResponse, error) {
	overview, err := s.repo.GetOverview(operatorID, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	conversionRate := 0.0
	if overview.ClicksTotal > 0 {
		conversionRate = float64(overview.ReferralsTotal) / float64(overview.ClicksTotal) * 100
	}
	checked := overview.ValidationGreen + overview.ValidationAmber + overview.ValidationRed + overview.ValidationError
	greenRate := 0.0
	if checked > 0 {
		greenRate = float64(overview.ValidationGreen) / float64(checked) * 100
	}

	response := &DashboardOverviewResponse{
		Range: window.rangeKey,
		From:  window.fromLabel(),
		To:    window.toLabel(),
		KPI: DashboardKPI{
			ReferralsTotal:    overview.ReferralsTotal,
			ReferralsPending:  overview.ReferralsPending,
			ReferralsApproved: overview.ReferralsApproved,
			ReferralsRejected: overview.ReferralsRejected,
			ReferralsPaid:     overview.ReferralsPaid,
			ClicksTotal:       overview.ClicksTotal,
			ConversionRate:    formatPercentValue(conversionRate),
			CommissionTotal:   overview.CommissionTotal.String(),
			CommissionGreen:   overview.CommissionGreen.String(),
			PayoutsCompleted:  overview.PayoutsCompleted.String(),
			PayoutsInFlight:   overview.PayoutsInFlight.String(),
			ActiveAffiliates:  overview.ActiveAffiliates,
		},
		Validation: DashboardValidation{
			Unchecked: overview.ValidationUnchecked,
			Green:     overview.ValidationGreen,
			Amber:     overview.ValidationAmber,
			Red:       overview.ValidationRed,
			Error:     overview.ValidationError,
			GreenRate: formatPercentValue(greenRate),
		},
	}

	return response, nil
}

// GetTrends 获取按日趋势，缺失日期补零
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	return cache.Remember(ctx, window.cacheKey("trends", input.OperatorID), dashboardCacheTTL, input.ForceRefresh, func() (*DashboardTrendResponse, error) {
		return s.buildTrends(input.OperatorID, window)
	})
}

func (s *DashboardService) buildTrends(operatorID uint, window dashboardWindow) (*DashboardTrendResponse, error) {
	referralRows, err := s.repo.GetReferralTrends(operatorID, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	clickRows, err := s.repo.GetClickTrends(operatorID, window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	referralMap := make(map[string]repository.DashboardReferralTrendRow, len(referralRows))
	for _, item := range referralRows {
		referralMap[item.Day] = item
	}
	clickMap := make(map[string]int64, len(clickRows))
	for _, item := range clickRows {
		clickMap[item.Day] = item.Clicks
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := truncateDay(window.startAt); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		referralItem := referralMap[day]
		points = append(points, DashboardTrendPoint{
			Date:       day,
			Clicks:     clickMap[day],
			Referrals:  referralItem.Referrals,
			Green:      referralItem.Green,
			Commission: referralItem.Commission.String(),
		})
	}

	response := &DashboardTrendResponse{
		Range:  window.rangeKey,
		From:   window.fromLabel(),
		To:     window.toLabel(),
		Points: points,
	}
	return response, nil
}

// GetRankings 获取推广用户佣金排行
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > dashboardTopAffiliatesMax {
		limit = dashboardTopAffiliatesMax
	}

	return cache.Remember(ctx, window.cacheKey("rankings", input.OperatorID, limit), dashboardCacheTTL, input.ForceRefresh, func() (*DashboardRankingsResponse, error) {
		return s.buildRankings(input.OperatorID, window, limit)
	})
}

func (s *DashboardService) buildRankings(operatorID uint, window dashboardWindow, limit int) (*DashboardRankingsResponse, error) {
	rows, err := s.repo.GetTopAffiliates(operatorID, window.startAt, window.endAt, limit)
	if err != nil {
		return nil, err
	}
	ranking := make([]DashboardAffiliateRanking, 0, len(rows))
	for _, row := range rows {
		ranking = append(ranking, DashboardAffiliateRanking{
			AffiliateID:  row.AffiliateID,
			Name:         row.Name,
			ReferralCode: row.ReferralCode,
			Referrals:    row.ReferralCount,
			Commission:   row.Commission.String(),
		})
	}

	response := &DashboardRankingsResponse{
		Range:         window.rangeKey,
		From:          window.fromLabel(),
		To:            window.toLabel(),
		TopAffiliates: ranking,
	}
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	todayStart := truncateDay(now)
	window := dashboardWindow{rangeKey: rangeKey}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.UTC()
		endAt := input.To.UTC()
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func truncateDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
