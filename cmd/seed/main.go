package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/logger"
	"github.com/affiliate-desk/internal/marketplace"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/provider"
	"github.com/affiliate-desk/internal/service"

	"github.com/shopspring/decimal"
)

// 生成本地演示数据：默认运营方、两个推广计划、推广用户及若干推荐与打款记录
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, nil, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	email := os.Getenv("AD_DEFAULT_OPERATOR_EMAIL")
	if err := models.InitDefaultOperator(email, os.Getenv("AD_DEFAULT_OPERATOR_PASSWORD")); err != nil {
		stdLog.Fatalf("Failed to init operator: %v", err)
	}

	// 种子数据不依赖队列与外部市场系统
	c := provider.Assemble(cfg, models.DB, nil, marketplace.NewClient(cfg.Marketplace))
	operator, err := c.OperatorRepo.GetByEmail(defaultString(email, "admin@example.com"))
	if err != nil || operator == nil {
		stdLog.Fatalf("Failed to load operator: %v", err)
	}

	signupProgram, err := c.ProgramService.CreateProgram(operator.ID, service.ProgramInput{
		Name:           "Seller signup bounty",
		Kind:           constants.ProgramKindSignup,
		CommissionType: constants.CommissionTypeFixed,
		CommissionRate: decimal.NewFromInt(15),
	})
	if err != nil {
		stdLog.Fatalf("Failed to create signup program: %v", err)
	}
	purchaseProgram, err := c.ProgramService.CreateProgram(operator.ID, service.ProgramInput{
		Name:           "Purchase revenue share",
		Kind:           constants.ProgramKindPurchase,
		CommissionType: constants.CommissionTypePercentage,
		CommissionRate: decimal.NewFromInt(10),
	})
	if err != nil {
		stdLog.Fatalf("Failed to create purchase program: %v", err)
	}

	affiliates := []struct {
		program *models.Program
		name    string
		email   string
	}{
		{program: signupProgram, name: "Nordic Crafts Blog", email: "hello@nordiccrafts.example"},
		{program: purchaseProgram, name: "Deal Hunters Weekly", email: "team@dealhunters.example"},
	}
	for i, item := range affiliates {
		affiliate, err := c.AffiliateService.CreateAffiliate(operator.ID, service.AffiliateCreateInput{
			ProgramID: item.program.ID,
			Name:      item.name,
			Email:     item.email,
		})
		if errors.Is(err, service.ErrAffiliateEmailExists) {
			stdLog.Printf("Affiliate %s already exists, skipped", item.email)
			continue
		}
		if err != nil {
			stdLog.Fatalf("Failed to create affiliate %s: %v", item.email, err)
		}

		for j := 1; j <= 3; j++ {
			_, err := c.AttributionService.Attribute(service.AttributionInput{
				ReferralCode:  affiliate.ReferralCode,
				CustomerEmail: fmt.Sprintf("customer%d.%d@example.com", i+1, j),
				CustomerName:  fmt.Sprintf("Customer %d-%d", i+1, j),
				EventType:     item.program.Kind,
				Amount:        decimal.NewFromInt(int64(40 * j)),
				ListingsCount: j,
			})
			if err != nil && !errors.Is(err, service.ErrReferralAlreadyTracked) {
				stdLog.Fatalf("Failed to attribute referral: %v", err)
			}
		}

		if _, err := c.PayoutService.CreatePayout(operator.ID, service.PayoutCreateInput{
			AffiliateID: affiliate.ID,
			Amount:      decimal.NewFromInt(10),
			Method:      "bank_transfer",
			Reference:   fmt.Sprintf("SEED-%d", affiliate.ID),
			Status:      constants.PayoutStatusCompleted,
		}); err != nil {
			stdLog.Fatalf("Failed to create payout: %v", err)
		}
		stdLog.Printf("Seeded affiliate %s with referral code %s", affiliate.Name, affiliate.ReferralCode)
	}

	stdLog.Printf("Seed data created successfully")
}

func defaultString(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
