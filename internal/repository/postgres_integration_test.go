//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.Payout{},
		&models.Referral{},
		&models.AffiliateClick{},
		&models.Affiliate{},
		&models.Program{},
		&models.Operator{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresAffiliateRepository(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	affiliate := seedReferralRepoAffiliate(t, db, 1, "Partner@Example.com", "PGCODE1")
	repo := NewAffiliateRepository(db)

	rows, total, err := repo.List(AffiliateListFilter{OperatorID: 1, Keyword: "partner", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list affiliates failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != affiliate.ID {
		t.Fatalf("ILIKE keyword search should match case-insensitively, total=%d rows=%d", total, len(rows))
	}

	duplicate := models.Affiliate{
		OperatorID:   2,
		ProgramID:    affiliate.ProgramID,
		Name:         "Other",
		Email:        "other@example.com",
		ReferralCode: "PGCODE1",
		Status:       constants.AffiliateStatusActive,
	}
	if err := repo.Create(&duplicate); err == nil || !IsUniqueViolation(err) {
		t.Fatalf("duplicate referral code should be a unique violation, got %v", err)
	}

	if err := repo.IncrementCounters(affiliate.ID, 1, decimal.RequireFromString("12.345")); err != nil {
		t.Fatalf("increment counters failed: %v", err)
	}
	if err := repo.IncrementCounters(affiliate.ID, 1, decimal.RequireFromString("0.5")); err != nil {
		t.Fatalf("increment counters failed: %v", err)
	}
	reloaded, err := repo.GetByID(affiliate.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.TotalReferrals != 2 || reloaded.TotalEarnings.String() != "12.85" {
		t.Fatalf("unexpected counters referrals=%d earnings=%s", reloaded.TotalReferrals, reloaded.TotalEarnings.String())
	}
}

func TestPostgresReferralDedupAndDashboard(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	affiliate := seedReferralRepoAffiliate(t, db, 1, "dash@example.com", "PGDASH")
	referralRepo := NewReferralRepository(db)

	now := time.Now().UTC()
	referral := models.Referral{
		AffiliateID:      affiliate.ID,
		ProgramID:        affiliate.ProgramID,
		CustomerEmail:    "buyer@example.com",
		CustomerName:     "Buyer",
		EventType:        constants.EventTypeSignup,
		CommissionEarned: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		Status:           constants.ReferralStatusApproved,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := referralRepo.Create(&referral); err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	again := referral
	again.ID = 0
	if err := referralRepo.Create(&again); err == nil || !IsUniqueViolation(err) {
		t.Fatalf("duplicate (affiliate, email) should be a unique violation, got %v", err)
	}
	if err := referralRepo.UpdateValidation(referral.ID, constants.ValidationStatusGreen, "", now); err != nil {
		t.Fatalf("update validation failed: %v", err)
	}

	dashboard := NewDashboardRepository(db)
	day := now.Truncate(24 * time.Hour)
	overview, err := dashboard.GetOverview(1, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("dashboard overview failed: %v", err)
	}
	if overview.ReferralsTotal != 1 || overview.ValidationGreen != 1 || overview.CommissionGreen.String() != "5.00" {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	trends, err := dashboard.GetReferralTrends(1, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("dashboard trends failed: %v", err)
	}
	if len(trends) != 1 || trends[0].Day != day.Format("2006-01-02") {
		t.Fatalf("unexpected postgres day bucket: %+v", trends)
	}
}
