package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var serviceTestDBSeq int64

type engineTestEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	operatorRepo  *repository.GormOperatorRepository
	programRepo   *repository.GormProgramRepository
	affiliateRepo *repository.GormAffiliateRepository
	referralRepo  *repository.GormReferralRepository
	payoutRepo    *repository.GormPayoutRepository
	attribution   *AttributionService
}

func setupEngineTest(t *testing.T) *engineTestEnv {
	t.Helper()
	seq := atomic.AddInt64(&serviceTestDBSeq, 1)
	dsn := fmt.Sprintf("file:service_engine_test_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), seq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpireHours = 1
	env := &engineTestEnv{
		db:            db,
		cfg:           cfg,
		operatorRepo:  repository.NewOperatorRepository(db),
		programRepo:   repository.NewProgramRepository(db),
		affiliateRepo: repository.NewAffiliateRepository(db),
		referralRepo:  repository.NewReferralRepository(db),
		payoutRepo:    repository.NewPayoutRepository(db),
	}
	env.attribution = NewAttributionService(cfg, NewAffiliateDirectory(env.affiliateRepo), env.affiliateRepo, env.referralRepo, nil)
	return env
}

func (env *engineTestEnv) createProgram(t *testing.T, operatorID uint, kind, commissionType, rate string) models.Program {
	t.Helper()
	program := models.Program{
		OperatorID:     operatorID,
		Name:           kind + " program",
		Kind:           kind,
		CommissionType: commissionType,
		CommissionRate: models.NewRateFromDecimal(decimal.RequireFromString(rate)),
		Status:         constants.ProgramStatusActive,
	}
	if err := env.db.Create(&program).Error; err != nil {
		t.Fatalf("create program failed: %v", err)
	}
	return program
}

func (env *engineTestEnv) createAffiliate(t *testing.T, program models.Program, code, status string) models.Affiliate {
	t.Helper()
	affiliate := models.Affiliate{
		OperatorID:   program.OperatorID,
		ProgramID:    program.ID,
		Name:         "Affiliate " + code,
		Email:        code + "@affiliates.example.com",
		ReferralCode: code,
		Status:       status,
	}
	if err := env.affiliateRepo.Create(&affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return affiliate
}

func (env *engineTestEnv) reloadAffiliate(t *testing.T, id uint) models.Affiliate {
	t.Helper()
	var affiliate models.Affiliate
	if err := env.db.First(&affiliate, id).Error; err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	return affiliate
}

func TestAttributeSignupFixedCommission(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "SIGNUP01", constants.AffiliateStatusActive)

	result, err := env.attribution.Attribute(AttributionInput{
		ReferralCode:  " signup01 ",
		CustomerEmail: "  New.User@Example.COM ",
		CustomerName:  "New User",
		EventType:     "signup",
	})
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	if !result.Attributed() {
		t.Fatalf("expected referral to be created")
	}
	referral := result.Referral
	if referral.CustomerEmail != "new.user@example.com" {
		t.Fatalf("email should be normalized, got %s", referral.CustomerEmail)
	}
	if referral.Status != constants.ReferralStatusApproved {
		t.Fatalf("signup referral should start approved, got %s", referral.Status)
	}
	if !referral.CommissionEarned.Decimal.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("commission want 5 got %s", referral.CommissionEarned.String())
	}
	if referral.ValidationStatus != nil {
		t.Fatalf("new referral must not carry a validation status")
	}

	reloaded := env.reloadAffiliate(t, affiliate.ID)
	if reloaded.TotalReferrals != 1 || !reloaded.TotalEarnings.Decimal.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("counters not applied: referrals=%d earnings=%s", reloaded.TotalReferrals, reloaded.TotalEarnings.String())
	}
}

func TestAttributePurchasePercentageStartsPending(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindPurchase, constants.CommissionTypePercentage, "10")
	env.createAffiliate(t, program, "BUYER001", constants.AffiliateStatusActive)

	result, err := env.attribution.Attribute(AttributionInput{
		ReferralCode:  "BUYER001",
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Buyer",
		EventType:     "purchase",
		Amount:        decimal.RequireFromString("250"),
		ListingsCount: 3,
	})
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	if result.Referral.Status != constants.ReferralStatusPending {
		t.Fatalf("purchase referral should start pending, got %s", result.Referral.Status)
	}
	if !result.Referral.CommissionEarned.Decimal.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("commission want 25 got %s", result.Referral.CommissionEarned.String())
	}
	if result.Referral.ListingsCount != 3 {
		t.Fatalf("listings count want 3 got %d", result.Referral.ListingsCount)
	}
}

func TestAttributeKindMismatchAcceptsWithZeroCommission(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	env.createAffiliate(t, program, "MISMATCH", constants.AffiliateStatusActive)

	result, err := env.attribution.Attribute(AttributionInput{
		ReferralCode:  "MISMATCH",
		CustomerEmail: "p@example.com",
		CustomerName:  "P",
		EventType:     "purchase",
		Amount:        decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	if !result.Referral.CommissionEarned.Decimal.IsZero() {
		t.Fatalf("kind mismatch should yield zero commission, got %s", result.Referral.CommissionEarned.String())
	}
}

func TestAttributeWithoutCodeIsUnattributed(t *testing.T) {
	env := setupEngineTest(t)
	result, err := env.attribution.Attribute(AttributionInput{
		CustomerEmail: "organic@example.com",
		CustomerName:  "Organic",
		EventType:     "signup",
	})
	if err != nil {
		t.Fatalf("attribute without code failed: %v", err)
	}
	if result.Attributed() {
		t.Fatalf("no referral should be created without a code")
	}
	var count int64
	env.db.Model(&models.Referral{}).Count(&count)
	if count != 0 {
		t.Fatalf("no rows expected, got %d", count)
	}
}

func TestAttributeRejections(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	env.createAffiliate(t, program, "PAUSED01", constants.AffiliateStatusInactive)
	env.createAffiliate(t, program, "PENDING1", constants.AffiliateStatusPending)

	cases := []struct {
		name  string
		input AttributionInput
		want  error
	}{
		{"missing_email", AttributionInput{ReferralCode: "X", CustomerName: "n", EventType: "signup"}, ErrMissingFields},
		{"missing_name", AttributionInput{ReferralCode: "X", CustomerEmail: "a@example.com", EventType: "signup"}, ErrMissingFields},
		{"missing_action", AttributionInput{ReferralCode: "X", CustomerEmail: "a@example.com", CustomerName: "n"}, ErrMissingFields},
		{"bad_action", AttributionInput{CustomerEmail: "a@example.com", CustomerName: "n", EventType: "refund"}, ErrInvalidEventType},
		{"bad_email", AttributionInput{CustomerEmail: "not-an-email", CustomerName: "n", EventType: "signup"}, ErrInvalidEmail},
		{"negative_amount", AttributionInput{CustomerEmail: "a@example.com", CustomerName: "n", EventType: "purchase", Amount: decimal.NewFromInt(-1)}, ErrInvalidAmount},
		{"unknown_code", AttributionInput{ReferralCode: "NOPE0000", CustomerEmail: "a@example.com", CustomerName: "n", EventType: "signup"}, ErrInvalidReferralCode},
		{"inactive_affiliate", AttributionInput{ReferralCode: "PAUSED01", CustomerEmail: "a@example.com", CustomerName: "n", EventType: "signup"}, ErrInvalidReferralCode},
		{"pending_affiliate", AttributionInput{ReferralCode: "PENDING1", CustomerEmail: "a@example.com", CustomerName: "n", EventType: "signup"}, ErrInvalidReferralCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.attribution.Attribute(tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

func TestAttributeDuplicateCustomerIsAlreadyTracked(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "DUPCHECK", constants.AffiliateStatusActive)

	input := AttributionInput{ReferralCode: "DUPCHECK", CustomerEmail: "x@example.com", CustomerName: "X", EventType: "signup"}
	if _, err := env.attribution.Attribute(input); err != nil {
		t.Fatalf("first attribute failed: %v", err)
	}
	input.CustomerEmail = " X@EXAMPLE.com"
	if _, err := env.attribution.Attribute(input); !errors.Is(err, ErrReferralAlreadyTracked) {
		t.Fatalf("want already tracked, got %v", err)
	}

	reloaded := env.reloadAffiliate(t, affiliate.ID)
	if reloaded.TotalReferrals != 1 {
		t.Fatalf("duplicate must not bump counters, got %d", reloaded.TotalReferrals)
	}
}

// racingReferralRepo 模拟并发写入：查重时看不到另一请求刚写入的记录
type racingReferralRepo struct {
	*repository.GormReferralRepository
	lookups int
}

func (r *racingReferralRepo) GetByAffiliateAndEmail(affiliateID uint, email string) (*models.Referral, error) {
	r.lookups++
	return nil, nil
}

func TestAttributeConcurrentInsertMapsToAlreadyTracked(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "RACE0001", constants.AffiliateStatusActive)

	input := AttributionInput{ReferralCode: "RACE0001", CustomerEmail: "race@example.com", CustomerName: "Race", EventType: "signup"}
	if _, err := env.attribution.Attribute(input); err != nil {
		t.Fatalf("first attribute failed: %v", err)
	}

	racing := &racingReferralRepo{GormReferralRepository: env.referralRepo}
	svc := NewAttributionService(env.cfg, NewAffiliateDirectory(env.affiliateRepo), env.affiliateRepo, racing, nil)
	result, err := svc.Attribute(input)
	if !errors.Is(err, ErrReferralAlreadyTracked) {
		t.Fatalf("unique violation on insert want already tracked, got %v", err)
	}
	if result.Attributed() {
		t.Fatalf("losing insert must not return a referral")
	}
	if racing.lookups != 1 {
		t.Fatalf("duplicate pre-check should run once, got %d", racing.lookups)
	}

	var count int64
	env.db.Model(&models.Referral{}).Where("affiliate_id = ?", affiliate.ID).Count(&count)
	if count != 1 {
		t.Fatalf("want a single referral row, got %d", count)
	}
	reloaded := env.reloadAffiliate(t, affiliate.ID)
	if reloaded.TotalReferrals != 1 {
		t.Fatalf("losing insert must not bump counters, got %d", reloaded.TotalReferrals)
	}
}

// brokenCountersAffiliateRepo 累加计数始终失败的推广用户仓储
type brokenCountersAffiliateRepo struct {
	*repository.GormAffiliateRepository
}

func (r *brokenCountersAffiliateRepo) WithTx(tx *gorm.DB) repository.AffiliateRepository {
	return r
}

func (r *brokenCountersAffiliateRepo) IncrementCounters(id uint, referrals int64, earnings decimal.Decimal) error {
	return errors.New("database is locked")
}

func TestSweepPendingCountersRecoversFailedApply(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "3.25")
	affiliate := env.createAffiliate(t, program, "SWEEP001", constants.AffiliateStatusActive)

	broken := NewAttributionService(env.cfg, NewAffiliateDirectory(env.affiliateRepo), &brokenCountersAffiliateRepo{GormAffiliateRepository: env.affiliateRepo}, env.referralRepo, nil)
	result, err := broken.Attribute(AttributionInput{ReferralCode: "SWEEP001", CustomerEmail: "s@example.com", CustomerName: "S", EventType: "signup"})
	if err != nil {
		t.Fatalf("attribute must succeed even when counters fail: %v", err)
	}
	if stored := env.reloadReferral(t, result.Referral.ID); stored.CountersApplied {
		t.Fatalf("failed counter apply must leave counters_applied false")
	}
	if reloaded := env.reloadAffiliate(t, affiliate.ID); reloaded.TotalReferrals != 0 {
		t.Fatalf("counters should not be applied yet, got %d", reloaded.TotalReferrals)
	}

	// 宽限期内的记录不处理
	applied, err := env.attribution.SweepPendingCounters(context.Background(), time.Hour, 10)
	if err != nil || applied != 0 {
		t.Fatalf("fresh referral should wait for grace period, applied=%d err=%v", applied, err)
	}

	applied, err = env.attribution.SweepPendingCounters(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if applied != 1 {
		t.Fatalf("want 1 swept referral, got %d", applied)
	}
	reloaded := env.reloadAffiliate(t, affiliate.ID)
	if reloaded.TotalReferrals != 1 || !reloaded.TotalEarnings.Decimal.Equal(decimal.RequireFromString("3.25")) {
		t.Fatalf("sweep should apply counters: referrals=%d earnings=%s", reloaded.TotalReferrals, reloaded.TotalEarnings.String())
	}
	if !env.reloadReferral(t, result.Referral.ID).CountersApplied {
		t.Fatalf("sweep should mark counters applied")
	}

	applied, err = env.attribution.SweepPendingCounters(context.Background(), 0, 10)
	if err != nil || applied != 0 {
		t.Fatalf("second sweep should be a no-op, applied=%d err=%v", applied, err)
	}
	if reloaded := env.reloadAffiliate(t, affiliate.ID); reloaded.TotalReferrals != 1 {
		t.Fatalf("counters applied twice: %d", reloaded.TotalReferrals)
	}
}

func TestSweepPendingCountersStopsOnCancel(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "1")
	env.createAffiliate(t, program, "SWEEP002", constants.AffiliateStatusActive)
	broken := NewAttributionService(env.cfg, NewAffiliateDirectory(env.affiliateRepo), &brokenCountersAffiliateRepo{GormAffiliateRepository: env.affiliateRepo}, env.referralRepo, nil)
	if _, err := broken.Attribute(AttributionInput{ReferralCode: "SWEEP002", CustomerEmail: "c@example.com", CustomerName: "C", EventType: "signup"}); err != nil {
		t.Fatalf("attribute failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	applied, err := env.attribution.SweepPendingCounters(ctx, 0, 10)
	if !errors.Is(err, context.Canceled) || applied != 0 {
		t.Fatalf("canceled sweep want context.Canceled and 0 applied, got %d %v", applied, err)
	}
}

func TestApplyReferralCountersIsIdempotent(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "4.50")
	affiliate := env.createAffiliate(t, program, "IDEMPOT1", constants.AffiliateStatusActive)

	result, err := env.attribution.Attribute(AttributionInput{ReferralCode: "IDEMPOT1", CustomerEmail: "i@example.com", CustomerName: "I", EventType: "signup"})
	if err != nil {
		t.Fatalf("attribute failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := env.attribution.ApplyReferralCounters(result.Referral.ID); err != nil {
			t.Fatalf("apply counters failed: %v", err)
		}
	}
	reloaded := env.reloadAffiliate(t, affiliate.ID)
	if reloaded.TotalReferrals != 1 || !reloaded.TotalEarnings.Decimal.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("counters applied more than once: referrals=%d earnings=%s", reloaded.TotalReferrals, reloaded.TotalEarnings.String())
	}

	if err := env.attribution.ApplyReferralCounters(99999); !errors.Is(err, ErrReferralNotFound) {
		t.Fatalf("unknown referral should fail, got %v", err)
	}
}

func TestTrackClickDedupesVisitor(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "CLICKER1", constants.AffiliateStatusActive)

	input := ClickInput{ReferralCode: "clicker1", VisitorKey: "visitor-1", LandingURL: "https://shop.example.com/"}
	for i := 0; i < 2; i++ {
		got, err := env.attribution.TrackClick(input)
		if err != nil {
			t.Fatalf("track click failed: %v", err)
		}
		if got.ID != affiliate.ID {
			t.Fatalf("unexpected affiliate %d", got.ID)
		}
	}
	var count int64
	env.db.Model(&models.AffiliateClick{}).Where("affiliate_id = ?", affiliate.ID).Count(&count)
	if count != 1 {
		t.Fatalf("click should be deduped, got %d rows", count)
	}

	if _, err := env.attribution.TrackClick(ClickInput{ReferralCode: "UNKNOWN0"}); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("unknown code click want invalid code, got %v", err)
	}
}
