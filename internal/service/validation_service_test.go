package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/marketplace"
	"github.com/affiliate-desk/internal/models"
	"github.com/affiliate-desk/internal/repository"
)

type fakeMarketplace struct {
	mu      sync.Mutex
	users   map[string]*marketplace.User
	failing map[string]error
	block   map[string]bool
	calls   []string
}

func (f *fakeMarketplace) GetUserByEmail(ctx context.Context, email string) (*marketplace.User, error) {
	f.mu.Lock()
	f.calls = append(f.calls, email)
	blocked := f.block[email]
	err := f.failing[email]
	user := f.users[email]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func newFakeMarketplace() *fakeMarketplace {
	return &fakeMarketplace{
		users: map[string]*marketplace.User{
			"verified@example.com":   {ID: "u1", EmailVerified: true},
			"unverified@example.com": {ID: "u2", EmailVerified: false},
		},
		failing: map[string]error{
			"broken@example.com": errors.New("connection refused"),
		},
		block: map[string]bool{},
	}
}

func (env *engineTestEnv) createReferral(t *testing.T, affiliate models.Affiliate, email string) models.Referral {
	t.Helper()
	referral := models.Referral{
		AffiliateID:      affiliate.ID,
		ProgramID:        affiliate.ProgramID,
		CustomerEmail:    email,
		CustomerName:     "Customer",
		EventType:        constants.EventTypeSignup,
		CommissionEarned: models.NewMoneyFromDecimal(affiliate.Program.CommissionRate.Decimal),
		Status:           constants.ReferralStatusApproved,
	}
	if err := env.referralRepo.Create(&referral); err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	return referral
}

func (env *engineTestEnv) reloadReferral(t *testing.T, id uint) models.Referral {
	t.Helper()
	var referral models.Referral
	if err := env.db.First(&referral, id).Error; err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	return referral
}

func TestReconcileDerivesStatusFromMarketplace(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "VALIDATE", constants.AffiliateStatusActive)
	svc := NewValidationService(env.cfg, env.referralRepo, newFakeMarketplace())

	cases := map[string]string{
		"verified@example.com":   constants.ValidationStatusGreen,
		"unverified@example.com": constants.ValidationStatusAmber,
		"ghost@example.com":      constants.ValidationStatusRed,
		"broken@example.com":     constants.ValidationStatusError,
	}
	for email, want := range cases {
		referral := env.createReferral(t, affiliate, email)
		status, err := svc.Reconcile(context.Background(), &referral)
		if err != nil {
			t.Fatalf("reconcile %s failed: %v", email, err)
		}
		if status != want {
			t.Fatalf("%s: status want %s got %s", email, want, status)
		}
		stored := env.reloadReferral(t, referral.ID)
		if stored.ValidationStatusValue() != want {
			t.Fatalf("%s: stored status want %s got %s", email, want, stored.ValidationStatusValue())
		}
		if stored.ValidationUpdatedAt == nil {
			t.Fatalf("%s: validation timestamp must be written", email)
		}
		if want == constants.ValidationStatusError && stored.ValidationError == "" {
			t.Fatalf("lookup error text should be recorded")
		}
		if stored.Status != constants.ReferralStatusApproved || !stored.CommissionEarned.Decimal.Equal(referral.CommissionEarned.Decimal) {
			t.Fatalf("reconcile must not touch status or commission")
		}
	}
}

func TestReconcileTimeoutRecordsError(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "TIMEOUT1", constants.AffiliateStatusActive)
	market := newFakeMarketplace()
	market.block["slow@example.com"] = true

	cfg := &config.Config{}
	cfg.Marketplace.TimeoutMS = 30
	svc := NewValidationService(cfg, env.referralRepo, market)
	referral := env.createReferral(t, affiliate, "slow@example.com")

	status, err := svc.Reconcile(context.Background(), &referral)
	if err != nil {
		t.Fatalf("timeout should not surface as error: %v", err)
	}
	if status != constants.ValidationStatusError {
		t.Fatalf("timeout should map to error status, got %s", status)
	}
}

func TestReconcileAllContinuesAfterFailures(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "BATCH001", constants.AffiliateStatusActive)
	svc := NewValidationService(env.cfg, env.referralRepo, newFakeMarketplace())

	referrals := []models.Referral{
		env.createReferral(t, affiliate, "broken@example.com"),
		env.createReferral(t, affiliate, "verified@example.com"),
		env.createReferral(t, affiliate, "ghost@example.com"),
	}
	result := svc.ReconcileAll(context.Background(), referrals)
	if result.Total != 3 || result.Validated != 2 {
		t.Fatalf("unexpected batch totals: %+v", result)
	}
	if result.Errored != 1 || result.Green != 1 || result.Red != 1 {
		t.Fatalf("unexpected batch breakdown: %+v", result)
	}
	if result.Canceled {
		t.Fatalf("batch should not be canceled")
	}
}

func TestReconcileAllStopsOnCancel(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "CANCEL01", constants.AffiliateStatusActive)
	market := newFakeMarketplace()
	market.block["slow@example.com"] = true

	cfg := &config.Config{}
	cfg.Marketplace.TimeoutMS = 5000
	svc := NewValidationService(cfg, env.referralRepo, market)
	first := env.createReferral(t, affiliate, "verified@example.com")
	slow := env.createReferral(t, affiliate, "slow@example.com")
	last := env.createReferral(t, affiliate, "unverified@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	result := svc.ReconcileAll(ctx, []models.Referral{first, slow, last})
	if !result.Canceled {
		t.Fatalf("batch should report cancellation: %+v", result)
	}
	if result.Validated != 1 || result.Green != 1 {
		t.Fatalf("only the first referral should be processed: %+v", result)
	}
	if env.reloadReferral(t, slow.ID).ValidationStatus != nil {
		t.Fatalf("in-flight referral must be left untouched on cancel")
	}
	if env.reloadReferral(t, last.ID).ValidationStatus != nil {
		t.Fatalf("undispatched referral must be left untouched on cancel")
	}
}

func TestReconcileOperatorOnlyTouchesCandidates(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "OPERATE1", constants.AffiliateStatusActive)
	otherProgram := env.createProgram(t, 2, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	other := env.createAffiliate(t, otherProgram, "OPERATE2", constants.AffiliateStatusActive)
	market := newFakeMarketplace()
	svc := NewValidationService(env.cfg, env.referralRepo, market)

	fresh := env.createReferral(t, affiliate, "unverified@example.com")
	red := env.createReferral(t, affiliate, "ghost@example.com")
	if err := env.referralRepo.UpdateValidation(red.ID, constants.ValidationStatusRed, "", time.Now()); err != nil {
		t.Fatalf("seed red failed: %v", err)
	}
	env.createReferral(t, other, "verified@example.com")

	result, err := svc.ReconcileOperator(context.Background(), 1)
	if err != nil {
		t.Fatalf("reconcile operator failed: %v", err)
	}
	if result.Total != 1 || result.Amber != 1 {
		t.Fatalf("only the fresh referral should be reconciled: %+v", result)
	}
	if len(market.calls) != 1 || market.calls[0] != fresh.CustomerEmail {
		t.Fatalf("unexpected marketplace calls: %v", market.calls)
	}

	// amber 记录下次仍会被重新校验
	again, err := svc.ReconcileOperator(context.Background(), 1)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if again.Total != 1 {
		t.Fatalf("amber referral should remain a candidate, got %+v", again)
	}
}

func TestReconcileOperatorRetriesErroredReferrals(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "RETRY001", constants.AffiliateStatusActive)
	market := newFakeMarketplace()
	market.failing["flaky@example.com"] = errors.New("503 service unavailable")
	svc := NewValidationService(env.cfg, env.referralRepo, market)

	referral := env.createReferral(t, affiliate, "flaky@example.com")

	first, err := svc.ReconcileOperator(context.Background(), 1)
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	if first.Total != 1 || first.Errored != 1 || first.Validated != 0 {
		t.Fatalf("lookup failure should count as errored only: %+v", first)
	}
	if got := env.reloadReferral(t, referral.ID).ValidationStatusValue(); got != constants.ValidationStatusError {
		t.Fatalf("want error status after failed lookup, got %s", got)
	}

	// 市场恢复后，error 记录应被再次校验
	market.mu.Lock()
	delete(market.failing, "flaky@example.com")
	market.users["flaky@example.com"] = &marketplace.User{ID: "u9", EmailVerified: true}
	market.mu.Unlock()

	second, err := svc.ReconcileOperator(context.Background(), 1)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if second.Total != 1 || second.Green != 1 || second.Errored != 0 {
		t.Fatalf("errored referral should be retried and turn green: %+v", second)
	}
	stored := env.reloadReferral(t, referral.ID)
	if stored.ValidationStatusValue() != constants.ValidationStatusGreen || stored.ValidationError != "" {
		t.Fatalf("retried referral should be green without error text, got %s %q", stored.ValidationStatusValue(), stored.ValidationError)
	}

	third, err := svc.ReconcileOperator(context.Background(), 1)
	if err != nil {
		t.Fatalf("third reconcile failed: %v", err)
	}
	if third.Total != 0 {
		t.Fatalf("green referral should no longer be a candidate: %+v", third)
	}
}

func TestReconcileByIDScopesToOperator(t *testing.T) {
	env := setupEngineTest(t)
	program := env.createProgram(t, 1, constants.ProgramKindSignup, constants.CommissionTypeFixed, "5")
	affiliate := env.createAffiliate(t, program, "SCOPED01", constants.AffiliateStatusActive)
	svc := NewValidationService(env.cfg, env.referralRepo, newFakeMarketplace())
	referral := env.createReferral(t, affiliate, "verified@example.com")

	if _, err := svc.ReconcileByID(context.Background(), 2, referral.ID); !errors.Is(err, ErrReferralNotFound) {
		t.Fatalf("foreign operator want not found, got %v", err)
	}
	updated, err := svc.ReconcileByID(context.Background(), 1, referral.ID)
	if err != nil {
		t.Fatalf("reconcile by id failed: %v", err)
	}
	if updated.ValidationStatusValue() != constants.ValidationStatusGreen {
		t.Fatalf("want green got %s", updated.ValidationStatusValue())
	}
}

// memoryReferralRepo 并发校验使用的内存仓储
type memoryReferralRepo struct {
	repository.ReferralRepository
	mu      sync.Mutex
	updates map[uint]string
	failOn  uint
}

func (m *memoryReferralRepo) UpdateValidation(id uint, status string, lookupErr string, validatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.failOn {
		return errors.New("disk full")
	}
	m.updates[id] = status
	return nil
}

func TestReconcileAllWorkerPool(t *testing.T) {
	repo := &memoryReferralRepo{updates: map[uint]string{}, failOn: 3}
	cfg := &config.Config{}
	cfg.Validation.Workers = 4
	svc := NewValidationService(cfg, repo, newFakeMarketplace())

	emails := []string{"verified@example.com", "unverified@example.com", "ghost@example.com", "broken@example.com", "verified@example.com"}
	referrals := make([]models.Referral, 0, len(emails))
	for i, email := range emails {
		referrals = append(referrals, models.Referral{ID: uint(i + 1), CustomerEmail: email})
	}

	result := svc.ReconcileAll(context.Background(), referrals)
	if result.Total != 5 || len(result.Items) != 5 {
		t.Fatalf("unexpected totals: %+v", result)
	}
	if result.Failed != 1 || result.Validated != 3 {
		t.Fatalf("persistence failure should be captured per item: %+v", result)
	}
	if result.Green != 2 || result.Amber != 1 || result.Errored != 1 {
		t.Fatalf("unexpected breakdown: %+v", result)
	}
	if len(repo.updates) != 4 {
		t.Fatalf("want 4 persisted updates, got %d", len(repo.updates))
	}
}
