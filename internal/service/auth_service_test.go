package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/affiliate-desk/internal/config"
	"github.com/affiliate-desk/internal/constants"
	"github.com/affiliate-desk/internal/models"
)

func createAuthTestOperator(t *testing.T, env *engineTestEnv, svc *AuthService, email, password, status string) models.Operator {
	t.Helper()
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	operator := models.Operator{Name: "op", Email: email, PasswordHash: hash, Status: status}
	if err := env.operatorRepo.Create(&operator); err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	return operator
}

func TestAuthServiceLogin(t *testing.T) {
	env := setupEngineTest(t)
	svc := NewAuthService(env.cfg, env.operatorRepo)
	operator := createAuthTestOperator(t, env, svc, "ops@example.com", "s3cret-pass", constants.OperatorStatusActive)

	logged, token, expiresAt, err := svc.Login(" OPS@example.com ", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != operator.ID || token == "" || expiresAt.IsZero() {
		t.Fatalf("unexpected login result %+v %q %v", logged, token, expiresAt)
	}
	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if claims.OperatorID != operator.ID {
		t.Fatalf("claims operator want %d got %d", operator.ID, claims.OperatorID)
	}

	if _, _, _, err := svc.Login("ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password want invalid credentials, got %v", err)
	}
	if _, _, _, err := svc.Login("nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown operator want invalid credentials, got %v", err)
	}
}

func TestAuthServiceRejectsDisabledOperator(t *testing.T) {
	env := setupEngineTest(t)
	svc := NewAuthService(env.cfg, env.operatorRepo)
	operator := createAuthTestOperator(t, env, svc, "off@example.com", "pass-word", constants.OperatorStatusDisabled)

	if _, _, _, err := svc.Login("off@example.com", "pass-word"); !errors.Is(err, ErrOperatorDisabled) {
		t.Fatalf("disabled operator want ErrOperatorDisabled, got %v", err)
	}
	status, err := svc.ResolveOperatorStatus(t.Context(), operator.ID)
	if err != nil {
		t.Fatalf("resolve status failed: %v", err)
	}
	if status != constants.OperatorStatusDisabled {
		t.Fatalf("status want disabled got %s", status)
	}
	if _, err := svc.ParseJWT("not-a-token"); err == nil {
		t.Fatalf("garbage token should fail to parse")
	}
}

func TestAuthServiceChangePassword(t *testing.T) {
	env := setupEngineTest(t)
	env.cfg.Security.PasswordPolicy.MinLength = 10
	env.cfg.Security.PasswordPolicy.RequireNumber = true
	svc := NewAuthService(env.cfg, env.operatorRepo)
	operator := createAuthTestOperator(t, env, svc, "change@example.com", "old-password-1", constants.OperatorStatusActive)

	if err := svc.ChangePassword(t.Context(), operator.ID, "wrong", "new-password-2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("wrong current password want ErrPasswordMismatch, got %v", err)
	}
	if err := svc.ChangePassword(t.Context(), operator.ID, "old-password-1", "short1"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password want ErrWeakPassword, got %v", err)
	}
	if err := svc.ChangePassword(t.Context(), operator.ID, "old-password-1", "no-digits-here"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("password without number want ErrWeakPassword, got %v", err)
	}
	if err := svc.ChangePassword(t.Context(), operator.ID, "old-password-1", "old-password-1"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("reusing current password want ErrWeakPassword, got %v", err)
	}
	if err := svc.ChangePassword(t.Context(), operator.ID, "old-password-1", "change-me-2026"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("password containing email local part want ErrWeakPassword, got %v", err)
	}
	if err := svc.ChangePassword(t.Context(), operator.ID, "old-password-1", "new-password-2"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, _, _, err := svc.Login("change@example.com", "old-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should stop working, got %v", err)
	}
	if _, _, _, err := svc.Login("change@example.com", "new-password-2"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if err := svc.ChangePassword(t.Context(), 9999, "x", "new-password-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown operator want ErrNotFound, got %v", err)
	}
}

func TestOperatorPasswordCheckCharacterClasses(t *testing.T) {
	if err := (operatorPasswordCheck{}).validate("x"); err != nil {
		t.Fatalf("empty policy should accept anything, got %v", err)
	}
	check := operatorPasswordCheck{policy: config.PasswordPolicyConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true, RequireSpecial: true}}
	cases := map[string]string{
		"Ab1!":       "error.password_min_length",
		"abcdefg1!":  "error.password_require_upper",
		"ABCDEFG1!":  "error.password_require_lower",
		"Abcdefgh!":  "error.password_require_number",
		"Abcdefgh1":  "error.password_require_special",
		"Abcdefg1!x": "",
	}
	for password, wantKey := range cases {
		assertPasswordKey(t, check.validate(password), password, wantKey)
	}
}

func TestOperatorPasswordCheckOperatorRules(t *testing.T) {
	operator := &models.Operator{Name: "Acme Shop", Email: "finance.team@acme.test"}
	check := operatorPasswordCheck{operator: operator, current: "Current-pass-1"}

	cases := map[string]string{
		"Current-pass-1":             "error.password_reused",
		"my-FINANCE.TEAM-2026":       "error.password_contains_identity",
		"acme shop rocks 1":          "error.password_contains_identity",
		strings.Repeat("a", 73):      "error.password_max_length",
		"Unrelated-secret-9":         "",
		strings.Repeat("b", 72):      "",
		"acme-only-short-name-match": "",
	}
	for password, wantKey := range cases {
		assertPasswordKey(t, check.validate(password), password, wantKey)
	}

	short := operatorPasswordCheck{operator: &models.Operator{Name: "Bo", Email: "bo@x.test"}}
	if err := short.validate("bo-bo-bo-123"); err != nil {
		t.Fatalf("identity shorter than the minimum should not be matched, got %v", err)
	}
}

func assertPasswordKey(t *testing.T, err error, password, wantKey string) {
	t.Helper()
	if wantKey == "" {
		if err != nil {
			t.Fatalf("password %q should pass, got %v", password, err)
		}
		return
	}
	var policyErr passwordPolicyError
	if !errors.As(err, &policyErr) || policyErr.Key() != wantKey {
		t.Fatalf("password %q want %s got %v", password, wantKey, err)
	}
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("password %q error should match ErrWeakPassword", password)
	}
}
