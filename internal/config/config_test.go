package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsYAMLAndDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	content := []byte("server:\n  port: \"9090\"\nvalidation:\n  delay_ms: 250\nledger:\n  payout_offset_policy: completed\n")
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yml"), content, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg := Load()
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Validation.DelayMS != 250 {
		t.Fatalf("expected delay 250, got %d", cfg.Validation.DelayMS)
	}
	if cfg.Ledger.PayoutOffsetPolicy != "completed" {
		t.Fatalf("expected completed policy, got %s", cfg.Ledger.PayoutOffsetPolicy)
	}
	if cfg.Attribution.CounterSweepSchedule != "@every 10m" || cfg.Attribution.CounterSweepGraceSec != 300 {
		t.Fatalf("unexpected counter sweep defaults: %q %d", cfg.Attribution.CounterSweepSchedule, cfg.Attribution.CounterSweepGraceSec)
	}
	if cfg.Attribution.TokenTTLDays != 30 {
		t.Fatalf("expected default token ttl 30, got %d", cfg.Attribution.TokenTTLDays)
	}
	if cfg.Marketplace.TimeoutMS != 5000 {
		t.Fatalf("expected default marketplace timeout 5000, got %d", cfg.Marketplace.TimeoutMS)
	}
	if cfg.Security.PasswordPolicy.MinLength != 8 || !cfg.Security.PasswordPolicy.RequireNumber {
		t.Fatalf("unexpected default password policy: %+v", cfg.Security.PasswordPolicy)
	}
	if len(cfg.Database.Replicas) != 0 {
		t.Fatalf("expected no replicas by default, got %v", cfg.Database.Replicas)
	}
}
