package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/visits")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected default ENV to be development")
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("unexpected pool defaults: max=%d min=%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.ReminderInterval != time.Hour {
		t.Errorf("expected 1h reminder interval, got %s", cfg.ReminderInterval)
	}
	if cfg.ReminderCooldown != 24*time.Hour {
		t.Errorf("expected 24h reminder cooldown, got %s", cfg.ReminderCooldown)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without VAPID keys")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestValidateProductionRequiresAuth(t *testing.T) {
	cfg := &Config{
		Env:              "production",
		ReminderInterval: time.Hour,
		ReminderCooldown: 24 * time.Hour,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for production without auth issuer")
	}
	if !strings.Contains(err.Error(), "AUTH_ISSUER") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.AuthIssuer = "https://auth.example.com/realms/clinic"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with issuer set: %v", err)
	}
}

func TestValidateVAPIDPairing(t *testing.T) {
	cfg := &Config{
		Env:              "development",
		VAPIDPublicKey:   "pub",
		ReminderInterval: time.Hour,
		ReminderCooldown: 24 * time.Hour,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for VAPID public key without private key")
	}

	cfg.VAPIDPrivateKey = "priv"
	cfg.VAPIDSubject = "mailto:clinic@example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with paired keys: %v", err)
	}
	if !cfg.PushEnabled() {
		t.Error("push should be enabled with both keys set")
	}

	cfg.VAPIDSubject = "clinic@example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for VAPID subject without mailto: prefix")
	}
}

func TestValidateReminderDurations(t *testing.T) {
	cfg := &Config{Env: "development", ReminderCooldown: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive reminder interval")
	}
}

func TestValidateGoogleCredentialPairing(t *testing.T) {
	cfg := &Config{
		Env:              "development",
		GoogleClientID:   "client-id",
		ReminderInterval: time.Hour,
		ReminderCooldown: 24 * time.Hour,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for client id without secret")
	}
}
