package config

import (
	"strings"
	"testing"
)

func TestLoad_RequiresPaystackSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hostelflow")
	t.Setenv("PAYSTACK_SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "jwt-secret")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when PAYSTACK_SECRET_KEY is missing")
	}
	if !strings.Contains(err.Error(), "PAYSTACK_SECRET_KEY") {
		t.Fatalf("expected error to name the missing key, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hostelflow")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_abc")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":4000" {
		t.Fatalf("expected default addr :4000, got %s", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("expected permissive origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_SplitsOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hostelflow")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_abc")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://portal.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}
