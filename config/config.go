package config

import (
	"fmt"
	"os"
	"strings"
)

// Config carries process-wide settings resolved once at startup. It is
// immutable after Load returns; nothing in the codebase reads the
// environment afterwards.
type Config struct {
	DatabaseURL    string
	PaystackSecret string
	JWTSecret      string
	Addr           string
	AllowedOrigins []string
}

// Load resolves configuration from the environment. The Paystack secret is
// mandatory: without it webhook signatures cannot be verified, and running
// without verification would accept forged settlement events.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		PaystackSecret: os.Getenv("PAYSTACK_SECRET_KEY"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Addr:           ":" + envOr("PORT", "4000"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.PaystackSecret == "" {
		return Config{}, fmt.Errorf("config: PAYSTACK_SECRET_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"*"}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
