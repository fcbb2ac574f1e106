package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.JWTIssuer != "hms" {
		t.Errorf("expected issuer hms, got %s", cfg.JWTIssuer)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("expected 15m access TTL, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("expected 168h refresh TTL, got %s", cfg.RefreshTokenTTL)
	}
	if cfg.CacheDefaultTTL != 5*time.Minute {
		t.Errorf("expected 5m cache TTL, got %s", cfg.CacheDefaultTTL)
	}
	if cfg.CacheCleanupInterval != 10*time.Minute {
		t.Errorf("expected 10m cleanup interval, got %s", cfg.CacheCleanupInterval)
	}
	if !cfg.SeedFixtures {
		t.Error("expected fixtures to be seeded by default")
	}
	if cfg.JWTSecret == "" {
		t.Error("expected a development secret")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate in development: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_DEFAULT_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SEED_FIXTURES", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected 9090, got %s", cfg.Port)
	}
	if cfg.CacheDefaultTTL != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.CacheDefaultTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.SeedFixtures {
		t.Error("expected SEED_FIXTURES=false to be honored")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
}

func validConfig() *Config {
	return &Config{
		Env:                  "production",
		JWTSecret:            strings.Repeat("k", MinSecretLength),
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      time.Hour,
		CacheDefaultTTL:      5 * time.Minute,
		CacheCleanupInterval: 10 * time.Minute,
		ResponseCacheTTL:     30 * time.Second,
		RequestTimeout:       30 * time.Second,
		RateLimitRPS:         10,
		RateLimitBurst:       20,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"short secret allowed in development", func(c *Config) { c.Env = "development"; c.JWTSecret = "short" }, ""},
		{"empty secret", func(c *Config) { c.Env = "development"; c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"zero cache ttl", func(c *Config) { c.CacheDefaultTTL = 0 }, "CACHE_DEFAULT_TTL"},
		{"negative interval", func(c *Config) { c.CacheCleanupInterval = -time.Second }, "CACHE_CLEANUP_INTERVAL"},
		{"refresh shorter than access", func(c *Config) { c.RefreshTokenTTL = time.Minute }, "REFRESH_TOKEN_TTL"},
		{"no rate limit", func(c *Config) { c.RateLimitBurst = 0 }, "RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
