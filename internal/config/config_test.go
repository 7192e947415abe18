package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SYNC_WINDOW_DAYS", "")
	t.Setenv("CORS_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8001" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SyncWindowDays != 7 {
		t.Fatalf("expected default sync window, got %d", cfg.SyncWindowDays)
	}
	if cfg.AutoSyncEnabled {
		t.Fatal("expected auto sync disabled by default")
	}
	if cfg.AutoSyncInterval != 15*time.Minute {
		t.Fatalf("expected default auto sync interval, got %s", cfg.AutoSyncInterval)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/engarde")
	t.Setenv("SIGNUP_SYNC_SERVICE_TOKEN", "secret-token")
	t.Setenv("SYNC_WINDOW_DAYS", "14")
	t.Setenv("SYNC_STATUS_CACHE_TTL", "90s")
	t.Setenv("AUTO_SYNC_ENABLED", "true")
	t.Setenv("AUTO_SYNC_INTERVAL", "45m")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/engarde" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.ServiceToken != "secret-token" {
		t.Fatalf("expected service token override, got %s", cfg.ServiceToken)
	}
	if cfg.SyncWindowDays != 14 {
		t.Fatalf("expected sync window override, got %d", cfg.SyncWindowDays)
	}
	if cfg.StatusCacheTTL != 90*time.Second {
		t.Fatalf("expected cache TTL override, got %s", cfg.StatusCacheTTL)
	}
	if !cfg.AutoSyncEnabled {
		t.Fatal("expected auto sync enabled")
	}
	if cfg.AutoSyncInterval != 45*time.Minute {
		t.Fatalf("expected auto sync interval override, got %s", cfg.AutoSyncInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("expected parsed CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}
