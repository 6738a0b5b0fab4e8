package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_REVOCATION_STORE", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_SWEEP_INTERVAL_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.RevocationStore != RevocationStorePostgres {
		t.Fatalf("expected postgres store, got %q", cfg.Auth.RevocationStore)
	}
	if cfg.Auth.AccessTokenTTL() != 10*time.Hour {
		t.Fatalf("expected 10h ttl, got %s", cfg.Auth.AccessTokenTTL())
	}
	if cfg.Auth.SweepInterval() != time.Hour {
		t.Fatalf("expected hourly sweep, got %s", cfg.Auth.SweepInterval())
	}
	if !cfg.SweeperActive() {
		t.Fatal("expected sweeper active outside test mode")
	}
}

func TestSweeperDisabledInTestMode(t *testing.T) {
	t.Setenv("APP_ENV", EnvTest)
	t.Setenv("AUTH_SWEEPER_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SweeperActive() {
		t.Fatal("sweeper must be off when APP_ENV=test")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("AUTH_REVOCATION_STORE", "Redis")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("AUTH_SWEEP_INTERVAL_MINUTES", "5")
	t.Setenv("AUTH_SWEEPER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.RevocationStore != RevocationStoreRedis {
		t.Fatalf("expected redis store, got %q", cfg.Auth.RevocationStore)
	}
	if cfg.Auth.AccessTokenTTL() != 15*time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.Auth.AccessTokenTTL())
	}
	if cfg.Auth.SweepInterval() != 5*time.Minute {
		t.Fatalf("unexpected sweep interval %s", cfg.Auth.SweepInterval())
	}
	if cfg.SweeperActive() {
		t.Fatal("expected sweeper disabled by AUTH_SWEEPER_ENABLED=false")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			App: AppConfig{Env: "development"},
			Auth: AuthConfig{
				JWTSecret:             defaultJWTSecret,
				AccessTokenTTLMinutes: 60,
				SweepIntervalMinutes:  60,
				RevocationStore:       RevocationStoreMemory,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "default secret in production", mutate: func(c *Config) { c.App.Env = "production" }, wantErr: true},
		{name: "short secret in production", mutate: func(c *Config) {
			c.App.Env = "production"
			c.Auth.JWTSecret = "short"
		}, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.AccessTokenTTLMinutes = 0 }, wantErr: true},
		{name: "zero sweep interval", mutate: func(c *Config) { c.Auth.SweepIntervalMinutes = 0 }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Auth.RevocationStore = "etcd" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
