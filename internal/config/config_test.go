package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("AUTH_DEFAULT_PASSWORD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Fatalf("driver = %q", cfg.Store.Driver)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("port = %q", cfg.App.Port)
	}
	if cfg.Auth.DefaultPassword != "123456" {
		t.Fatalf("default password = %q", cfg.Auth.DefaultPassword)
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for postgres store without DSN")
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_DB", "zero")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric REDIS_DB")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := &Config{
		App:    AppConfig{Host: "0.0.0.0", Port: "8080"},
		Store:  StoreConfig{Driver: StoreMemory},
		Logger: LoggerConfig{Level: "info"},
		Auth:   AuthConfig{JWTSecret: "s"},
	}
	err := ApplyFlags(cfg, []string{"--addr", "127.0.0.1:9090", "--log-level", "debug", "--seed-file", "dorms.yaml"})
	if err != nil {
		t.Fatalf("ApplyFlags: %v", err)
	}
	if cfg.App.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.App.Addr())
	}
	if cfg.Logger.Level != "debug" || cfg.Seed.File != "dorms.yaml" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestApplyFlagsErrors(t *testing.T) {
	cases := map[string][]string{
		"bad addr":     {"--addr", "nohost"},
		"bad driver":   {"--store", "sqlite"},
		"unknown flag": {"--bogus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{
				App:   AppConfig{Host: "0.0.0.0", Port: "8080"},
				Store: StoreConfig{Driver: StoreMemory},
				Auth:  AuthConfig{JWTSecret: "s"},
			}
			if err := ApplyFlags(cfg, args); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}
