package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TALLY_DB_PATH", "TALLY_LISTEN_ADDR", "TALLY_LOG_LEVEL", "TALLY_LOW_STOCK", "TALLY_RATE_BURST", "TALLY_RATE_PER_SEC", "TALLY_MIGRATE_ON_START"} {
		unset(t, k)
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "tallybook.db" || cfg.ListenAddr != "127.0.0.1:8787" || cfg.LowStock != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.MigrateOnStart || cfg.RateBurst != 50 || cfg.RatePerSec != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestEnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "TALLY_DB_PATH=/tmp/shop.db\nTALLY_LOW_STOCK=2\nTALLY_LOG_LEVEL=DEBUG\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	unset(t, "TALLY_DB_PATH")
	unset(t, "TALLY_LOG_LEVEL")
	t.Setenv("TALLY_LOW_STOCK", "9")
	t.Setenv("TALLY_MIGRATE_ON_START", "false")

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/shop.db" {
		t.Fatalf("env file ignored: %q", cfg.DBPath)
	}
	if cfg.LowStock != 9 {
		t.Fatalf("explicit env should win over .env, got %d", cfg.LowStock)
	}
	if cfg.LogLevel != "debug" || cfg.MigrateOnStart {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"TALLY_LOW_STOCK":        "many",
		"TALLY_MIGRATE_ON_START": "perhaps",
		"TALLY_LISTEN_ADDR":      "0.0.0.0:8787",
		"TALLY_RATE_PER_SEC":     "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestRequireLoopback(t *testing.T) {
	for _, addr := range []string{"127.0.0.1:1", "localhost:8787", "[::1]:9000"} {
		if err := RequireLoopback(addr); err != nil {
			t.Fatalf("%s: %v", addr, err)
		}
	}
	for _, addr := range []string{"192.168.1.4:80", ":8787", "example.com:80", "nonsense"} {
		if err := RequireLoopback(addr); err == nil {
			t.Fatalf("%s accepted", addr)
		}
	}
}

// unset clears key for the test; godotenv only fills variables that are absent.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}
