package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidateWithAdmin(t *testing.T) {
	cfg := Defaults()
	cfg.Admin.Address = "0x00000000000000000000000000000000000000a1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with admin should validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "banana"
	cfg.LogLevel = "loud"
	cfg.Engine.FeeRateBps = 20_000
	cfg.Redis.Addr = ""
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"unknown mode", "unknown log_level", "fee_rate_bps", "redis: addr", "server: port", "admin:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateAdminAddress(t *testing.T) {
	cfg := Defaults()
	cfg.Admin.Address = "not-an-address"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "not a valid hex address") {
		t.Fatalf("expected hex address error, got %v", err)
	}

	cfg.Admin.Address = ""
	cfg.Admin.EncryptedKeyPath = "/etc/predictd/operator.key"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "key_password") {
		t.Fatalf("expected key_password error, got %v", err)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "monitor"

[admin]
address = "0x00000000000000000000000000000000000000a1"

[engine]
fee_rate_bps = 150

[server]
port = 9100
read_timeout = "30s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PREDICTD_SERVER_PORT", "9200")
	t.Setenv("PREDICTD_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "monitor" {
		t.Fatalf("expected file mode, got %q", cfg.Mode)
	}
	if cfg.Engine.FeeRateBps != 150 {
		t.Fatalf("expected fee rate 150, got %d", cfg.Engine.FeeRateBps)
	}
	// Env beats file.
	if cfg.Server.Port != 9200 {
		t.Fatalf("expected env port 9200, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("expected env redis addr, got %q", cfg.Redis.Addr)
	}
	// Untouched defaults survive.
	if cfg.Postgres.Port != 5432 {
		t.Fatalf("expected default postgres port, got %d", cfg.Postgres.Port)
	}
	if cfg.Server.ReadTimeout.String() != "30s" {
		t.Fatalf("expected parsed duration 30s, got %s", cfg.Server.ReadTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config should validate: %v", err)
	}
}
