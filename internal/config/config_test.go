package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: "127.0.0.1:9000"
feed:
  poll_interval: 5s
weights:
  risk:
    late_payment: 3
    charge_contact: 0
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Feed.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Feed.PollInterval)
	}
	if cfg.Risk.Risk.LatePayment != 3 {
		t.Errorf("LatePayment = %v, want 3", cfg.Risk.Risk.LatePayment)
	}
	if cfg.Risk.Risk.ChargeContact != 0 {
		t.Errorf("ChargeContact = %v, want explicit 0 kept", cfg.Risk.Risk.ChargeContact)
	}
	if cfg.Risk.Risk.OnTimePayment != -0.8 {
		t.Errorf("OnTimePayment = %v, want -0.8", cfg.Risk.Risk.OnTimePayment)
	}
	if cfg.Feed.RetentionDays != 60 {
		t.Errorf("RetentionDays = %d, want 60", cfg.Feed.RetentionDays)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CLIENTBOOK_PORT":              "9999",
		"CLIENTBOOK_DB_PATH":           "/data/cb.db",
		"CLIENTBOOK_REDIS_ADDR":        "redis:6379",
		"CLIENTBOOK_REMINDERS_ENABLED": "false",
		"CLIENTBOOK_S3_BUCKET":         "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	cfg.Backup.S3.Bucket = "keep"
	cfg.ApplyEnv(lookup)

	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.DBPath != "/data/cb.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Feed.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q", cfg.Feed.RedisAddr)
	}
	if cfg.Reminders.Enabled {
		t.Error("Reminders.Enabled should be false")
	}
	if cfg.Backup.S3.Bucket != "keep" {
		t.Errorf("empty env var overwrote bucket: %q", cfg.Backup.S3.Bucket)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Reminders.ConfirmLeadDays = 2
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Reminders.ConfirmLeadDays != 2 {
		t.Errorf("ConfirmLeadDays = %d, want 2", got.Reminders.ConfirmLeadDays)
	}
}
