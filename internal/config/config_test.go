package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "link.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadOverlaysOnlyDefinedKeys(t *testing.T) {
	path := writeProfile(t, `
slot_ms = 25
max_retries = 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Slot != 25*time.Millisecond {
		t.Fatalf("slot = %v, want 25ms", cfg.Slot)
	}
	if cfg.MaxRetries != 8 {
		t.Fatalf("max retries = %d, want 8", cfg.MaxRetries)
	}
	// Undefined keys keep their defaults.
	def := Default()
	if cfg.AckTimeout != def.AckTimeout || cfg.MaxPayload != def.MaxPayload {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadRejectsIdleWindowBelowSlot(t *testing.T) {
	path := writeProfile(t, `
slot_ms = 100
idle_window_ms = 100
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
}

func TestConvertersCarryProfile(t *testing.T) {
	cfg := Default()
	cfg.Slot = 10 * time.Millisecond
	cfg.IdleWindow = 40 * time.Millisecond

	tc := cfg.TimingConfig()
	if tc.Slot != cfg.Slot || tc.IdleWindow != cfg.IdleWindow {
		t.Fatalf("timing config mismatch: %+v", tc)
	}
	sc := cfg.SenderConfig()
	if sc.AckTimeout != cfg.AckTimeout || sc.MaxRetries != cfg.MaxRetries || sc.Backoff.Initial != cfg.RetryInitial {
		t.Fatalf("sender config mismatch: %+v", sc)
	}
	rc := cfg.ReceiverConfig(4242)
	if rc.SenderPID != 4242 || rc.Timing.Slot != cfg.Slot {
		t.Fatalf("receiver config mismatch: %+v", rc)
	}
}
