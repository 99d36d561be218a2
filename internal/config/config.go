// Package config loads and validates the link timing profile. The
// timing constants are protocol constants: both endpoints must run the
// same profile, there is no negotiation on the wire.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Link is the resolved runtime profile.
type Link struct {
	// Slot is the bit slot width. Slower is safer: host scheduling
	// jitter must stay well under half a slot.
	Slot time.Duration

	// IdleWindow is the silence that closes a reception window.
	IdleWindow time.Duration

	// AckTimeout is how long the sender waits for an ack after the
	// frame's last pulse.
	AckTimeout time.Duration

	MaxRetries int
	MaxPayload int

	RetryInitial    time.Duration
	RetryMultiplier float64
	RetryMax        time.Duration
	RetryJitter     bool

	// MetricsAddr, when set, exposes /health and /metrics over HTTP.
	MetricsAddr string
}

// Default mirrors the reference profile: 50ms slots, which keeps the
// link around the 100 bits/sec class but far above scheduler jitter.
func Default() Link {
	return Link{
		Slot:            50 * time.Millisecond,
		IdleWindow:      150 * time.Millisecond,
		AckTimeout:      2 * time.Second,
		MaxRetries:      5,
		MaxPayload:      128,
		RetryInitial:    200 * time.Millisecond,
		RetryMultiplier: 1.5,
		RetryMax:        2 * time.Second,
		RetryJitter:     true,
	}
}

// fileConfig is the TOML shape; durations are integer milliseconds.
type fileConfig struct {
	SlotMS          int     `toml:"slot_ms"`
	IdleWindowMS    int     `toml:"idle_window_ms"`
	AckTimeoutMS    int     `toml:"ack_timeout_ms"`
	MaxRetries      int     `toml:"max_retries"`
	MaxPayload      int     `toml:"max_payload"`
	RetryInitialMS  int     `toml:"retry_initial_ms"`
	RetryMultiplier float64 `toml:"retry_multiplier"`
	RetryMaxMS      int     `toml:"retry_max_ms"`
	RetryJitter     bool    `toml:"retry_jitter"`
	MetricsAddr     string  `toml:"metrics_addr"`
}

// Load overlays the profile at path onto the defaults. Only keys
// present in the file override; everything else keeps its default.
func Load(path string) (Link, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Link{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("slot_ms") {
		cfg.Slot = time.Duration(raw.SlotMS) * time.Millisecond
	}
	if meta.IsDefined("idle_window_ms") {
		cfg.IdleWindow = time.Duration(raw.IdleWindowMS) * time.Millisecond
	}
	if meta.IsDefined("ack_timeout_ms") {
		cfg.AckTimeout = time.Duration(raw.AckTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("max_retries") {
		cfg.MaxRetries = raw.MaxRetries
	}
	if meta.IsDefined("max_payload") {
		cfg.MaxPayload = raw.MaxPayload
	}
	if meta.IsDefined("retry_initial_ms") {
		cfg.RetryInitial = time.Duration(raw.RetryInitialMS) * time.Millisecond
	}
	if meta.IsDefined("retry_multiplier") {
		cfg.RetryMultiplier = raw.RetryMultiplier
	}
	if meta.IsDefined("retry_max_ms") {
		cfg.RetryMax = time.Duration(raw.RetryMaxMS) * time.Millisecond
	}
	if meta.IsDefined("retry_jitter") {
		cfg.RetryJitter = raw.RetryJitter
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = raw.MetricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return Link{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (l Link) Validate() error {
	if l.Slot <= 0 {
		return fmt.Errorf("slot must be positive")
	}
	if l.IdleWindow <= l.Slot {
		return fmt.Errorf("idle window (%v) must exceed the slot interval (%v)", l.IdleWindow, l.Slot)
	}
	if l.AckTimeout <= l.Slot {
		return fmt.Errorf("ack timeout (%v) must exceed the slot interval (%v)", l.AckTimeout, l.Slot)
	}
	if l.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if l.MaxPayload < 1 {
		return fmt.Errorf("max payload must be at least 1")
	}
	return nil
}
