package config

import (
	"github.com/andre-c-andersen/sigmsg/internal/link/arq"
	"github.com/andre-c-andersen/sigmsg/internal/link/timing"
)

// TimingConfig maps the profile onto the bit timing codec.
func (l Link) TimingConfig() timing.Config {
	return timing.Config{
		Slot:       l.Slot,
		IdleWindow: l.IdleWindow,
	}
}

// SenderConfig maps the profile onto the ARQ sender.
func (l Link) SenderConfig() arq.SenderConfig {
	return arq.SenderConfig{
		Timing:     l.TimingConfig(),
		AckTimeout: l.AckTimeout,
		MaxRetries: l.MaxRetries,
		MaxPayload: l.MaxPayload,
		Backoff: arq.BackoffConfig{
			Initial:    l.RetryInitial,
			Multiplier: l.RetryMultiplier,
			Max:        l.RetryMax,
			Jitter:     l.RetryJitter,
		},
	}
}

// ReceiverConfig maps the profile onto the ARQ receiver. senderPID may
// be zero when the receiver should learn it from the bootstrap token.
func (l Link) ReceiverConfig(senderPID int) arq.ReceiverConfig {
	return arq.ReceiverConfig{
		Timing:    l.TimingConfig(),
		SenderPID: senderPID,
	}
}
