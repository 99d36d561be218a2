package arq

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig shapes the delay between retransmission attempts.
type BackoffConfig struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	Jitter     bool
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    100 * time.Millisecond,
		Multiplier: 1.5,
		Max:        2 * time.Second,
		Jitter:     true,
	}
}

// Delay returns the pause before attempt N (1-based). Attempt 1 is the
// initial transmission and carries no delay; attempt 2 waits Initial,
// later attempts grow by Multiplier up to Max. Jitter scales the delay
// by a factor in [0.5, 1.5) so two colliding links do not stay in
// lockstep.
func (cfg BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || cfg.Initial <= 0 {
		return 0
	}
	mult := cfg.Multiplier
	if mult < 1.0 {
		mult = 1.0
	}
	delay := float64(cfg.Initial) * math.Pow(mult, float64(attempt-2))
	if cfg.Max > 0 && delay > float64(cfg.Max) {
		delay = float64(cfg.Max)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}
