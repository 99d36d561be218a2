// Package timing converts bytes to precisely spaced pulse schedules and
// recovers bytes from observed pulse timestamps. There is no shared
// clock between the two ends: both sides agree on a fixed slot interval
// and the receiver re-derives the slot grid from the pulses themselves.
//
// One byte travels as a burst: a start pulse anchors the grid, eight
// data slots follow MSB first (pulse = 1, silence = 0), and a stop
// pulse at slot 9 closes the burst. Bursts are separated by a gap of
// two extra slots.
package timing

import (
	"errors"
	"math"
	"time"
)

const (
	bitsPerByte = 8

	// StopSlot is the grid index of the stop pulse.
	StopSlot = 9

	// stopThreshold marks where a pulse stops being a data bit and
	// becomes the stop pulse, in slot units from the burst anchor.
	stopThreshold = 8.5

	// gapSlots is the silent tail after the stop pulse, keeping bursts
	// separable even under scheduler jitter.
	gapSlots = 2

	// ambiguityMargin is how far (in slot units) a pulse may sit from
	// its snapped slot centre before it is counted as ambiguous. The
	// pulse is still snapped; ambiguity is observability, not failure.
	ambiguityMargin = 0.35
)

var (
	ErrShortBurst = errors.New("timing: burst needs at least start and stop pulses")
	ErrBadConfig  = errors.New("timing: invalid config")
)

// Config carries the timing constants both ends must share. Values are
// protocol constants: there is no negotiation on the wire.
type Config struct {
	// Slot is the width of one bit slot. It must be slow enough that
	// host scheduling jitter stays well under half a slot.
	Slot time.Duration

	// IdleWindow is the silence after which a reception window is
	// considered over. Must exceed one slot; in practice it covers the
	// inter-burst gap with margin.
	IdleWindow time.Duration
}

// DefaultConfig mirrors the slowest link profile: 50ms slots, which
// keeps the link near 100 bits/sec-class rates but comfortably above
// scheduler jitter.
func DefaultConfig() Config {
	return Config{
		Slot:       50 * time.Millisecond,
		IdleWindow: 150 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	if c.Slot <= 0 {
		return errors.Join(ErrBadConfig, errors.New("slot must be positive"))
	}
	if c.IdleWindow <= c.Slot {
		return errors.Join(ErrBadConfig, errors.New("idle window must exceed one slot"))
	}
	return nil
}

// ByteSchedule returns the pulse offsets, relative to burst start, that
// transmit one byte: the start pulse at zero, one pulse per set bit,
// and the stop pulse.
func (c Config) ByteSchedule(b byte) []time.Duration {
	offs := make([]time.Duration, 0, bitsPerByte+2)
	offs = append(offs, 0)
	for i := bitsPerByte - 1; i >= 0; i-- {
		if b&(1<<uint(i)) != 0 {
			offs = append(offs, time.Duration(bitsPerByte-i)*c.Slot)
		}
	}
	return append(offs, StopSlot*c.Slot)
}

// BurstDuration is the full airtime of one byte burst, inter-burst gap
// included. Frame airtime estimates derive from this.
func (c Config) BurstDuration() time.Duration {
	return time.Duration(StopSlot+gapSlots) * c.Slot
}

// FrameAirtime estimates the airtime of a frame of n wire bytes.
func (c Config) FrameAirtime(n int) time.Duration {
	return time.Duration(n) * c.BurstDuration()
}

// Burst is one decoded byte burst.
type Burst struct {
	Byte byte

	// Ambiguous counts pulses that landed near a slot boundary and had
	// to be snapped. Never fatal; surfaced so operators can see a link
	// drifting toward the edge.
	Ambiguous int
}

// DecodeByte recovers one byte from the pulse timestamps of a single
// burst. The burst's start pulse anchors the slot grid; each later
// pulse is snapped to the nearest slot, ties broken toward the earlier
// slot. Anchoring at every burst's start pulse, rather than once per
// frame, bounds cumulative clock drift to a single burst's worth of
// slots with no shared timebase at all.
//
// Repeated pulses inside one slot collapse to a single 1: the platform
// may coalesce or duplicate notifications, so slot occupancy, not pulse
// count, is what carries information.
func (c Config) DecodeByte(stamps []time.Time) (Burst, error) {
	if len(stamps) < 2 {
		return Burst{}, ErrShortBurst
	}

	var out Burst
	anchor := stamps[0]
	seen := [bitsPerByte + 1]bool{}

	for _, at := range stamps[1:] {
		x := float64(at.Sub(anchor)) / float64(c.Slot)
		if x >= stopThreshold {
			break
		}
		slot := snapSlot(x)
		if dist := math.Abs(x - float64(slot)); dist > ambiguityMargin {
			out.Ambiguous++
		}
		if slot < 1 || slot > bitsPerByte || seen[slot] {
			continue
		}
		seen[slot] = true
		out.Byte |= 1 << uint(bitsPerByte-slot)
	}
	return out, nil
}

// EndsBurst reports whether a pulse at 'at' closes the burst anchored
// at 'start', i.e. has reached the stop pulse position.
func (c Config) EndsBurst(start, at time.Time) bool {
	return float64(at.Sub(start))/float64(c.Slot) >= stopThreshold
}

// snapSlot rounds x to the nearest slot index with ties toward the
// earlier slot. The earlier-slot tie-break is deliberate and fixed:
// both a pulse that ran late and one that ran early must land on the
// same slot on every decode.
func snapSlot(x float64) int {
	return int(math.Ceil(x - 0.5))
}
