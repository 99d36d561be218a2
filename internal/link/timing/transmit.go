package timing

import (
	"context"
	"time"

	"github.com/andre-c-andersen/sigmsg/internal/link/pulse"
)

// Transmitter plays byte schedules against a pulse raiser in real
// time: one data pulse per set bit, silence for clear bits, slot by
// slot. Context cancellation is honored between slots; there is no
// mid-slot cancellation, a slot is too short to matter.
type Transmitter struct {
	Cfg    Config
	Raiser pulse.Raiser
}

// Transmit sends every byte of raw toward pid as timed pulse bursts.
func (t Transmitter) Transmit(ctx context.Context, pid int, raw []byte) error {
	for _, b := range raw {
		if err := t.transmitByte(ctx, pid, b); err != nil {
			return err
		}
	}
	return nil
}

func (t Transmitter) transmitByte(ctx context.Context, pid int, b byte) error {
	// Start pulse anchors the receiver's slot grid.
	if err := t.Raiser.Raise(pid, pulse.Data); err != nil {
		return err
	}
	for i := bitsPerByte - 1; i >= 0; i-- {
		if err := sleepSlot(ctx, t.Cfg.Slot); err != nil {
			return err
		}
		if b&(1<<uint(i)) != 0 {
			if err := t.Raiser.Raise(pid, pulse.Data); err != nil {
				return err
			}
		}
	}
	if err := sleepSlot(ctx, t.Cfg.Slot); err != nil {
		return err
	}
	// Stop pulse, then the inter-burst gap.
	if err := t.Raiser.Raise(pid, pulse.Data); err != nil {
		return err
	}
	return sleepSlot(ctx, time.Duration(gapSlots)*t.Cfg.Slot)
}

func sleepSlot(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
