package timing

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/andre-c-andersen/sigmsg/internal/link/pulse"
)

func stampsFor(cfg Config, base time.Time, b byte) []time.Time {
	offs := cfg.ByteSchedule(b)
	stamps := make([]time.Time, 0, len(offs))
	for _, off := range offs {
		stamps = append(stamps, base.Add(off))
	}
	return stamps
}

func TestDecodeByteCleanSchedule(t *testing.T) {
	cfg := DefaultConfig()
	base := time.Unix(1000, 0)
	for v := 0; v < 256; v++ {
		got, err := cfg.DecodeByte(stampsFor(cfg, base, byte(v)))
		if err != nil {
			t.Fatalf("byte %#02x: %v", v, err)
		}
		if got.Byte != byte(v) {
			t.Fatalf("byte %#02x decoded as %#02x", v, got.Byte)
		}
		if got.Ambiguous != 0 {
			t.Fatalf("byte %#02x: unexpected ambiguity on a clean schedule", v)
		}
	}
}

func TestDecodeByteWithBoundedJitter(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(42))
	base := time.Unix(2000, 0)
	// Jitter strictly under half a slot per pulse, relative to the
	// burst anchor, must decode exactly.
	maxJitter := time.Duration(0.45 * float64(cfg.Slot))

	for trial := 0; trial < 200; trial++ {
		want := byte(rng.Intn(256))
		stamps := stampsFor(cfg, base, want)
		for i := 1; i < len(stamps); i++ {
			j := time.Duration(rng.Int63n(int64(2*maxJitter))) - maxJitter
			stamps[i] = stamps[i].Add(j)
		}
		got, err := cfg.DecodeByte(stamps)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if got.Byte != want {
			t.Fatalf("trial %d: byte %#02x decoded as %#02x", trial, want, got.Byte)
		}
	}
}

func TestDecodeByteTieBreaksTowardEarlierSlot(t *testing.T) {
	cfg := DefaultConfig()
	base := time.Unix(3000, 0)
	// A pulse exactly between slots 1 and 2 must always land on slot 1:
	// bit 7 set, bit 6 clear.
	stamps := []time.Time{
		base,
		base.Add(cfg.Slot + cfg.Slot/2),
		base.Add(StopSlot * cfg.Slot),
	}
	for i := 0; i < 10; i++ {
		got, err := cfg.DecodeByte(stamps)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Byte != 0x80 {
			t.Fatalf("tie-break drifted: got %#02x want 0x80", got.Byte)
		}
		if got.Ambiguous == 0 {
			t.Fatalf("boundary pulse not counted as ambiguous")
		}
	}
}

func TestDecodeByteCoalescedDuplicatePulses(t *testing.T) {
	cfg := DefaultConfig()
	base := time.Unix(4000, 0)
	// Duplicate pulses inside the same slot must not flip extra bits.
	stamps := []time.Time{
		base,
		base.Add(1 * cfg.Slot),
		base.Add(1*cfg.Slot + cfg.Slot/10),
		base.Add(StopSlot * cfg.Slot),
	}
	got, err := cfg.DecodeByte(stamps)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Byte != 0x80 {
		t.Fatalf("coalesced duplicates decoded as %#02x want 0x80", got.Byte)
	}
}

func TestDecodeByteShortBurst(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.DecodeByte([]time.Time{time.Unix(1, 0)}); !errors.Is(err, ErrShortBurst) {
		t.Fatalf("want ErrShortBurst, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"zero slot", Config{Slot: 0, IdleWindow: time.Second}, false},
		{"idle below slot", Config{Slot: time.Second, IdleWindow: time.Second}, false},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if !c.ok && !errors.Is(err, ErrBadConfig) {
			t.Fatalf("%s: want ErrBadConfig, got %v", c.name, err)
		}
	}
}

// recordingRaiser captures raise calls without real signal traffic.
type recordingRaiser struct {
	mu    sync.Mutex
	calls []pulse.Kind
}

func (r *recordingRaiser) Raise(pid int, k pulse.Kind) error {
	r.mu.Lock()
	r.calls = append(r.calls, k)
	r.mu.Unlock()
	return nil
}

func TestTransmitterPulseCountMatchesSchedule(t *testing.T) {
	cfg := Config{Slot: time.Millisecond, IdleWindow: 3 * time.Millisecond}
	rec := &recordingRaiser{}
	tx := Transmitter{Cfg: cfg, Raiser: rec}

	raw := []byte{0x00, 0xFF, 0xA5}
	if err := tx.Transmit(context.Background(), 1, raw); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	want := 0
	for _, b := range raw {
		want += len(cfg.ByteSchedule(b))
	}
	if len(rec.calls) != want {
		t.Fatalf("pulse count %d, want %d", len(rec.calls), want)
	}
	for _, k := range rec.calls {
		if k != pulse.Data {
			t.Fatalf("transmitter raised a %s pulse", k)
		}
	}
}

func TestTransmitterHonorsCancellation(t *testing.T) {
	cfg := DefaultConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := Transmitter{Cfg: cfg, Raiser: &recordingRaiser{}}
	if err := tx.Transmit(ctx, 1, []byte{0xFF}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
