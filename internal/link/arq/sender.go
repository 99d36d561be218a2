package arq

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andre-c-andersen/sigmsg/internal/link/frame"
	"github.com/andre-c-andersen/sigmsg/internal/link/pulse"
	"github.com/andre-c-andersen/sigmsg/internal/link/timing"
	"github.com/andre-c-andersen/sigmsg/internal/observability"
)

const pidTokenLen = 4

var (
	ErrMaxRetries      = errors.New("arq: max retries exceeded")
	ErrMessageTooLarge = errors.New("arq: message too large")
)

// Link transmits one encoded frame's pulse schedule toward a process.
type Link interface {
	Transmit(ctx context.Context, pid int, raw []byte) error
}

// SenderConfig carries the sender side protocol constants.
type SenderConfig struct {
	Timing timing.Config

	// AckTimeout must comfortably exceed one-way frame airtime plus
	// the receiver's decode-and-ack turnaround.
	AckTimeout time.Duration

	// MaxRetries bounds transmissions of one message, the initial
	// attempt included.
	MaxRetries int

	// MaxPayload bounds one application message.
	MaxPayload int

	Backoff BackoffConfig
}

func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Timing:     timing.DefaultConfig(),
		AckTimeout: 2 * time.Second,
		MaxRetries: 5,
		MaxPayload: 128,
		Backoff:    DefaultBackoffConfig(),
	}
}

func (cfg SenderConfig) Validate() error {
	if err := cfg.Timing.Validate(); err != nil {
		return err
	}
	if cfg.AckTimeout <= cfg.Timing.Slot {
		return errors.New("arq: ack timeout must exceed the slot interval")
	}
	if cfg.MaxRetries < 1 {
		return errors.New("arq: max retries must be at least 1")
	}
	if cfg.MaxPayload < 1 || cfg.MaxPayload+1+pidTokenLen > frame.MaxBody {
		return fmt.Errorf("arq: max payload must be within 1..%d", frame.MaxBody-1-pidTokenLen)
	}
	return nil
}

// Sender is the initiating half of the stop-and-wait exchange. It is
// not safe for concurrent Sends: the protocol itself allows only one
// frame in flight.
type Sender struct {
	cfg    SenderConfig
	link   Link
	events <-chan pulse.Event
	target int
	self   int

	seq          byte
	bootstrapped bool
	lastAttempts int

	rng *rand.Rand
	log zerolog.Logger
}

// NewSender wires a sender toward target. events must be the stream of
// pulses arriving at this process; self is embedded in the first
// message so the receiver learns where acks go.
func NewSender(cfg SenderConfig, link Link, events <-chan pulse.Event, target, self int) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sender{
		cfg:    cfg,
		link:   link,
		events: events,
		target: target,
		self:   self,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log.With().Str("component", "arq-sender").Int("target", target).Logger(),
	}, nil
}

// LastAttempts reports how many transmissions the previous Send used.
func (s *Sender) LastAttempts() int {
	return s.lastAttempts
}

// Send delivers one message with acknowledgment, retransmitting the
// identical frame on timeout. It blocks until the message is acked or
// the retry budget is spent; ErrMaxRetries is fatal for this message
// only, the sender stays usable.
func (s *Sender) Send(ctx context.Context, msg []byte) error {
	if len(msg) > s.cfg.MaxPayload {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, len(msg), s.cfg.MaxPayload)
	}

	body := make([]byte, 0, 1+pidTokenLen+len(msg))
	body = append(body, s.seq)
	if !s.bootstrapped {
		var token [pidTokenLen]byte
		binary.BigEndian.PutUint32(token[:], uint32(s.self))
		body = append(body, token[:]...)
	}
	body = append(body, msg...)

	raw, err := frame.Encode(body)
	if err != nil {
		return err
	}

	// Stale pulses from a previous exchange must not satisfy this one.
	s.drainEvents()

	started := time.Now()
	s.lastAttempts = 0
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 {
			observability.RecordRetransmit()
			s.log.Warn().Int("attempt", attempt).Msg("ack timeout, retransmitting")
			if err := sleepCtx(ctx, s.cfg.Backoff.Delay(attempt, s.rng)); err != nil {
				return err
			}
		}

		s.lastAttempts = attempt
		if err := s.link.Transmit(ctx, s.target, raw); err != nil {
			return fmt.Errorf("arq: transmit: %w", err)
		}
		observability.RecordFrameSent()
		s.log.Debug().Int("attempt", attempt).Int("wire_bytes", len(raw)).Uint8("seq", s.seq).Msg("frame transmitted")

		if s.waitAck(ctx) {
			observability.RecordAckObserved()
			observability.ObserveSendDuration(time.Since(started).Seconds())
			s.log.Info().Int("attempts", attempt).Uint8("seq", s.seq).Msg("message acknowledged")
			s.seq ^= 1
			s.bootstrapped = true
			return nil
		}
	}

	observability.RecordDeliveryFailure()
	s.log.Error().Int("attempts", s.cfg.MaxRetries).Msg("delivery failed")
	return fmt.Errorf("%w: %d attempts", ErrMaxRetries, s.cfg.MaxRetries)
}

// waitAck blocks until an ack pulse arrives, the ack timeout elapses,
// or ctx is done. Data pulses arriving at the sender are noise on this
// side of the link and are ignored.
func (s *Sender) waitAck(ctx context.Context) bool {
	timer := time.NewTimer(s.cfg.AckTimeout)
	defer timer.Stop()
	for {
		select {
		case ev := <-s.events:
			if ev.Kind == pulse.Ack {
				return true
			}
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (s *Sender) drainEvents() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
