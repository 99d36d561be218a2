package arq

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andre-c-andersen/sigmsg/internal/link/frame"
	"github.com/andre-c-andersen/sigmsg/internal/link/pulse"
	"github.com/andre-c-andersen/sigmsg/internal/link/timing"
	"github.com/andre-c-andersen/sigmsg/internal/observability"
)

// Handler receives each delivered application payload exactly once.
type Handler func(msg []byte)

// ReceiverConfig carries the receiver side protocol constants.
type ReceiverConfig struct {
	Timing timing.Config

	// SenderPID, when non-zero, preselects the ack target. The first
	// message's embedded token still overrides it: the token is the
	// sender's own report of where acks must go.
	SenderPID int
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{Timing: timing.DefaultConfig()}
}

// Receiver is the answering half of the exchange: it samples pulse
// bursts into bytes, scans for delimited frames, validates them, and
// acks each valid frame. Damaged frames are dropped silently; the
// sender's timeout is the only negative acknowledgment.
type Receiver struct {
	cfg     ReceiverConfig
	events  <-chan pulse.Event
	raiser  pulse.Raiser
	handler Handler

	scanner frame.Scanner
	stamps  []time.Time

	ackPID     int
	pidLearned bool
	lastSeq    int

	log zerolog.Logger
}

func NewReceiver(cfg ReceiverConfig, events <-chan pulse.Event, raiser pulse.Raiser, handler Handler) (*Receiver, error) {
	if err := cfg.Timing.Validate(); err != nil {
		return nil, err
	}
	return &Receiver{
		cfg:     cfg,
		events:  events,
		raiser:  raiser,
		handler: handler,
		ackPID:  cfg.SenderPID,
		lastSeq: -1,
		log:     log.With().Str("component", "arq-receiver").Logger(),
	}, nil
}

// Run blocks delivering messages until ctx is done. Reception windows
// are bounded by the idle-silence threshold: when the link goes quiet
// mid-frame, the partial frame is abandoned and all per-window state is
// cleared so it cannot contaminate the next frame.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		var idle <-chan time.Time
		if len(r.stamps) > 0 || r.scanner.Pending() {
			idle = time.After(r.cfg.Timing.IdleWindow)
		}

		select {
		case ev := <-r.events:
			if ev.Kind != pulse.Data {
				continue
			}
			r.stamps = append(r.stamps, ev.At)
			if len(r.stamps) >= 2 && r.cfg.Timing.EndsBurst(r.stamps[0], ev.At) {
				r.finishBurst()
			}

		case <-idle:
			// Silence past the threshold: flush whatever burst is
			// pending (the stop pulse may have been lost), then close
			// the reception window.
			if len(r.stamps) >= 2 {
				r.finishBurst()
			}
			r.stamps = r.stamps[:0]
			if r.scanner.Pending() {
				observability.RecordFrameReceived(observability.ResultTruncated)
				r.log.Warn().Msg("reception window closed mid-frame, dropping partial frame")
			}
			r.scanner.Reset()

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// finishBurst decodes the buffered burst into one byte and feeds the
// frame scanner. The stamp buffer is cleared regardless of outcome.
func (r *Receiver) finishBurst() {
	stamps := r.stamps
	r.stamps = r.stamps[:0]

	burst, err := r.cfg.Timing.DecodeByte(stamps)
	if err != nil {
		// A lone stray pulse; not even a start/stop pair.
		r.log.Debug().Int("pulses", len(stamps)).Msg("discarding short burst")
		return
	}
	if burst.Ambiguous > 0 {
		observability.RecordTimingAmbiguity(burst.Ambiguous)
		r.log.Debug().Int("count", burst.Ambiguous).Msg("ambiguous pulse timing snapped")
	}
	if raw, ok := r.scanner.Push(burst.Byte); ok {
		r.handleFrame(raw)
	}
}

func (r *Receiver) handleFrame(raw []byte) {
	body, err := frame.Decode(raw)
	if err != nil {
		observability.RecordFrameReceived(decodeResult(err))
		r.log.Warn().Err(err).Int("wire_bytes", len(raw)).Msg("invalid frame, withholding ack")
		return
	}
	if len(body) < 1 {
		observability.RecordFrameReceived(observability.ResultTruncated)
		r.log.Warn().Msg("frame body missing sequence header")
		return
	}
	observability.RecordFrameReceived(observability.ResultOK)

	seq := body[0]
	payload := body[1:]

	// First message of a session carries the sender's pid so acks can
	// be targeted. The operator may have preset it; the wire token is
	// authoritative either way.
	if seq == 0 && !r.pidLearned && len(payload) >= pidTokenLen {
		pid := int(binary.BigEndian.Uint32(payload[:pidTokenLen]))
		payload = payload[pidTokenLen:]
		r.ackPID = pid
		r.pidLearned = true
		r.log.Info().Int("sender", pid).Msg("sender identity learned from bootstrap token")
	}

	if int(seq) == r.lastSeq {
		// Our ack was lost and the sender retransmitted. Re-ack so the
		// sender can move on, but never redeliver.
		observability.RecordDuplicateFrame()
		r.log.Debug().Uint8("seq", seq).Msg("duplicate frame, re-acking without delivery")
		r.sendAck()
		return
	}
	r.lastSeq = int(seq)

	r.log.Info().Uint8("seq", seq).Int("bytes", len(payload)).Msg("message delivered")
	if r.handler != nil {
		r.handler(payload)
	}
	r.sendAck()
}

func (r *Receiver) sendAck() {
	if r.ackPID == 0 {
		r.log.Warn().Msg("no ack target known, ack suppressed")
		return
	}
	if err := r.raiser.Raise(r.ackPID, pulse.Ack); err != nil {
		// Sender may already be gone; its own timeout handles the rest.
		r.log.Warn().Err(err).Int("target", r.ackPID).Msg("ack pulse failed")
	}
}

func decodeResult(err error) string {
	switch {
	case errors.Is(err, frame.ErrCRCMismatch):
		return observability.ResultCRCMismatch
	case errors.Is(err, frame.ErrBadEscape):
		return observability.ResultBadEscape
	default:
		return observability.ResultTruncated
	}
}
