// Package pulse models the physical notification channel: a way to
// deliver one of two distinguishable asynchronous pulses to a target
// process, and to observe pulses arriving at this process as
// timestamped events.
//
// The channel is unreliable by contract. The platform may coalesce
// rapidly repeated notifications, so nothing above this layer may count
// raw pulse occurrences; the timing layer reads slot occupancy and the
// framing layer's CRC is the final authority on correctness.
package pulse

import "time"

// Kind distinguishes the two pulse channels.
type Kind uint8

const (
	// Data pulses carry the bit stream of a frame in flight.
	Data Kind = iota
	// Ack pulses confirm one received frame, sender-bound.
	Ack
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "data"
	case Ack:
		return "ack"
	default:
		return "unknown"
	}
}

// Event is one observed pulse: which channel it arrived on and when the
// handler saw it. The timestamp is taken in the handler itself, so its
// resolution is bounded by handler latency, not by any polling loop.
type Event struct {
	Kind Kind
	At   time.Time
}

// Raiser delivers one pulse to a target process. Delivery is
// asynchronous and unacknowledged at this layer.
type Raiser interface {
	Raise(pid int, k Kind) error
}

// Listener surfaces pulses raised at this process. Events appear on the
// channel in arrival order; the buffer is sized so a full frame's worth
// of pulses cannot stall the handler.
type Listener interface {
	Events() <-chan Event
	Close()
}
