package pulse

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"
)

// Data rides SIGUSR1, acks ride SIGUSR2. Both ends hard-code this
// mapping; it is part of the protocol.
func kindSignal(k Kind) unix.Signal {
	if k == Ack {
		return unix.SIGUSR2
	}
	return unix.SIGUSR1
}

// SelfPID is this endpoint's identity on the channel. The receiver
// prints it at startup so the operator can hand it to a sender.
func SelfPID() int {
	return os.Getpid()
}

// Signals raises pulses as POSIX signals.
type Signals struct{}

func (Signals) Raise(pid int, k Kind) error {
	if err := unix.Kill(pid, kindSignal(k)); err != nil {
		return fmt.Errorf("pulse: raise %s to pid %d: %w", k, pid, err)
	}
	return nil
}

// SignalListener records SIGUSR1/SIGUSR2 arrivals as timestamped
// events. The handler goroutine only stamps and forwards; all protocol
// logic lives upstream, which keeps the handler safe against bursts.
type SignalListener struct {
	raw  chan os.Signal
	out  chan Event
	done chan struct{}
}

// ListenSignals registers for both pulse kinds and starts stamping.
// buffer bounds the event queue; one frame's worth of pulses at most a
// few hundred, so the default in callers is generous.
func ListenSignals(buffer int) *SignalListener {
	l := &SignalListener{
		raw:  make(chan os.Signal, buffer),
		out:  make(chan Event, buffer),
		done: make(chan struct{}),
	}
	signal.Notify(l.raw, unix.SIGUSR1, unix.SIGUSR2)
	go l.loop()
	return l
}

func (l *SignalListener) loop() {
	for {
		select {
		case sig := <-l.raw:
			ev := Event{Kind: Data, At: time.Now()}
			if sig == unix.SIGUSR2 {
				ev.Kind = Ack
			}
			select {
			case l.out <- ev:
			default:
				// Queue full: drop rather than block the stamping
				// loop. The link already treats pulse delivery as
				// lossy and recovers via CRC + retransmission.
			}
		case <-l.done:
			return
		}
	}
}

func (l *SignalListener) Events() <-chan Event {
	return l.out
}

func (l *SignalListener) Close() {
	signal.Stop(l.raw)
	close(l.done)
}
