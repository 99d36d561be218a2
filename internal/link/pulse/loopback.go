package pulse

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Loopback is an in-process pulse fabric. Endpoints register under a
// fake pid and receive every pulse raised at that pid, with optional
// loss injection per kind. Tests use it in place of real signal
// traffic; the seeded RNG keeps loss patterns reproducible.
type Loopback struct {
	mu        sync.Mutex
	rng       *rand.Rand
	endpoints map[int]*loopbackEndpoint

	// DropData and DropAck are per-pulse loss probabilities.
	DropData float64
	DropAck  float64
}

func NewLoopback(seed int64) *Loopback {
	return &Loopback{
		rng:       rand.New(rand.NewSource(seed)),
		endpoints: make(map[int]*loopbackEndpoint),
	}
}

// Register creates an endpoint reachable at pid.
func (l *Loopback) Register(pid, buffer int) Listener {
	ep := &loopbackEndpoint{out: make(chan Event, buffer)}
	l.mu.Lock()
	l.endpoints[pid] = ep
	l.mu.Unlock()
	return ep
}

// Raise delivers a pulse stamped with the wall clock, subject to the
// configured loss probability for its kind.
func (l *Loopback) Raise(pid int, k Kind) error {
	return l.RaiseAt(pid, k, time.Now())
}

// RaiseAt delivers a pulse carrying an explicit timestamp. Tests use
// synthetic stamps to exercise slot decoding without waiting out real
// slot intervals.
func (l *Loopback) RaiseAt(pid int, k Kind, at time.Time) error {
	l.mu.Lock()
	ep, ok := l.endpoints[pid]
	drop := l.dropped(k)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("pulse: no endpoint registered for pid %d", pid)
	}
	if drop {
		return nil
	}
	select {
	case ep.out <- Event{Kind: k, At: at}:
	default:
		// Full buffer behaves like platform coalescing: the pulse is
		// simply never observed.
	}
	return nil
}

func (l *Loopback) dropped(k Kind) bool {
	p := l.DropData
	if k == Ack {
		p = l.DropAck
	}
	return p > 0 && l.rng.Float64() < p
}

type loopbackEndpoint struct {
	closeOnce sync.Once
	out       chan Event
}

func (ep *loopbackEndpoint) Events() <-chan Event {
	return ep.out
}

func (ep *loopbackEndpoint) Close() {
	ep.closeOnce.Do(func() {})
}
