// Package arq drives reliable message exchange over the pulse link:
// stop-and-wait automatic repeat request with a single-bit alternating
// sequence indicator.
//
// Exactly one frame is ever in flight. The sender transmits, waits for
// an ack pulse, and retransmits the identical frame on timeout; the
// receiver acknowledges every valid frame and stays silent on any
// damaged one, so the sender's timeout is the protocol's only negative
// acknowledgment. Duplicate retransmits are re-acked but delivered to
// the application exactly once.
//
// Link body layout, inside the frame codec's body:
//
//	seq     : 1 byte, alternating 0/1
//	pid     : 4 bytes BE, sender's process id, first message only
//	payload : application bytes
package arq
