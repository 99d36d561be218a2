package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame receive outcome labels.
const (
	ResultOK          = "ok"
	ResultCRCMismatch = "crc_mismatch"
	ResultTruncated   = "truncated"
	ResultBadEscape   = "bad_escape"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Frame transmissions, retransmits included.",
		},
	)
	retransmits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "retransmits_total",
			Help:      "Retransmissions after an ack timeout.",
		},
	)
	acksObserved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "acks_observed_total",
			Help:      "Ack pulses observed by the sender.",
		},
	)
	deliveryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "delivery_failures_total",
			Help:      "Messages abandoned after the retry budget.",
		},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "frames_received_total",
			Help:      "Frame decode attempts by outcome.",
		},
		[]string{"result"},
	)
	duplicateFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "duplicate_frames_total",
			Help:      "Valid frames suppressed by the sequence indicator.",
		},
	)
	timingAmbiguities = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "timing_ambiguities_total",
			Help:      "Pulses snapped from near a slot boundary.",
		},
	)
	sendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sigmsg",
			Subsystem: "link",
			Name:      "send_duration_seconds",
			Help:      "Wall time of one Send, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesSent, retransmits, acksObserved, deliveryFailures,
			framesReceived, duplicateFrames, timingAmbiguities, sendDuration,
		)
	})
}

func RecordFrameSent() {
	RegisterMetrics()
	framesSent.Inc()
}

func RecordRetransmit() {
	RegisterMetrics()
	retransmits.Inc()
}

func RecordAckObserved() {
	RegisterMetrics()
	acksObserved.Inc()
}

func RecordDeliveryFailure() {
	RegisterMetrics()
	deliveryFailures.Inc()
}

func RecordFrameReceived(result string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(result).Inc()
}

func RecordDuplicateFrame() {
	RegisterMetrics()
	duplicateFrames.Inc()
}

func RecordTimingAmbiguity(n int) {
	RegisterMetrics()
	timingAmbiguities.Add(float64(n))
}

func ObserveSendDuration(seconds float64) {
	RegisterMetrics()
	sendDuration.Observe(seconds)
}
