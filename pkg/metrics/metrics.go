package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PiecesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceport_pieces_decoded_total",
		Help: "Trace pieces successfully decoded, by input format",
	}, []string{"format"})

	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceport_decode_errors_total",
		Help: "Inputs rejected by the decoder, by input format",
	}, []string{"format"})

	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceport_conversions_total",
		Help: "Encoder invocations, by result (ok, invalid, failed)",
	}, []string{"result"})

	ConversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "traceport_conversion_duration_seconds",
		Help:    "Encoder invocation latency",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	Handoffs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceport_handoffs_total",
		Help: "Viewer handoff sessions, by terminal outcome",
	}, []string{"outcome"})

	TracesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traceport_traces_served_total",
		Help: "Trace downloads served to the viewer",
	})
)
