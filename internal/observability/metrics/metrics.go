// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_chat_assistant"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Turn metrics
	TurnsTotal   prometheus.Counter
	TurnsActive  prometheus.Gauge
	TurnsSuccess *prometheus.CounterVec
	TurnsFailed  prometheus.Counter
	TurnDuration prometheus.Histogram

	// Stream metrics
	StreamFrames    *prometheus.CounterVec
	StreamFallbacks *prometheus.CounterVec
	StaleStreams    prometheus.Counter

	// Dictation metrics
	RecognitionSessions prometheus.Counter
	RecognitionErrors   *prometheus.CounterVec
	TranscriptsInterim  prometheus.Counter
	TranscriptsFinal    prometheus.Counter

	// Session metrics
	SessionsCreated prometheus.Counter
	SessionsDeleted prometheus.Counter

	// Persistence and synthesis
	PersistFailures   prometheus.Counter
	SynthesisRequests *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of chat turns started",
		}),
		TurnsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turns_active",
			Help:      "Number of chat turns currently in flight",
		}),
		TurnsSuccess: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_success_total",
			Help:      "Total number of completed turns by response source",
		}, []string{"source"}),
		TurnsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_failed_total",
			Help:      "Total number of turns where streaming and fallback both failed",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of chat turns in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		StreamFrames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_total",
			Help:      "Total number of streaming frames received by type",
		}, []string{"type"}),
		StreamFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_fallbacks_total",
			Help:      "Total number of fallback requests by outcome",
		}, []string{"outcome"}),
		StaleStreams: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_streams_total",
			Help:      "Total number of stream reads abandoned because a newer turn started",
		}),

		RecognitionSessions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_sessions_total",
			Help:      "Total number of dictation sessions started",
		}),
		RecognitionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_errors_total",
			Help:      "Total number of recognizer errors by code",
		}, []string{"code"}),
		TranscriptsInterim: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_interim_total",
			Help:      "Total number of interim transcript updates applied",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcript segments committed",
		}),

		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_sessions_created_total",
			Help:      "Total number of chat sessions created",
		}),
		SessionsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_sessions_deleted_total",
			Help:      "Total number of chat sessions deleted",
		}),

		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Total number of failed bot-response persistence calls",
		}),
		SynthesisRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Total number of text-to-speech requests by outcome",
		}, []string{"outcome"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of gateway HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

// RecordTurnStart records a new chat turn starting.
func (m *Metrics) RecordTurnStart() {
	m.TurnsTotal.Inc()
	m.TurnsActive.Inc()
}

// RecordTurnEnd records a turn ending. source is "stream" or "fallback";
// empty source means the turn failed entirely.
func (m *Metrics) RecordTurnEnd(source string, durationSeconds float64) {
	m.TurnsActive.Dec()
	m.TurnDuration.Observe(durationSeconds)
	if source == "" {
		m.TurnsFailed.Inc()
		return
	}
	m.TurnsSuccess.WithLabelValues(source).Inc()
}

// RecordFrame records a received streaming frame.
func (m *Metrics) RecordFrame(frameType string) {
	m.StreamFrames.WithLabelValues(frameType).Inc()
}

// RecordFallback records a fallback attempt outcome ("success" or "failure").
func (m *Metrics) RecordFallback(outcome string) {
	m.StreamFallbacks.WithLabelValues(outcome).Inc()
}

// RecordStaleStream records an abandoned superseded stream read.
func (m *Metrics) RecordStaleStream() {
	m.StaleStreams.Inc()
}

// RecordRecognitionError records a recognizer error by code.
func (m *Metrics) RecordRecognitionError(code string) {
	m.RecognitionErrors.WithLabelValues(code).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordSynthesis records a text-to-speech request outcome.
func (m *Metrics) RecordSynthesis(outcome string) {
	m.SynthesisRequests.WithLabelValues(outcome).Inc()
}
