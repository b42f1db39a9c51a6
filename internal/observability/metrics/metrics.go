// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_appointment"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Parse metrics
	ParsesTotal     *prometheus.CounterVec
	ParseLatency    prometheus.Histogram
	AmbiguitiesSeen *prometheus.CounterVec

	// Capture session metrics
	SessionsTotal  prometheus.Counter
	SessionsActive prometheus.Gauge
	SessionsEnded  *prometheus.CounterVec
	UpdatesDropped *prometheus.CounterVec

	// Transcript metrics
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter

	// Disambiguation metrics
	Disambiguations *prometheus.CounterVec

	// Scheduling metrics
	AvailabilityChecks *prometheus.CounterVec
	CommitsTotal       *prometheus.CounterVec
	CommitLatency      prometheus.Histogram

	// Kafka metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	KafkaConsumed       *prometheus.CounterVec

	// STT metrics
	STTErrors *prometheus.CounterVec

	// gRPC metrics
	GRPCRequests *prometheus.CounterVec
	GRPCLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Parse metrics
		ParsesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Total number of transcripts parsed",
		}, []string{"complete"}),
		ParseLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_latency_seconds",
			Help:      "Time spent parsing one transcript",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01},
		}),
		AmbiguitiesSeen: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ambiguities_total",
			Help:      "Total number of ambiguity markers raised by the parser",
		}, []string{"kind"}),

		// Capture session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_total",
			Help:      "Total number of capture sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_sessions_active",
			Help:      "Number of capture sessions still listening",
		}),
		SessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_ended_total",
			Help:      "Total number of capture sessions by terminal state",
		}, []string{"state"}),
		UpdatesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_updates_dropped_total",
			Help:      "Total number of transcript updates dropped after a session stopped",
		}, []string{"reason"}),

		// Transcript metrics
		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total number of partial transcripts received",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total number of final transcripts received",
		}),

		// Audio metrics
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioFramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received",
		}),

		// Disambiguation metrics
		Disambiguations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disambiguations_total",
			Help:      "Total number of disambiguation protocol transitions",
		}, []string{"action"}),

		// Scheduling metrics
		AvailabilityChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Total number of availability checks",
		}, []string{"available"}),
		CommitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Total number of appointment commit attempts by result",
		}, []string{"result"}),
		CommitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_latency_seconds",
			Help:      "Time spent validating, checking and inserting an appointment",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		// Kafka metrics
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
		KafkaConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumed_total",
			Help:      "Total number of transcript events consumed",
		}, []string{"result"}),

		// STT metrics
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// gRPC metrics
		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests",
		}, []string{"method", "code"}),
		GRPCLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_latency_seconds",
			Help:      "gRPC request latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method"}),
	}
}

// RecordParse records one parsed transcript.
func (m *Metrics) RecordParse(complete bool, ambiguities []string, latencySeconds float64) {
	label := "false"
	if complete {
		label = "true"
	}
	m.ParsesTotal.WithLabelValues(label).Inc()
	m.ParseLatency.Observe(latencySeconds)
	for _, a := range ambiguities {
		m.AmbiguitiesSeen.WithLabelValues(a).Inc()
	}
}

// RecordSessionStart records a capture session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a capture session reaching a terminal state.
func (m *Metrics) RecordSessionEnd(state string) {
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(state).Inc()
}

// RecordUpdateDropped records a stale transcript update being ignored.
func (m *Metrics) RecordUpdateDropped(reason string) {
	m.UpdatesDropped.WithLabelValues(reason).Inc()
}

// RecordPartialTranscript records a partial transcript received.
func (m *Metrics) RecordPartialTranscript() {
	m.TranscriptsPartial.Inc()
}

// RecordFinalTranscript records a final transcript received.
func (m *Metrics) RecordFinalTranscript() {
	m.TranscriptsFinal.Inc()
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordDisambiguation records a disambiguation protocol action
// (begin, morning, afternoon, confirm, cancel).
func (m *Metrics) RecordDisambiguation(action string) {
	m.Disambiguations.WithLabelValues(action).Inc()
}

// RecordAvailabilityCheck records the answer of one availability check.
func (m *Metrics) RecordAvailabilityCheck(available bool) {
	label := "false"
	if available {
		label = "true"
	}
	m.AvailabilityChecks.WithLabelValues(label).Inc()
}

// RecordCommit records a commit attempt (committed, conflict, invalid, ambiguous, error).
func (m *Metrics) RecordCommit(result string, latencySeconds float64) {
	m.CommitsTotal.WithLabelValues(result).Inc()
	m.CommitLatency.Observe(latencySeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordConsumed records a consumed transcript event (parsed, skipped, error).
func (m *Metrics) RecordConsumed(result string) {
	m.KafkaConsumed.WithLabelValues(result).Inc()
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordGRPCRequest records a unary gRPC call.
func (m *Metrics) RecordGRPCRequest(method, code string, latencySeconds float64) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
	m.GRPCLatency.WithLabelValues(method).Observe(latencySeconds)
}
