// Package models defines the data structures shared across the voice
// appointment service: inbound transcript events, appointment fields and
// records, parsing outcomes and the events published about them.
package models

// Event types emitted by the speech ingress service.
const (
	EventTranscriptPartial = "interaction.transcript.partial"
	EventTranscriptFinal   = "interaction.transcript.final"
)

// TranscriptPartial is an interim transcript published upstream while the
// caller is still speaking.
type TranscriptPartial struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	Timestamp     int64  `json:"timestamp"`
	SegmentID     string `json:"segmentId"`
	Text          string `json:"text"`
}

// TranscriptFinal is the settled transcript of one utterance. Only finals are
// turned into parsing outcomes by the Kafka consumer.
type TranscriptFinal struct {
	EventType     string  `json:"eventType"`
	InteractionID string  `json:"interactionId"`
	TenantID      string  `json:"tenantId"`
	Timestamp     int64   `json:"timestamp"`
	SegmentID     string  `json:"segmentId"`
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	AudioOffsetMs int64   `json:"audioOffsetMs"`
}
