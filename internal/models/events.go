package models

// Event types published by this service.
const (
	EventVoiceOutcome         = "voice.outcome"
	EventAppointmentCommitted = "appointment.committed"
	EventAppointmentRemoved   = "appointment.removed"
)

// OutcomeEvent carries the parsing outcome of a final transcript.
type OutcomeEvent struct {
	EventType     string  `json:"eventType"`
	InteractionID string  `json:"interactionId"`
	TenantID      string  `json:"tenantId,omitempty"`
	SegmentID     string  `json:"segmentId,omitempty"`
	Timestamp     int64   `json:"timestamp"`
	Outcome       Outcome `json:"outcome"`
}

// AppointmentEvent announces a committed or removed appointment.
type AppointmentEvent struct {
	EventType   string `json:"eventType"`
	Timestamp   int64  `json:"timestamp"`
	Appointment Record `json:"appointment"`
}
