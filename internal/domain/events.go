package domain

import "time"

// EventType identifies a ledger event.
type EventType string

const (
	EventCertificateIssued      EventType = "certificate.issued"
	EventCertificateRegenerated EventType = "certificate.regenerated"
	EventCertificateInvalidated EventType = "certificate.invalidated"
	EventRecordError            EventType = "record.error"
	EventSweepCompleted         EventType = "sweep.completed"
)

// Event is emitted by the ledger for observers (logs, pub/sub, live feeds).
type Event struct {
	Type          EventType    `json:"type"`
	CourseID      string       `json:"courseId"`
	LearnerID     string       `json:"learnerId,omitempty"`
	CertificateID string       `json:"certificateId,omitempty"`
	Percent       float64      `json:"percent"`
	Trigger       SweepTrigger `json:"trigger,omitempty"`
	Message       string       `json:"message,omitempty"`
	OccurredAt    time.Time    `json:"occurredAt"`
}
