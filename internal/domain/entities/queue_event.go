package entities

import "time"

// QueueEventType identifies an operational queue event.
type QueueEventType string

const (
	QueueEventCheckin             QueueEventType = "checkin"
	QueueEventVitals              QueueEventType = "vitals_submit"
	QueueEventStatusChange        QueueEventType = "status_change"
	QueueEventTriage              QueueEventType = "triage"
	QueueEventProviderCountChange QueueEventType = "provider_count_change"
)

// QueueEvent is an outbound operational event for external integrations
// (analytics, notification systems). The realtime broadcast to connected
// viewers does not depend on this feed.
type QueueEvent struct {
	ID          string         `json:"id"`
	Type        QueueEventType `json:"type"`
	EncounterID string         `json:"encounter_id,omitempty"`
	Token       string         `json:"token,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
