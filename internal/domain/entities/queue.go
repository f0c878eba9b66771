package entities

import "time"

// PublicQueueItem is the privacy-reduced queue row shown on the waiting
// room display and kiosk. It carries no names, symptoms, vitals, or red
// flags; that boundary is enforced here, not left to callers.
type PublicQueueItem struct {
	Token            string    `json:"token"`
	Priority         Priority  `json:"priority"`
	StatusLabel      string    `json:"status_label"`
	EstimatedWaitMin int       `json:"estimated_wait_min"`
	PositionInLine   int       `json:"position_in_line"`
	ProvidersActive  int       `json:"providers_active"`
	UpdatedAt        time.Time `json:"updated_at"`
	ETAExplanation   string    `json:"eta_explanation"`
}

// StaffQueueItem is the clinical queue row for the staff console. Access
// requires the staff capability checked at the API boundary.
type StaffQueueItem struct {
	ID               string          `json:"id"`
	Token            string          `json:"token"`
	DisplayName      string          `json:"display_name"`
	Status           Status          `json:"status"`
	StatusLabel      string          `json:"status_label"`
	Priority         Priority        `json:"priority"`
	Lane             Lane            `json:"lane"`
	SymptomText      string          `json:"symptom_text"`
	RedFlags         []string        `json:"red_flags"`
	EmergencyKind    string          `json:"emergency_kind,omitempty"`
	Vitals           *VitalsSnapshot `json:"vitals,omitempty"`
	EstimatedWaitMin int             `json:"estimated_wait_min"`
	PositionInLine   int             `json:"position_in_line"`
	ArrivalTime      time.Time       `json:"arrival_time"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// QueueSnapshot is the full ordered queue state at a point in time, as
// opposed to an incremental delta. Every broadcast carries a complete
// snapshot so a fresh subscriber needs no catch-up buffer.
type QueueSnapshot struct {
	Type          string            `json:"type"`
	ProviderCount int               `json:"provider_count"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Items         []PublicQueueItem `json:"items"`
}

// LaneCounts aggregates active encounters per display lane for the staff
// dashboard.
type LaneCounts struct {
	Fast     int `json:"Fast"`
	Standard int `json:"Standard"`
	Complex  int `json:"Complex"`
}

// LobbyLoad is a coarse load score for the waiting-room display.
type LobbyLoad struct {
	Level     string    `json:"level"`
	QueueSize int       `json:"queue_size"`
	UpdatedAt time.Time `json:"updated_at"`
}
