package entities

import "time"

// ArrivalWindow is the patient's self-declared arrival estimate from intake.
type ArrivalWindow string

const (
	ArrivalNow   ArrivalWindow = "now"
	ArrivalSoon  ArrivalWindow = "soon"
	ArrivalLater ArrivalWindow = "later"
)

// Registration is a pre-encounter intake record. It exists between the
// intake form and kiosk check-in; checking in converts it into a waiting
// Encounter. Its token is reserved while the registration is live.
type Registration struct {
	PID           string         `json:"pid"`
	Token         string         `json:"token"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	Phone         string         `json:"phone,omitempty"`
	DOB           string         `json:"dob,omitempty"`
	SymptomText   string         `json:"symptom_text"`
	DurationText  string         `json:"duration_text"`
	ArrivalWindow ArrivalWindow  `json:"arrival_window"`
	Intake        IntakeAnalysis `json:"intake"`
	CreatedAt     time.Time      `json:"created_at"`
}

// IntakeAnalysis is the structured, non-diagnostic summary of the intake
// symptom text used for lane assignment and visit duration estimates.
type IntakeAnalysis struct {
	ChiefComplaint   string   `json:"chief_complaint"`
	SymptomList      []string `json:"symptom_list"`
	Cluster          string   `json:"cluster"`
	RedFlags         []string `json:"red_flag_keywords_detected"`
	Complexity       string   `json:"operational_complexity"`
	VisitDurationMin int      `json:"estimated_visit_duration_minutes"`
	DurationDays     int      `json:"duration_days"`
	Summary          string   `json:"summary"`
}

func (a IntakeAnalysis) clone() IntakeAnalysis {
	c := a
	c.SymptomList = append([]string(nil), a.SymptomList...)
	c.RedFlags = append([]string(nil), a.RedFlags...)
	return c
}
