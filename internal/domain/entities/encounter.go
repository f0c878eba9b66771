package entities

import "time"

// Status is the encounter state machine position. Transitions are
// forward-only along waiting -> called -> in_room -> done.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusCalled  Status = "called"
	StatusInRoom  Status = "in_room"
	StatusDone    Status = "done"
)

// nextStatus maps each state to the only state it may advance to.
var nextStatus = map[Status]Status{
	StatusWaiting: StatusCalled,
	StatusCalled:  StatusInRoom,
	StatusInRoom:  StatusDone,
}

// ValidStatus reports whether s is a known encounter status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusInRoom, StatusDone:
		return true
	}
	return false
}

// CanTransition reports whether from may advance to to. Back-transitions
// and state skips are rejected; callers surface these as typed errors,
// never as a silent clamp.
func CanTransition(from, to Status) bool {
	return nextStatus[from] == to
}

// Label returns the operator-facing label for a status.
func (s Status) Label() string {
	switch s {
	case StatusWaiting:
		return "Waiting"
	case StatusCalled:
		return "Called"
	case StatusInRoom:
		return "In Room"
	case StatusDone:
		return "Complete"
	}
	return string(s)
}

// Priority is the triage-assigned urgency tier governing queue ordering.
// It is an operational label, never a diagnosis.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of a priority; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Lane is the display lane shown to staff, derived from intake complexity.
type Lane string

const (
	LaneFast     Lane = "Fast"
	LaneStandard Lane = "Standard"
	LaneComplex  Lane = "Complex"
)

// LaneFromComplexity maps an intake complexity label to a display lane.
func LaneFromComplexity(complexity string) Lane {
	switch complexity {
	case "Low":
		return LaneFast
	case "High":
		return LaneComplex
	default:
		return LaneStandard
	}
}

// Encounter is one patient's active visit record from check-in to
// completion. Derived fields (Priority, RedFlags, PositionInLine,
// EstimatedWaitMin) are recomputed from the current snapshot, never
// incrementally patched.
type Encounter struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Lane     Lane     `json:"lane"`

	ArrivalTime time.Time `json:"arrival_time"`

	SymptomText   string          `json:"symptom_text"`
	Intake        IntakeAnalysis  `json:"intake"`
	VitalsLatest  *VitalsSnapshot `json:"vitals_latest,omitempty"`
	RedFlags      []string        `json:"red_flags"`
	EmergencyKind string          `json:"emergency_kind,omitempty"`

	PositionInLine   int `json:"position_in_line"`
	EstimatedWaitMin int `json:"estimated_wait_min"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName is a privacy-reduced name for kiosk confirmation screens:
// first name plus last initial.
func (e *Encounter) DisplayName() string {
	name := e.FirstName
	if e.LastName != "" {
		name += " " + e.LastName[:1] + "."
	}
	if name == "" {
		return "Patient"
	}
	return name
}

// Active reports whether the encounter still belongs in queue views.
func (e *Encounter) Active() bool {
	return e.Status != StatusDone
}

// Clone returns a deep copy so store internals never escape the lock.
func (e *Encounter) Clone() *Encounter {
	c := *e
	if e.VitalsLatest != nil {
		v := *e.VitalsLatest
		c.VitalsLatest = &v
	}
	c.RedFlags = append([]string(nil), e.RedFlags...)
	c.Intake = e.Intake.clone()
	return &c
}
