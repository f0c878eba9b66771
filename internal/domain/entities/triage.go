package entities

// TriageResult is the output of the triage engine: an operational
// priority, matched red flags, and an operator-facing script. Generated
// synchronously by template; the engine never calls out of process.
type TriageResult struct {
	Priority      Priority `json:"priority"`
	RedFlags      []string `json:"red_flags"`
	EmergencyKind string   `json:"emergency_type,omitempty"`
	Message       string   `json:"message"`
	Script        string   `json:"ai_script"`
}
