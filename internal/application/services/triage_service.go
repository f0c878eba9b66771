package services

import (
	"fmt"
	"strings"

	"github.com/medhaus/clinicflow/internal/domain/entities"
)

// RedFlagKeywords is the fixed high-concern phrase list scanned against
// symptom text. A match is surfaced to staff, never used as a diagnosis.
var RedFlagKeywords = []string{
	"chest pain", "difficulty breathing", "can't breathe", "trouble breathing",
	"having trouble breathing", "shortness of breath", "unconscious", "seizure",
	"bleeding heavily", "stroke", "heart attack", "anaphylaxis", "overdose",
}

// emergencyLabels maps an emergency kind to the operator-facing wording.
var emergencyLabels = map[string]string{
	"low_oxygen":          "low oxygen emergency",
	"critical_heart_rate": "critical heart rhythm",
	"critical_bp":         "critical blood pressure",
	"critical_temp":       "critical temperature",
	"heart_attack":        "heart attack",
	"chest_pain":          "potential cardiac emergency",
	"stroke":              "stroke",
	"emergency_symptoms":  "medical emergency",
}

// TriageService classifies an encounter into an operational priority lane
// from vitals and symptom text. It is a pure function of its inputs: no
// stored state, no I/O, no external calls, so it can sit in the hot path
// of every vitals submission.
type TriageService struct{}

// NewTriageService creates the triage engine.
func NewTriageService() *TriageService {
	return &TriageService{}
}

// Triage computes priority, red flags, and the operator script. Missing
// vitals are treated as unknown and never escalate on their own; any
// single out-of-band vital is enough to reach the highest lane.
func (s *TriageService) Triage(vitals *entities.VitalsSnapshot, symptomText string) entities.TriageResult {
	flags := MatchRedFlags(symptomText)
	priority, kind := classify(vitals, flags)
	message := script(priority, kind)

	return entities.TriageResult{
		Priority:      priority,
		RedFlags:      flags,
		EmergencyKind: kind,
		Message:       message,
		Script:        message,
	}
}

// MatchRedFlags returns the red-flag phrases found in text,
// case-insensitive substring match.
func MatchRedFlags(text string) []string {
	low := strings.ToLower(text)
	var flags []string
	for _, kw := range RedFlagKeywords {
		if strings.Contains(low, kw) {
			flags = append(flags, kw)
		}
	}
	return flags
}

func classify(vitals *entities.VitalsSnapshot, flags []string) (entities.Priority, string) {
	if len(flags) > 0 {
		return entities.PriorityHigh, flagKind(flags[0])
	}

	if vitals != nil {
		if v := vitals.SpO2; v != nil && *v < 92 {
			return entities.PriorityHigh, "low_oxygen"
		}
		if v := vitals.HR; v != nil && (*v > 130 || *v < 45) {
			return entities.PriorityHigh, "critical_heart_rate"
		}
		if v := vitals.BPSys; v != nil && (*v > 180 || *v < 85) {
			return entities.PriorityHigh, "critical_bp"
		}
		if v := vitals.TempC; v != nil && (*v > 39.5 || *v < 35.0) {
			return entities.PriorityHigh, "critical_temp"
		}
		if v := vitals.SpO2; v != nil && *v < 95 {
			return entities.PriorityMedium, ""
		}
		if v := vitals.HR; v != nil && (*v > 110 || *v < 50) {
			return entities.PriorityMedium, ""
		}
		if v := vitals.BPSys; v != nil && (*v > 160 || *v < 95) {
			return entities.PriorityMedium, ""
		}
	}

	return entities.PriorityLow, ""
}

func flagKind(flag string) string {
	kind := strings.ReplaceAll(flag, " ", "_")
	kind = strings.ReplaceAll(kind, "'", "")
	if _, ok := emergencyLabels[kind]; ok {
		return kind
	}
	return "emergency_symptoms"
}

func script(priority entities.Priority, kind string) string {
	if priority == entities.PriorityHigh {
		label := emergencyLabels[kind]
		if label == "" {
			label = "medical emergency"
		}
		return fmt.Sprintf(
			"You are having the conditions of a %s and need to be rushed immediately. A doctor is being notified.",
			label)
	}
	level := "Low"
	if priority == entities.PriorityMedium {
		level = "Medium"
	}
	return fmt.Sprintf(
		"Your priority is %s. Please proceed to the waiting room and have a seat. You will be called when it is your turn.",
		level)
}
