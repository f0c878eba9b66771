package entities

import "time"

// VitalsSnapshot is the most recent sensor or manual reading attached to
// an encounter. Fields are optional; a missing value means "unknown", not
// "normal" and not "critical". A new snapshot always replaces the previous
// one whole, never merged field by field.
type VitalsSnapshot struct {
	SpO2       *float64  `json:"spo2,omitempty"`
	HR         *float64  `json:"hr,omitempty"`
	TempC      *float64  `json:"temp_c,omitempty"`
	BPSys      *float64  `json:"bp_sys,omitempty"`
	BPDia      *float64  `json:"bp_dia,omitempty"`
	DeviceID   string    `json:"device_id"`
	Confidence float64   `json:"confidence"`
	Simulated  bool      `json:"simulated"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Empty reports whether the snapshot carries no readings at all.
func (v *VitalsSnapshot) Empty() bool {
	return v == nil || (v.SpO2 == nil && v.HR == nil && v.TempC == nil && v.BPSys == nil && v.BPDia == nil)
}
