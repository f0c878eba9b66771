package providers

import "context"

// EligibilityRequest carries the identifiers an insurer needs to answer an
// eligibility question. Consent is collected before the call is made.
type EligibilityRequest struct {
	EncounterID  string `json:"encounter_id"`
	Token        string `json:"token"`
	NationalID   string `json:"national_id,omitempty"`
	InsurerName  string `json:"insurer_name,omitempty"`
	PolicyNumber string `json:"policy_number,omitempty"`
	MemberID     string `json:"member_id,omitempty"`
	Consent      bool   `json:"consent"`
}

// EligibilityResult is the insurer's answer, normalized across adapters.
type EligibilityResult struct {
	Adapter               string  `json:"adapter"`
	Eligible              bool    `json:"eligible"`
	PlanType              string  `json:"plan_type,omitempty"`
	CopayEstimate         float64 `json:"copay_estimate"`
	AuthorizationRequired string  `json:"authorization_required,omitempty"`
}

// InsuranceProvider answers eligibility checks against an external payer
// gateway. Calls run outside the queue's critical section; a slow or
// failing payer never blocks intake.
type InsuranceProvider interface {
	CheckEligibility(ctx context.Context, req EligibilityRequest) (*EligibilityResult, error)
}
