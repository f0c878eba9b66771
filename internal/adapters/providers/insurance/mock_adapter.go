package insurance

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/medhaus/clinicflow/internal/domain/providers"
)

// MockAdapter simulates a payer gateway for demos and tests. Responses
// are deterministic per request so repeated checks for the same patient
// agree with each other.
type MockAdapter struct {
	latency time.Duration
}

// NewMockAdapter creates a mock insurance adapter.
func NewMockAdapter(latency time.Duration) providers.InsuranceProvider {
	return &MockAdapter{latency: latency}
}

// CheckEligibility returns a simulated eligibility answer, skewed toward
// eligible.
func (m *MockAdapter) CheckEligibility(ctx context.Context, req providers.EligibilityRequest) (*providers.EligibilityResult, error) {
	if m.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.latency):
		}
	}

	rng := rand.New(rand.NewSource(requestSeed(req)))
	eligible := rng.Intn(4) != 0
	plans := []string{"Basic", "Standard", "Premium"}
	copays := []float64{0, 10, 20, 50}
	auths := []string{"no", "no", "unknown", "yes"}

	return &providers.EligibilityResult{
		Adapter:               "mock",
		Eligible:              eligible,
		PlanType:              plans[rng.Intn(len(plans))],
		CopayEstimate:         copays[rng.Intn(len(copays))],
		AuthorizationRequired: auths[rng.Intn(len(auths))],
	}, nil
}

func requestSeed(req providers.EligibilityRequest) int64 {
	h := fnv.New64a()
	h.Write([]byte(req.EncounterID))
	h.Write([]byte(req.NationalID))
	h.Write([]byte(req.InsurerName))
	h.Write([]byte(req.PolicyNumber))
	h.Write([]byte(req.MemberID))
	return int64(h.Sum64() & 0xFFFF)
}
