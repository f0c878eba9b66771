package services

import (
	"sort"

	"github.com/medhaus/clinicflow/internal/domain/entities"
)

// LaneDurations holds the average visit duration per priority lane, in
// minutes, used for wait estimation.
type LaneDurations struct {
	HighMin   int
	MediumMin int
	LowMin    int
}

// DefaultLaneDurations mirror the operational complexity tiers.
func DefaultLaneDurations() LaneDurations {
	return LaneDurations{HighMin: 35, MediumMin: 25, LowMin: 15}
}

func (d LaneDurations) forPriority(p entities.Priority) int {
	switch p {
	case entities.PriorityHigh:
		return d.HighMin
	case entities.PriorityMedium:
		return d.MediumMin
	default:
		return d.LowMin
	}
}

// ScheduledEncounter pairs an encounter with its recomputed derived fields.
type ScheduledEncounter struct {
	Encounter        *entities.Encounter
	PositionInLine   int
	EstimatedWaitMin int
}

// QueueScheduler orders active encounters and computes position and wait
// estimates. Every call is a total recomputation from the snapshot it is
// given; nothing is patched incrementally, so derived fields can never
// drift from queue state.
type QueueScheduler struct {
	durations LaneDurations
}

// NewQueueScheduler creates a scheduler with the given lane durations.
func NewQueueScheduler(durations LaneDurations) *QueueScheduler {
	return &QueueScheduler{durations: durations}
}

// Recompute sorts the snapshot by priority lane descending, FIFO within a
// lane, and fills position and estimated wait per encounter. The sort key
// is total (priority, arrival, id), so recomputing an unchanged snapshot
// always yields the identical ordering.
//
// The wait estimate for the encounter at position p with `providers`
// active is ceil(p / max(providers, 1) * avg_visit(lane)): every
// preceding encounter has equal or higher priority by construction, so p
// is exactly the count ahead in or above the lane. providers=0 is clamped
// to 1 for the division only, which still surfaces a degraded wait.
func (s *QueueScheduler) Recompute(active []*entities.Encounter, providers int) []ScheduledEncounter {
	ordered := make([]*entities.Encounter, len(active))
	copy(ordered, active)

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if !a.ArrivalTime.Equal(b.ArrivalTime) {
			return a.ArrivalTime.Before(b.ArrivalTime)
		}
		return a.ID < b.ID
	})

	if providers < 1 {
		providers = 1
	}

	out := make([]ScheduledEncounter, len(ordered))
	for i, enc := range ordered {
		avg := s.durations.forPriority(enc.Priority)
		wait := ceilDiv(i*avg, providers)
		out[i] = ScheduledEncounter{
			Encounter:        enc,
			PositionInLine:   i,
			EstimatedWaitMin: wait,
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
