package negotiation

import "math"

// Duration sanity band for scoring, in minutes.
const (
	scoreDurationMin = 30
	scoreDurationMax = 240
)

// ScoreOffer computes the mutual-feasibility score of an offer in [0, 1].
// The weights are part of the acceptance contract and must not drift:
//
//	+0.5  price inside the buyer budget band
//	+0.2  max, decaying linearly with distance from the budget target
//	+0.2  price at or above the provider floor
//	+0.1  duration within [30, 240] minutes
//	+0.2  at least one concrete slot proposed
//
// The raw component sum can exceed 1; it is capped at 1.
func ScoreOffer(offer Offer, init NegotiationInit, providerFloor float64) float64 {
	score := 0.0
	if init.Budget.Contains(offer.Price) {
		score += 0.5
		distance := math.Abs(offer.Price-init.Budget.Target) / math.Max(1, init.Budget.Target)
		score += math.Max(0, 0.2-distance)
	}
	if offer.Price >= providerFloor {
		score += 0.2
	}
	if offer.DurationMinutes >= scoreDurationMin && offer.DurationMinutes <= scoreDurationMax {
		score += 0.1
	}
	if len(offer.ProposedSlots) > 0 {
		score += 0.2
	}
	return math.Min(score, 1)
}
