package negotiation

import "math"

// priceConcession moves current toward ideal with diminishing step size as
// rounds advance. The movement weight blends a linear schedule with a
// quadratic ease-out: 0.65·fraction + 0.35·(1 − (1−fraction)²), where
// fraction = min(1, (round+1)/maxRounds).
func priceConcession(current, ideal float64, roundIdx, maxRounds int) float64 {
	fraction := math.Min(1, float64(roundIdx+1)/float64(maxRounds))
	eased := 1 - (1-fraction)*(1-fraction)
	movement := 0.65*fraction + 0.35*eased
	return current + (ideal-current)*movement
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// nextBuyerPrice is the buyer's bounded concession for the next round:
// toward the budget target, capped per round, never below the provider
// floor.
func nextBuyerPrice(current float64, init NegotiationInit, providerFloor float64, roundIdx int, policy Policy) float64 {
	ideal := clamp(init.Budget.Target, providerFloor, init.Budget.Max)
	price := priceConcession(current, ideal, roundIdx, init.MaxRounds)
	cap := policy.ConcessionCap * math.Max(1, current)
	price = clamp(price, current-cap, current+cap)
	return math.Max(price, providerFloor)
}

// nextProviderPrice is the provider's bounded concession: toward the higher
// of its floor and the buyer target, capped per round, pulled under the
// buyer ceiling where possible. The provider floor is applied last: a
// proposal below the floor could be accepted by the buyer and bind the
// provider to a losing contract, so when the ceiling and the floor conflict
// the floor wins and the offer simply stays unacceptable to the buyer.
func nextProviderPrice(current float64, init NegotiationInit, providerFloor, buyerMax float64, roundIdx int, policy Policy) float64 {
	ideal := math.Max(providerFloor, init.Budget.Target)
	price := priceConcession(current, ideal, roundIdx, init.MaxRounds)
	cap := policy.ConcessionCap * math.Max(1, current)
	price = clamp(price, current-cap, current+cap)
	price = math.Min(price, buyerMax)
	return math.Max(price, providerFloor)
}

// roundCents truncates float noise to cent precision for emitted offers.
func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
