package negotiation

import "fmt"

// ProposeInitialOffer builds the provider's round-1 offer. The opening price
// starts at the buyer target but never below the provider floor. When no
// feasible slot exists the offer goes out with zero proposed slots; that is
// a legal, weaker offer, not an error.
func ProposeInitialOffer(init NegotiationInit, providerAvailability []DaySlot, providerFloor float64, policy Policy) Offer {
	var slots []DaySlot
	if slot, ok := ChooseFeasibleSlot(init.WeekAvailability, providerAvailability, policy.MinDurationMinutes); ok {
		slots = []DaySlot{slot}
	}
	return Offer{
		RequestID:       init.RequestID,
		Round:           1,
		From:            RoleProvider,
		Price:           roundCents(max(providerFloor, init.Budget.Target)),
		ProposedSlots:   slots,
		DurationMinutes: policy.MinDurationMinutes,
		IncludesParts:   policy.AllowParts && init.Constraints.PartsIncluded,
		Notes:           "Initial proposal",
	}
}

// CounterOffer makes a bounded price concession and tightens the time choice
// for the next round. counterpartBound is the provider floor when the buyer
// acts and the buyer maximum when the provider acts. When availability is
// nil the previous proposed slot is carried forward.
func CounterOffer(prev Offer, init NegotiationInit, actor Party, counterpartBound float64, policy Policy, providerAvailability []DaySlot) Offer {
	var price float64
	if actor.Role == RoleBuyer {
		price = nextBuyerPrice(prev.Price, init, counterpartBound, prev.Round, policy)
	} else {
		floor := 0.0
		if actor.ReservationMin != nil {
			floor = *actor.ReservationMin
		}
		price = nextProviderPrice(prev.Price, init, floor, counterpartBound, prev.Round, policy)
	}

	var slots []DaySlot
	if providerAvailability != nil {
		if slot, ok := ChooseFeasibleSlot(init.WeekAvailability, providerAvailability, policy.MinDurationMinutes); ok {
			slots = []DaySlot{slot}
		}
	} else if len(prev.ProposedSlots) > 0 {
		slots = []DaySlot{prev.ProposedSlots[0]}
	}

	return Offer{
		RequestID:       init.RequestID,
		Round:           prev.Round + 1,
		From:            actor.Role,
		Price:           roundCents(price),
		ProposedSlots:   slots,
		DurationMinutes: prev.DurationMinutes,
		IncludesParts:   prev.IncludesParts,
		Notes:           fmt.Sprintf("Counter by %s", actor.Role),
	}
}

// ShouldAccept gates acceptance: the price must sit inside the actor's own
// feasible band and the offer must score at or above the policy threshold.
func ShouldAccept(offer Offer, init NegotiationInit, actor Party, providerFloor float64, policy Policy) bool {
	score := ScoreOffer(offer, init, providerFloor)
	if actor.Role == RoleBuyer {
		return init.Budget.Contains(offer.Price) && score >= policy.AcceptScore
	}
	floor := providerFloor
	if actor.ReservationMin != nil {
		floor = *actor.ReservationMin
	}
	return offer.Price >= floor && score >= policy.AcceptScore
}

// TerminalDecisionFor evaluates a received offer for the acting party.
// Priority: accept whenever the offer clears the actor's band and the score
// threshold, regardless of round; otherwise counter while rounds remain;
// otherwise reject. MaxRounds is a hard ceiling, never extended.
//
// The COUNTER response signals that a counter offer should follow; the
// caller builds it via CounterOffer so availability stays in its hands.
func TerminalDecisionFor(offer Offer, init NegotiationInit, actor Party, providerFloor float64, roundIdx int) Response {
	return terminalDecision(offer, init, actor, providerFloor, roundIdx, DefaultPolicy())
}

// TerminalDecisionWithPolicy is TerminalDecisionFor with an explicit policy.
func TerminalDecisionWithPolicy(offer Offer, init NegotiationInit, actor Party, providerFloor float64, roundIdx int, policy Policy) Response {
	return terminalDecision(offer, init, actor, providerFloor, roundIdx, policy)
}

func terminalDecision(offer Offer, init NegotiationInit, actor Party, providerFloor float64, roundIdx int, policy Policy) Response {
	if ShouldAccept(offer, init, actor, providerFloor, policy) {
		return Accept(init.RequestID, offer.Round, "Meets constraints and target.")
	}
	if roundIdx >= init.MaxRounds {
		return Reject(init.RequestID, offer.Round, "Reached max rounds without agreement.")
	}
	counter := CounterOffer(offer, init, actor, counterpartBoundFor(actor, init, providerFloor), policy, nil)
	return Counter(offer.Round, counter)
}

// counterpartBoundFor resolves the hard bound the acting party concedes
// against: the provider floor for a buyer, the buyer ceiling for a provider.
func counterpartBoundFor(actor Party, init NegotiationInit, providerFloor float64) float64 {
	if actor.Role == RoleBuyer {
		return providerFloor
	}
	if init.Buyer.ReservationMax != nil {
		return *init.Buyer.ReservationMax
	}
	return init.Budget.Max
}
