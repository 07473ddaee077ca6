package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposeInitialOffer(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	providerSlots := []DaySlot{{Day: Tue, Start: "10:00", End: "14:00"}}

	offer := ProposeInitialOffer(init, providerSlots, 50, DefaultPolicy())
	require.NoError(t, offer.Validate())

	assert.Equal(t, 1, offer.Round)
	assert.Equal(t, RoleProvider, offer.From)
	assert.Equal(t, 60.0, offer.Price, "opening price is max(floor, target)")
	require.Len(t, offer.ProposedSlots, 1)
	assert.Equal(t, DaySlot{Day: Tue, Start: "10:00", End: "11:00"}, offer.ProposedSlots[0])
	assert.Equal(t, 60, offer.DurationMinutes)
}

func TestProposeInitialOfferFloorAboveTarget(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 70, 6)

	offer := ProposeInitialOffer(init, nil, 70, DefaultPolicy())
	assert.Equal(t, 70.0, offer.Price)
	assert.Empty(t, offer.ProposedSlots, "no provider availability means a degraded offer")
}

func TestShouldAcceptAtProviderFloor(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	slot := []DaySlot{{Day: Tue, Start: "09:00", End: "10:00"}}

	offer := testOffer(50, 60, slot)
	assert.True(t, ShouldAccept(offer, init, init.Provider, 50, DefaultPolicy()),
		"provider accepts an in-range offer priced exactly at its floor")
	assert.True(t, ShouldAccept(offer, init, init.Buyer, 50, DefaultPolicy()))
}

func TestShouldAcceptRejectsOutOfBand(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	slot := []DaySlot{{Day: Tue, Start: "09:00", End: "10:00"}}
	policy := DefaultPolicy()

	assert.False(t, ShouldAccept(testOffer(90, 60, slot), init, init.Buyer, 50, policy),
		"buyer never accepts above budget max")
	assert.False(t, ShouldAccept(testOffer(45, 60, slot), init, init.Provider, 50, policy),
		"provider never accepts below its floor")
}

func TestTerminalDecisionAcceptsImmediately(t *testing.T) {
	// budget (40,60,80), floor 50: the opening price 60 already clears both
	// bands and the score gate, so round 1 must ACCEPT rather than loop.
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	providerSlots := []DaySlot{{Day: Tue, Start: "09:00", End: "13:00"}}

	offer := ProposeInitialOffer(init, providerSlots, 50, DefaultPolicy())
	require.Equal(t, 60.0, offer.Price)

	resp := TerminalDecisionFor(offer, init, init.Buyer, 50, 1)
	assert.Equal(t, DecisionAccept, resp.Decision)
	assert.Equal(t, 1, resp.Round)
	assert.Nil(t, resp.Offer)
}

func TestTerminalDecisionAcceptIgnoresRoundCeiling(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	slot := []DaySlot{{Day: Tue, Start: "09:00", End: "10:00"}}

	offer := testOffer(60, 60, slot)
	offer.Round = 6
	resp := TerminalDecisionFor(offer, init, init.Buyer, 50, 6)
	assert.Equal(t, DecisionAccept, resp.Decision, "acceptance wins regardless of round")
}

func TestTerminalDecisionCountersWhileRoundsRemain(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)

	// slotless and far from target: not acceptable, but rounds remain
	offer := testOffer(95, 60, nil)
	resp := TerminalDecisionFor(offer, init, init.Buyer, 50, 1)
	require.Equal(t, DecisionCounter, resp.Decision)
	require.NotNil(t, resp.Offer)
	require.NoError(t, resp.Validate())
	assert.Equal(t, 2, resp.Offer.Round)
	assert.Equal(t, RoleBuyer, resp.Offer.From)
	assert.Less(t, resp.Offer.Price, 95.0, "buyer concedes downward")
}

func TestTerminalDecisionRejectsAtRoundCeiling(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)

	offer := testOffer(95, 60, nil)
	offer.Round = 6
	resp := TerminalDecisionFor(offer, init, init.Buyer, 50, 6)
	assert.Equal(t, DecisionReject, resp.Decision)
	assert.Nil(t, resp.Offer)
	assert.NotEmpty(t, resp.Reason)
}

// Disjoint bands: buyer tops out at 40, provider floors at 45. No price can
// satisfy both, so alternating decisions must run the round ceiling out and
// REJECT without ever accepting.
func TestDisjointBandsAlwaysReject(t *testing.T) {
	budget, err := NewMoneyRange(20, 30, 40)
	require.NoError(t, err)
	const floor = 45.0
	init := testInit(t, budget, floor, 6)
	providerSlots := []DaySlot{{Day: Tue, Start: "09:00", End: "13:00"}}
	policy := DefaultPolicy()

	offer := ProposeInitialOffer(init, providerSlots, floor, policy)
	actor := init.Buyer
	var last Response
	for round := 1; ; round++ {
		require.LessOrEqual(t, round, init.MaxRounds, "negotiation must terminate at the round ceiling")
		last = TerminalDecisionWithPolicy(offer, init, actor, floor, round, policy)
		require.NotEqual(t, DecisionAccept, last.Decision,
			"no price satisfies both bands, round %d accepted %.2f", round, offer.Price)
		if last.Terminal() {
			break
		}
		offer = *last.Offer
		actor = pickActor(init, actor.Role.Other())
	}
	assert.Equal(t, DecisionReject, last.Decision)
}

func pickActor(init NegotiationInit, role Role) Party {
	if role == RoleBuyer {
		return init.Buyer
	}
	return init.Provider
}

func TestCounterOfferCarriesSlotForward(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	slot := DaySlot{Day: Thu, Start: "14:00", End: "15:00"}

	prev := testOffer(90, 60, []DaySlot{slot})
	next := CounterOffer(prev, init, init.Buyer, 50, DefaultPolicy(), nil)
	require.Len(t, next.ProposedSlots, 1)
	assert.Equal(t, slot, next.ProposedSlots[0])
	assert.Equal(t, prev.DurationMinutes, next.DurationMinutes)
	assert.Equal(t, prev.Round+1, next.Round)
}

func TestCounterOfferRematchesWithAvailability(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	providerSlots := []DaySlot{{Day: Thu, Start: "15:00", End: "18:00"}}

	prev := testOffer(90, 60, nil)
	next := CounterOffer(prev, init, init.Provider, init.Budget.Max, DefaultPolicy(), providerSlots)
	require.Len(t, next.ProposedSlots, 1)
	assert.Equal(t, DaySlot{Day: Thu, Start: "15:00", End: "16:00"}, next.ProposedSlots[0])
}
