package negotiation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceConcessionConverges(t *testing.T) {
	const maxRounds = 6
	current, ideal := 100.0, 60.0

	prev := current
	for round := 1; round <= maxRounds; round++ {
		next := priceConcession(prev, ideal, round, maxRounds)
		// always moves toward the ideal, never past it
		assert.LessOrEqual(t, next, prev)
		assert.GreaterOrEqual(t, next, ideal)
		prev = next
	}
	// by the final round the blended movement weight reaches 1
	assert.InDelta(t, ideal, priceConcession(prev, ideal, maxRounds, maxRounds), 1e-9)
}

func TestPriceConcessionAtIdealIsStable(t *testing.T) {
	for round := 1; round <= 6; round++ {
		assert.InDelta(t, 75.0, priceConcession(75, 75, round, 6), 1e-9)
	}
}

func TestConcessionCapBoundsMovement(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 45, 6)
	policy := DefaultPolicy()

	// currents inside each side's own feasible region, where the per-round
	// cap is the binding constraint rather than a hard reservation bound
	for round := 1; round <= init.MaxRounds; round++ {
		for _, current := range []float64{0.5, 1, 20, 45, 60, 79} {
			cap := policy.ConcessionCap * math.Max(1, current)
			buyerNext := nextBuyerPrice(current, init, 0, round, policy)
			assert.LessOrEqual(t, math.Abs(buyerNext-current), cap+1e-9,
				"buyer step from %.2f at round %d", current, round)
		}
		for _, current := range []float64{45, 50, 60, 79} {
			cap := policy.ConcessionCap * math.Max(1, current)
			providerNext := nextProviderPrice(current, init, 45, init.Budget.Max, round, policy)
			assert.LessOrEqual(t, math.Abs(providerNext-current), cap+1e-9,
				"provider step from %.2f at round %d", current, round)
			assert.GreaterOrEqual(t, providerNext, 45.0, "provider never proposes below its floor")
		}
	}
}

func TestBuyerNeverConcedesBelowFloor(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 55, 6)

	// buyer would like to pull toward 60 but the floor holds at 55
	for round := 1; round <= init.MaxRounds; round++ {
		next := nextBuyerPrice(56, init, 55, round, DefaultPolicy())
		assert.GreaterOrEqual(t, next, 55.0)
	}
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 66.67, roundCents(66.6666667))
	assert.Equal(t, 60.0, roundCents(59.999999))
	assert.Equal(t, 0.0, roundCents(0))
}
