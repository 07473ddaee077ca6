package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOffer(price float64, duration int, slots []DaySlot) Offer {
	return Offer{
		RequestID:       "req-001",
		Round:           1,
		From:            RoleProvider,
		Price:           price,
		ProposedSlots:   slots,
		DurationMinutes: duration,
	}
}

func TestScoreOffer(t *testing.T) {
	budget, err := NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	init := testInit(t, budget, 50, 6)
	slot := []DaySlot{{Day: Tue, Start: "09:00", End: "10:00"}}

	tests := []struct {
		name  string
		offer Offer
		floor float64
		want  float64
	}{
		{
			name:  "everything aligned caps at one",
			offer: testOffer(60, 60, slot),
			floor: 50,
			want:  1.0, // raw 0.5+0.2+0.2+0.1+0.2 capped
		},
		{
			name:  "target distance decays the bonus",
			offer: testOffer(72, 60, slot),
			floor: 50,
			want:  0.5 + 0.2 + 0.1 + 0.2, // |72-60|/60 = 0.2 eats the bonus
		},
		{
			name:  "below provider floor",
			offer: testOffer(45, 60, slot),
			floor: 50,
			want:  0.5 + 0 + 0.1 + 0.2, // |45-60|/60 = 0.25 floors the bonus at 0
		},
		{
			name:  "out of budget and slotless",
			offer: testOffer(95, 60, nil),
			floor: 50,
			want:  0.2 + 0.1,
		},
		{
			name:  "unreasonable duration",
			offer: testOffer(60, 600, slot),
			floor: 50,
			want:  1.0, // 0.5+0.2+0.2+0.2 = 1.1 capped
		},
		{
			name:  "degraded slotless offer still scores price",
			offer: testOffer(60, 60, nil),
			floor: 50,
			want:  0.5 + 0.2 + 0.2 + 0.1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreOffer(tt.offer, init, tt.floor)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScoreOfferBounded(t *testing.T) {
	budget, err := NewMoneyRange(0, 1, 1000000)
	require.NoError(t, err)
	init := testInit(t, budget, 0, 6)
	slot := []DaySlot{{Day: Mon, Start: "00:00", End: "23:59"}}

	prices := []float64{0, 0.01, 1, 30, 59.99, 60, 100, 999999, 1000000}
	durations := []int{1, 29, 30, 240, 241, 100000}
	floors := []float64{0, 1, 500, 1000001}
	for _, price := range prices {
		for _, duration := range durations {
			for _, floor := range floors {
				for _, slots := range [][]DaySlot{nil, slot} {
					score := ScoreOffer(testOffer(price, duration, slots), init, floor)
					assert.GreaterOrEqual(t, score, 0.0)
					assert.LessOrEqual(t, score, 1.0)
				}
			}
		}
	}
}
