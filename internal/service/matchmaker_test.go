package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixwise/negotiations/internal/model"
	"github.com/fixwise/negotiations/internal/negotiation"
)

var almaty = model.GeoPoint{Lat: 43.238949, Lon: 76.889709}

func matchRequest() model.Request {
	budget, _ := negotiation.NewMoneyRange(40, 60, 80)
	return model.Request{
		Trade:    "plumbing",
		Location: almaty,
		Budget:   budget,
	}
}

func matchProvider(name string) model.Provider {
	return model.Provider{
		Name:     name,
		Trades:   []string{"plumbing"},
		Location: almaty,
		Pricing: map[string]model.PriceBand{
			"plumbing": {Min: 45, Max: 75},
		},
		Availability: []negotiation.DaySlot{
			{Day: negotiation.Tue, Start: "09:00", End: "12:00"},
		},
	}
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, haversineKm(almaty, almaty), 0.001)

	astana := model.GeoPoint{Lat: 51.169392, Lon: 71.449074}
	assert.InDelta(t, 970, haversineKm(almaty, astana), 20)
}

func TestScoreProvider(t *testing.T) {
	request := matchRequest()

	t.Run("full match", func(t *testing.T) {
		provider := matchProvider("Full")
		// 50 trade + 30 proximity + 20 band + 10 availability
		assert.InDelta(t, 110, scoreProvider(provider, request), 0.001)
	})

	t.Run("wrong trade scores zero", func(t *testing.T) {
		provider := matchProvider("Electric")
		provider.Trades = []string{"electrical"}
		assert.Zero(t, scoreProvider(provider, request))
	})

	t.Run("partial band fit", func(t *testing.T) {
		provider := matchProvider("Pricey")
		provider.Pricing["plumbing"] = model.PriceBand{Min: 70, Max: 150}
		assert.InDelta(t, 100, scoreProvider(provider, request), 0.001)
	})

	t.Run("band above budget", func(t *testing.T) {
		provider := matchProvider("TooPricey")
		provider.Pricing["plumbing"] = model.PriceBand{Min: 100, Max: 200}
		assert.InDelta(t, 90, scoreProvider(provider, request), 0.001)
	})

	t.Run("no availability", func(t *testing.T) {
		provider := matchProvider("Unscheduled")
		provider.Availability = nil
		assert.InDelta(t, 100, scoreProvider(provider, request), 0.001)
	})

	t.Run("distance erodes proximity", func(t *testing.T) {
		near := matchProvider("Near")
		far := matchProvider("Far")
		far.Location = model.GeoPoint{Lat: almaty.Lat + 0.1, Lon: almaty.Lon}
		assert.Greater(t, scoreProvider(near, request), scoreProvider(far, request))
	})

	t.Run("proximity bonus floors at zero", func(t *testing.T) {
		provider := matchProvider("Remote")
		provider.Location = model.GeoPoint{Lat: 51.169392, Lon: 71.449074}
		// 50 trade + 0 proximity + 20 band + 10 availability
		assert.InDelta(t, 80, scoreProvider(provider, request), 0.001)
	})
}

func TestRankProviders(t *testing.T) {
	request := matchRequest()

	best := matchProvider("Best")
	noSlots := matchProvider("NoSlots")
	noSlots.Availability = nil
	wrongTrade := matchProvider("WrongTrade")
	wrongTrade.Trades = []string{"roofing"}

	ranked := RankProviders([]model.Provider{noSlots, wrongTrade, best}, request)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Best", ranked[0].Provider.Name)
	assert.Equal(t, "NoSlots", ranked[1].Provider.Name)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestRankProvidersStableOnTies(t *testing.T) {
	request := matchRequest()

	first := matchProvider("First")
	second := matchProvider("Second")

	ranked := RankProviders([]model.Provider{first, second}, request)
	require.Len(t, ranked, 2)
	assert.Equal(t, "First", ranked[0].Provider.Name)
	assert.Equal(t, "Second", ranked[1].Provider.Name)
}
