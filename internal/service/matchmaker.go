package service

import (
	"math"
	"sort"

	"github.com/fixwise/negotiations/internal/model"
)

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(a, b model.GeoPoint) float64 {
	const earthRadiusKm = 6371

	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// scoreProvider rates how well a provider matches a request. A provider
// that does not cover the requested trade scores zero and is excluded.
//
//	+50               trade match (required)
//	+max(0, 30 - km)  proximity, one point lost per kilometer
//	+20 / +10 / +0    advertised price band fully / partially / not
//	                  within the request's budget max
//	+10               availability published
func scoreProvider(provider model.Provider, request model.Request) float64 {
	if !provider.Offers(request.Trade) {
		return 0
	}
	score := 50.0

	distance := haversineKm(request.Location, provider.Location)
	score += math.Max(0, 30-distance)

	if band, ok := provider.Pricing[request.Trade]; ok {
		switch {
		case band.Max <= request.Budget.Max:
			score += 20
		case band.Min <= request.Budget.Max:
			score += 10
		}
	}

	if len(provider.Availability) > 0 {
		score += 10
	}
	return score
}

// RankProviders orders the candidates for a request, best first. Providers
// that cannot serve the trade are dropped. Ties keep registration order.
func RankProviders(providers []model.Provider, request model.Request) []model.Candidate {
	candidates := make([]model.Candidate, 0, len(providers))
	for _, provider := range providers {
		score := scoreProvider(provider, request)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, model.Candidate{Provider: provider, Score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}
