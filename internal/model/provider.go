package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixwise/negotiations/internal/negotiation"
)

// GeoPoint is a WGS84 coordinate used for proximity ranking.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PriceBand is a provider's advertised range for one trade.
type PriceBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Provider is a registered service provider profile. OwnerID is the user
// who registered it and the only one who may act for it. FloorPrice is the
// provider's private reservation minimum and must not leak through listing
// endpoints.
type Provider struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	Trades       []string
	Pricing      map[string]PriceBand
	FloorPrice   float64
	Location     GeoPoint
	Availability []negotiation.DaySlot
	Phone        string
	CreatedAt    time.Time
}

// Offers reports whether the provider covers the given trade.
func (p *Provider) Offers(trade string) bool {
	for _, t := range p.Trades {
		if t == trade {
			return true
		}
	}
	return false
}

// Candidate is a ranked match of a provider against a request.
type Candidate struct {
	Provider Provider
	Score    float64
}
