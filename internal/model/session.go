package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixwise/negotiations/internal/negotiation"
)

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusAccepted SessionStatus = "ACCEPTED"
	SessionStatusRejected SessionStatus = "REJECTED"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionStatusAccepted || s == SessionStatusRejected
}

// RoundEntry is one logged exchange within a session: the offer on the
// table and the responder's decision on it.
type RoundEntry struct {
	Round    int                  `json:"round"`
	Actor    negotiation.Role     `json:"actor"`
	Offer    negotiation.Offer    `json:"offer"`
	Decision negotiation.Decision `json:"decision"`
	Reason   string               `json:"reason,omitempty"`
	At       time.Time            `json:"at"`
}

// Session is one persisted negotiation between a request and a provider.
// NextActor is the side that evaluates LastOffer on the next advance. The
// row is owned by a single writer per advance; the engine itself keeps no
// state between rounds.
type Session struct {
	ID         uuid.UUID                   `json:"id"`
	RequestID  uuid.UUID                   `json:"request_id"`
	ProviderID uuid.UUID                   `json:"provider_id"`
	Status     SessionStatus               `json:"status"`
	Round      int                         `json:"round"`
	NextActor  negotiation.Role            `json:"next_actor"`
	LastOffer  *negotiation.Offer          `json:"last_offer,omitempty"`
	Log        []RoundEntry                `json:"log"`
	Init       negotiation.NegotiationInit `json:"init"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}
