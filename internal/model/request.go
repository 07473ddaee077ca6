package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixwise/negotiations/internal/negotiation"
)

type RequestStatus string

const (
	RequestStatusOpen    RequestStatus = "OPEN"
	RequestStatusMatched RequestStatus = "MATCHED"
	RequestStatusClosed  RequestStatus = "CLOSED"
)

// Request is a buyer's service request: who asks, what trade, and the
// negotiation parameters every session opened for it starts from.
type Request struct {
	ID           uuid.UUID              `json:"id"`
	RequesterID  uuid.UUID              `json:"requester_id"`
	Trade        string                 `json:"trade"`
	BuyerName    string                 `json:"buyer_name"`
	Location     GeoPoint               `json:"location"`
	Budget       negotiation.MoneyRange `json:"budget"`
	Availability []negotiation.DaySlot  `json:"availability"`
	Job          negotiation.JobSpec    `json:"job"`
	Address      negotiation.Location   `json:"address"`
	Deadline     time.Time              `json:"deadline"`
	MaxVisits    int                    `json:"max_visits"`
	MaxRounds    int                    `json:"max_rounds"`
	Status       RequestStatus          `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
}
