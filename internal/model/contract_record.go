package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/fixwise/negotiations/internal/negotiation"
)

// ContractRecord is the persisted form of a finalized contract along with
// the columns the register export reports on.
type ContractRecord struct {
	ID        uuid.UUID            `json:"id"`
	SessionID uuid.UUID            `json:"session_id"`
	RequestID uuid.UUID            `json:"request_id"`
	Trade     string               `json:"trade"`
	Buyer     string               `json:"buyer"`
	Provider  string               `json:"provider"`
	Price     float64              `json:"price"`
	Rounds    int                  `json:"rounds"`
	Contract  negotiation.Contract `json:"contract"`
	CreatedAt time.Time            `json:"created_at"`
}

// ContractRegister is the input of the xlsx register export: all contracts
// concluded in a period, grouped per trade on separate sheets.
type ContractRegister struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Records     []ContractRecord
}

// TradeGroups splits the records per trade, preserving record order.
func (r ContractRegister) TradeGroups() map[string][]ContractRecord {
	groups := make(map[string][]ContractRecord)
	for _, rec := range r.Records {
		groups[rec.Trade] = append(groups[rec.Trade], rec)
	}
	return groups
}

// TotalValue sums the contract prices in the register.
func (r ContractRegister) TotalValue() float64 {
	total := 0.0
	for _, rec := range r.Records {
		total += rec.Price
	}
	return total
}
