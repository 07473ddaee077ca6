package negotiation

import "time"

// DefaultTerms is the boilerplate attached to contracts when the caller
// supplies none. Deployments override it through configuration.
var DefaultTerms = []string{
	"Provider will perform the specified work professionally and safely.",
	"Payment due at completion unless otherwise agreed in writing.",
	"Cancellations require 12-hour notice.",
	"Any extra parts beyond initial estimate require written approval.",
}

// BuildContract materializes the binding agreement from an accepted offer.
// The scheduled slot is the first entry of the offer's proposed slots; an
// accepted offer without any proposed slot is a construction error, never
// silently replaced with a placeholder.
func BuildContract(contractID, requestID string, buyer, provider Party, job JobSpec, location Location, offer Offer, terms []string, now time.Time) (Contract, error) {
	if len(offer.ProposedSlots) == 0 {
		return Contract{}, validationErr("scheduled_slot", "accepted offer proposes no slot")
	}
	if err := offer.Validate(); err != nil {
		return Contract{}, err
	}
	if len(terms) == 0 {
		terms = DefaultTerms
	}
	return Contract{
		ContractID:      contractID,
		RequestID:       requestID,
		Buyer:           buyer,
		Provider:        provider,
		Job:             job,
		Location:        location,
		ScheduledSlot:   offer.ProposedSlots[0],
		DurationMinutes: offer.DurationMinutes,
		Price:           offer.Price,
		IncludesParts:   offer.IncludesParts,
		Currency:        DefaultCurrency,
		Terms:           append([]string(nil), terms...),
		CreatedAt:       now.UTC(),
	}, nil
}
