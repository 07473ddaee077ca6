package negotiation

// SessionState tracks where one negotiation stands from the owner's point of
// view. ACCEPTED and REJECTED are terminal; no transitions leave them.
type SessionState string

const (
	StateInitiated     SessionState = "INITIATED"
	StateOfferSent     SessionState = "OFFER_SENT"
	StateOfferReceived SessionState = "OFFER_RECEIVED"
	StateAccepted      SessionState = "ACCEPTED"
	StateRejected      SessionState = "REJECTED"
)

// Session is the caller-owned record of one negotiation: current state,
// round and last offer. The engine never keeps cross-round memory, so each
// transport or agent holds exactly one Session per counterpart and must
// serialize writes to it.
type Session struct {
	RequestID string
	State     SessionState
	Round     int
	LastOffer *Offer
}

func NewSession(requestID string) *Session {
	return &Session{RequestID: requestID, State: StateInitiated}
}

// Terminal reports whether the session reached ACCEPTED or REJECTED.
func (s *Session) Terminal() bool {
	return s.State == StateAccepted || s.State == StateRejected
}

// RecordSent transitions on an offer this side sent out. Rounds must advance
// by exactly one from the last recorded offer.
func (s *Session) RecordSent(offer Offer) error {
	return s.record(offer, StateOfferSent)
}

// RecordReceived transitions on an offer received from the counterpart.
func (s *Session) RecordReceived(offer Offer) error {
	return s.record(offer, StateOfferReceived)
}

func (s *Session) record(offer Offer, next SessionState) error {
	if s.Terminal() {
		return validationErr("state", "session %s is terminal", s.State)
	}
	if offer.RequestID != s.RequestID {
		return validationErr("request_id", "offer belongs to %q, session is %q", offer.RequestID, s.RequestID)
	}
	if offer.Round != s.Round+1 {
		return validationErr("round", "expected round %d, got %d", s.Round+1, offer.Round)
	}
	o := offer
	s.LastOffer = &o
	s.Round = offer.Round
	s.State = next
	return nil
}

// RecordOutcome applies a terminal decision. COUNTER responses go through
// RecordSent/RecordReceived with their offer payload instead.
func (s *Session) RecordOutcome(resp Response) error {
	if s.Terminal() {
		return validationErr("state", "session %s is terminal", s.State)
	}
	switch resp.Decision {
	case DecisionAccept:
		s.State = StateAccepted
	case DecisionReject:
		s.State = StateRejected
	default:
		return validationErr("decision", "%s is not a terminal decision", resp.Decision)
	}
	return nil
}
