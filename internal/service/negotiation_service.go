package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fixwise/negotiations/internal/config"
	"github.com/fixwise/negotiations/internal/model"
	"github.com/fixwise/negotiations/internal/negotiation"
	"github.com/fixwise/negotiations/internal/repository"
)

type ContractPDFGenerator interface {
	Generate(rec model.ContractRecord) ([]byte, error)
}

type RegisterGenerator interface {
	Generate(register model.ContractRegister) ([]byte, error)
}

type providerStore interface {
	Create(ctx context.Context, provider *model.Provider) (*model.Provider, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	List(ctx context.Context) ([]model.Provider, error)
	CreateRequest(ctx context.Context, request *model.Request) (*model.Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error
	CloseRequest(ctx context.Context, id uuid.UUID) error
}

type sessionStore interface {
	Create(ctx context.Context, sess *model.Session) (*model.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Update(ctx context.Context, sess *model.Session, previousRound int) error
	List(ctx context.Context, status *model.SessionStatus) ([]model.Session, error)
	CreateContract(ctx context.Context, rec *model.ContractRecord) (*model.ContractRecord, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.ContractRecord, error)
	ListContracts(ctx context.Context, from, to time.Time) ([]model.ContractRecord, error)
}

// NegotiationService orchestrates the bargaining engine over persisted
// requests, providers and sessions. The engine itself is pure; all state
// lives in the repositories and each advance owns its session row.
type NegotiationService struct {
	providers providerStore
	sessions  sessionStore
	pdf       ContractPDFGenerator
	excel     RegisterGenerator
	cfg       *config.Config
	log       zerolog.Logger
}

func NewNegotiationService(
	providers *repository.ProviderRepository,
	sessions *repository.SessionRepository,
	pdf ContractPDFGenerator,
	excel RegisterGenerator,
	cfg *config.Config,
	log zerolog.Logger,
) *NegotiationService {
	return &NegotiationService{
		providers: providers,
		sessions:  sessions,
		pdf:       pdf,
		excel:     excel,
		cfg:       cfg,
		log:       log,
	}
}

func (s *NegotiationService) policy() negotiation.Policy {
	return negotiation.Policy{
		MinDurationMinutes: s.cfg.Negotiation.MinDurationMinutes,
		AllowParts:         false,
		ConcessionCap:      s.cfg.Negotiation.ConcessionCap,
		AcceptScore:        s.cfg.Negotiation.AcceptScore,
	}
}

type RegisterProviderInput struct {
	Name         string
	Trades       []string
	Pricing      map[string]model.PriceBand
	FloorPrice   float64
	Location     model.GeoPoint
	Availability []negotiation.DaySlot
	Phone        string
	Principal    model.Principal
}

func (s *NegotiationService) RegisterProvider(ctx context.Context, input RegisterProviderInput) (*model.Provider, error) {
	if !(input.Principal.IsProvider() || input.Principal.IsAdmin()) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(input.Trades) == 0 {
		return nil, fmt.Errorf("%w: at least one trade is required", ErrInvalidInput)
	}
	if input.FloorPrice < 0 {
		return nil, fmt.Errorf("%w: floor price must be non-negative", ErrInvalidInput)
	}
	for _, slot := range input.Availability {
		if err := slot.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	for trade, band := range input.Pricing {
		if band.Min < 0 || band.Min > band.Max {
			return nil, fmt.Errorf("%w: pricing band for %s is invalid", ErrInvalidInput, trade)
		}
	}

	return s.providers.Create(ctx, &model.Provider{
		OwnerID:      input.Principal.UserID,
		Name:         input.Name,
		Trades:       input.Trades,
		Pricing:      input.Pricing,
		FloorPrice:   input.FloorPrice,
		Location:     input.Location,
		Availability: input.Availability,
		Phone:        input.Phone,
	})
}

func (s *NegotiationService) ListProviders(ctx context.Context) ([]model.Provider, error) {
	return s.providers.List(ctx)
}

type CreateRequestInput struct {
	RequesterID  uuid.UUID
	Trade        string
	BuyerName    string
	Location     model.GeoPoint
	Budget       negotiation.MoneyRange
	Availability []negotiation.DaySlot
	Job          negotiation.JobSpec
	Address      negotiation.Location
	Deadline     time.Time
	MaxVisits    int
	MaxRounds    int
	Principal    model.Principal
}

func (s *NegotiationService) CreateRequest(ctx context.Context, input CreateRequestInput) (*model.Request, error) {
	if !(input.Principal.IsBuyer() || input.Principal.IsAdmin()) {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(input.Trade) == "" {
		return nil, fmt.Errorf("%w: trade is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.BuyerName) == "" {
		return nil, fmt.Errorf("%w: buyer name is required", ErrInvalidInput)
	}
	if err := input.Budget.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.Deadline.IsZero() {
		return nil, fmt.Errorf("%w: deadline is required", ErrInvalidInput)
	}
	for _, slot := range input.Availability {
		if err := slot.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if input.MaxVisits < 1 {
		input.MaxVisits = 1
	}
	if input.MaxRounds < 1 {
		input.MaxRounds = s.cfg.Negotiation.MaxRounds
	}

	return s.providers.CreateRequest(ctx, &model.Request{
		RequesterID:  input.RequesterID,
		Trade:        input.Trade,
		BuyerName:    input.BuyerName,
		Location:     input.Location,
		Budget:       input.Budget,
		Availability: input.Availability,
		Job:          input.Job,
		Address:      input.Address,
		Deadline:     input.Deadline,
		MaxVisits:    input.MaxVisits,
		MaxRounds:    input.MaxRounds,
	})
}

func (s *NegotiationService) GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	request, err := s.providers.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return request, nil
}

// MatchProviders ranks registered providers against a request and returns
// the top candidates.
func (s *NegotiationService) MatchProviders(ctx context.Context, requestID uuid.UUID, limit int) ([]model.Candidate, error) {
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	providers, err := s.providers.List(ctx)
	if err != nil {
		return nil, err
	}
	candidates := RankProviders(providers, *request)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// buildInit assembles the immutable negotiation case for one
// request/provider pairing. Everything the engine computes later is
// relative to this value.
func (s *NegotiationService) buildInit(request *model.Request, provider *model.Provider) negotiation.NegotiationInit {
	floor := provider.FloorPrice
	buyerMax := request.Budget.Max
	return negotiation.NegotiationInit{
		RequestID: request.ID.String(),
		Buyer: negotiation.Party{
			Name:           request.BuyerName,
			Role:           negotiation.RoleBuyer,
			ReservationMax: &buyerMax,
		},
		Provider: negotiation.Party{
			Name:           provider.Name,
			Role:           negotiation.RoleProvider,
			ReservationMin: &floor,
		},
		Job:              request.Job,
		Location:         request.Address,
		WeekAvailability: request.Availability,
		Budget:           request.Budget,
		Window:           negotiation.Window{LatestCompletion: request.Deadline},
		Constraints: negotiation.Constraints{
			MaxVisits:      request.MaxVisits,
			OnSiteRequired: true,
		},
		Currency:  negotiation.DefaultCurrency,
		MaxRounds: request.MaxRounds,
	}
}

// OpenSession pairs a request with a provider and records the provider's
// round-1 offer. The buyer evaluates it on the first advance.
func (s *NegotiationService) OpenSession(ctx context.Context, requestID, providerID uuid.UUID, principal model.Principal) (*model.Session, error) {
	if !(principal.IsBuyer() || principal.IsAdmin()) {
		return nil, ErrPermissionDenied
	}
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && principal.UserID != request.RequesterID {
		return nil, ErrPermissionDenied
	}
	if request.Status == model.RequestStatusClosed {
		return nil, fmt.Errorf("%w: request is closed", ErrInvalidInput)
	}
	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !provider.Offers(request.Trade) {
		return nil, fmt.Errorf("%w: provider does not serve trade %s", ErrInvalidInput, request.Trade)
	}

	init := s.buildInit(request, provider)
	if err := init.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	opening := negotiation.ProposeInitialOffer(init, provider.Availability, provider.FloorPrice, s.policy())
	sess, err := s.sessions.Create(ctx, &model.Session{
		RequestID:  request.ID,
		ProviderID: provider.ID,
		Status:     model.SessionStatusActive,
		Round:      opening.Round,
		NextActor:  negotiation.RoleBuyer,
		LastOffer:  &opening,
		Log:        []model.RoundEntry{},
		Init:       init,
	})
	if err != nil {
		return nil, err
	}

	if request.Status == model.RequestStatusOpen {
		if err := s.providers.UpdateRequestStatus(ctx, request.ID, model.RequestStatusMatched); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("request_id", request.ID.String()).
		Str("provider_id", provider.ID.String()).
		Float64("opening_price", opening.Price).
		Msg("session opened")
	return sess, nil
}

// buyerBound is the hard ceiling a provider concedes toward.
func buyerBound(init negotiation.NegotiationInit) float64 {
	if init.Buyer.ReservationMax != nil {
		return *init.Buyer.ReservationMax
	}
	return init.Budget.Max
}

// decideRound evaluates the offer on the table for the acting side. An
// accepted offer must carry a slot to become a contract, so a slotless
// offer never clears the gate here even when its score does: the actor
// keeps countering for a schedule and rejects once rounds run out.
func decideRound(offer negotiation.Offer, init negotiation.NegotiationInit, actor negotiation.Party, providerFloor float64, policy negotiation.Policy) negotiation.Response {
	resp := negotiation.TerminalDecisionWithPolicy(offer, init, actor, providerFloor, offer.Round, policy)
	if resp.Decision != negotiation.DecisionAccept || len(offer.ProposedSlots) > 0 {
		return resp
	}
	if offer.Round >= init.MaxRounds {
		return negotiation.Reject(init.RequestID, offer.Round, "No feasible visit slot.")
	}
	bound := providerFloor
	if actor.Role == negotiation.RoleProvider {
		bound = buyerBound(init)
	}
	counter := negotiation.CounterOffer(offer, init, actor, bound, policy, nil)
	return negotiation.Counter(offer.Round, counter)
}

// authorizeActor admits the side whose turn it is: the request's owner for
// buyer turns, the provider profile's owner for provider turns. Admins act
// for either side.
func authorizeActor(principal model.Principal, request *model.Request, provider *model.Provider, side negotiation.Role) error {
	if principal.IsAdmin() {
		return nil
	}
	switch side {
	case negotiation.RoleBuyer:
		if principal.IsBuyer() && principal.UserID == request.RequesterID {
			return nil
		}
	case negotiation.RoleProvider:
		if principal.IsProvider() && principal.UserID == provider.OwnerID {
			return nil
		}
	}
	return ErrPermissionDenied
}

// authorizeParty admits anyone who is a party to the session, for
// operations that drive both sides at once.
func authorizeParty(principal model.Principal, request *model.Request, provider *model.Provider) error {
	if principal.IsAdmin() {
		return nil
	}
	if principal.IsBuyer() && principal.UserID == request.RequesterID {
		return nil
	}
	if principal.IsProvider() && principal.UserID == provider.OwnerID {
		return nil
	}
	return ErrPermissionDenied
}

func (s *NegotiationService) loadSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, *model.Request, *model.Provider, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrNotFound
		}
		return nil, nil, nil, err
	}
	request, err := s.GetRequest(ctx, sess.RequestID)
	if err != nil {
		return nil, nil, nil, err
	}
	provider, err := s.providers.GetByID(ctx, sess.ProviderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrNotFound
		}
		return nil, nil, nil, err
	}
	return sess, request, provider, nil
}

// AdvanceSession runs one exchange: the side on turn evaluates the offer on
// the table and either accepts (a contract is built and stored), rejects, or
// counters. Only that side's owner (or an admin) may call it.
func (s *NegotiationService) AdvanceSession(ctx context.Context, sessionID uuid.UUID, principal model.Principal) (*model.Session, error) {
	sess, request, provider, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(principal, request, provider, sess.NextActor); err != nil {
		return nil, err
	}
	return s.advance(ctx, sess, request, provider)
}

// RunToCompletion advances a session until it terminates, driving both
// sides. The caller must be a party to the session. The engine's round
// ceiling bounds the loop.
func (s *NegotiationService) RunToCompletion(ctx context.Context, sessionID uuid.UUID, principal model.Principal) (*model.Session, error) {
	sess, request, provider, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(principal, request, provider); err != nil {
		return nil, err
	}
	sess, err = s.advance(ctx, sess, request, provider)
	if err != nil {
		return nil, err
	}
	for !sess.Status.Terminal() {
		sess, err = s.advance(ctx, sess, request, provider)
		if err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// advance applies one exchange to a loaded session. The round guard in the
// repository keeps concurrent advances of the same session from
// double-applying.
func (s *NegotiationService) advance(ctx context.Context, sess *model.Session, request *model.Request, provider *model.Provider) (*model.Session, error) {
	if sess.Status.Terminal() {
		return nil, ErrSessionClosed
	}
	if sess.LastOffer == nil {
		return nil, fmt.Errorf("%w: session has no offer on the table", ErrInvalidInput)
	}

	init := sess.Init
	actor := init.Buyer
	if sess.NextActor == negotiation.RoleProvider {
		actor = init.Provider
	}
	floor := 0.0
	if init.Provider.ReservationMin != nil {
		floor = *init.Provider.ReservationMin
	}

	previousRound := sess.Round
	offer := *sess.LastOffer
	resp := decideRound(offer, init, actor, floor, s.policy())

	// A countering provider re-matches the schedule against its current
	// availability instead of carrying the previous slot forward.
	if resp.Decision == negotiation.DecisionCounter && actor.Role == negotiation.RoleProvider && len(provider.Availability) > 0 {
		counter := negotiation.CounterOffer(offer, init, actor, buyerBound(init), s.policy(), provider.Availability)
		resp = negotiation.Counter(offer.Round, counter)
	}

	// Accepting claims the request first, so of several open sessions only
	// one can conclude it. A lost claim means another session's contract
	// already covers the job.
	if resp.Decision == negotiation.DecisionAccept {
		if err := s.providers.CloseRequest(ctx, sess.RequestID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			resp = negotiation.Reject(init.RequestID, offer.Round, "Request already fulfilled.")
		}
	}

	entry := model.RoundEntry{
		Round:    offer.Round,
		Actor:    actor.Role,
		Offer:    offer,
		Decision: resp.Decision,
		Reason:   resp.Reason,
		At:       time.Now().UTC(),
	}
	sess.Log = append(sess.Log, entry)

	switch resp.Decision {
	case negotiation.DecisionAccept:
		rec, err := s.finalizeContract(ctx, sess, request, offer)
		if err != nil {
			return nil, err
		}
		sess.Status = model.SessionStatusAccepted
		s.log.Info().
			Str("session_id", sess.ID.String()).
			Str("contract_id", rec.ID.String()).
			Float64("price", offer.Price).
			Int("round", offer.Round).
			Msg("offer accepted")

	case negotiation.DecisionReject:
		sess.Status = model.SessionStatusRejected
		s.log.Info().
			Str("session_id", sess.ID.String()).
			Int("round", offer.Round).
			Str("reason", resp.Reason).
			Msg("negotiation rejected")

	case negotiation.DecisionCounter:
		sess.LastOffer = resp.Offer
		sess.Round = resp.Offer.Round
		sess.NextActor = actor.Role.Other()
	}

	if err := s.sessions.Update(ctx, sess, previousRound); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session advanced concurrently", ErrInvalidInput)
		}
		return nil, err
	}
	return sess, nil
}

func (s *NegotiationService) finalizeContract(ctx context.Context, sess *model.Session, request *model.Request, accepted negotiation.Offer) (*model.ContractRecord, error) {
	contractID := uuid.New()
	contract, err := negotiation.BuildContract(
		contractID.String(),
		sess.Init.RequestID,
		sess.Init.Buyer,
		sess.Init.Provider,
		sess.Init.Job,
		sess.Init.Location,
		accepted,
		s.cfg.Negotiation.ContractTerms,
		time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return s.sessions.CreateContract(ctx, &model.ContractRecord{
		ID:        contractID,
		SessionID: sess.ID,
		RequestID: sess.RequestID,
		Trade:     request.Trade,
		Buyer:     sess.Init.Buyer.Name,
		Provider:  sess.Init.Provider.Name,
		Price:     contract.Price,
		Rounds:    accepted.Round,
		Contract:  contract,
	})
}

func (s *NegotiationService) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *NegotiationService) ListSessions(ctx context.Context, status *model.SessionStatus) ([]model.Session, error) {
	return s.sessions.List(ctx, status)
}

func (s *NegotiationService) GetContract(ctx context.Context, id uuid.UUID) (*model.ContractRecord, error) {
	rec, err := s.sessions.GetContract(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *NegotiationService) ListContracts(ctx context.Context, from, to time.Time) ([]model.ContractRecord, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return nil, fmt.Errorf("%w: invalid period", ErrInvalidInput)
	}
	return s.sessions.ListContracts(ctx, from, to.Add(24*time.Hour))
}

type DocumentResult struct {
	FileName string
	Content  []byte
}

// ContractPDF renders the signed contract document.
func (s *NegotiationService) ContractPDF(ctx context.Context, id uuid.UUID) (*DocumentResult, error) {
	rec, err := s.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.Generate(*rec)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("contract-%s-%s.pdf",
		sanitizeFileName(rec.Provider), rec.CreatedAt.Format("20060102"))
	return &DocumentResult{FileName: name, Content: content}, nil
}

// ExportContractsXLSX builds the contracts register workbook for a period.
func (s *NegotiationService) ExportContractsXLSX(ctx context.Context, from, to time.Time, principal model.Principal) (*DocumentResult, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	from = dateOnly(from)
	to = dateOnly(to)
	records, err := s.ListContracts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoContracts
	}

	content, err := s.excel.Generate(model.ContractRegister{
		PeriodStart: from,
		PeriodEnd:   to,
		Records:     records,
	})
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("contracts-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	return &DocumentResult{FileName: name, Content: content}, nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
