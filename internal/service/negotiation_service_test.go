package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fixwise/negotiations/internal/config"
	"github.com/fixwise/negotiations/internal/model"
	"github.com/fixwise/negotiations/internal/negotiation"
)

type fakeProviderStore struct {
	providers map[uuid.UUID]model.Provider
	requests  map[uuid.UUID]model.Request
}

func newFakeProviderStore() *fakeProviderStore {
	return &fakeProviderStore{
		providers: make(map[uuid.UUID]model.Provider),
		requests:  make(map[uuid.UUID]model.Request),
	}
}

func (f *fakeProviderStore) Create(_ context.Context, provider *model.Provider) (*model.Provider, error) {
	p := *provider
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	f.providers[p.ID] = p
	return &p, nil
}

func (f *fakeProviderStore) GetByID(_ context.Context, id uuid.UUID) (*model.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeProviderStore) List(_ context.Context) ([]model.Provider, error) {
	result := make([]model.Provider, 0, len(f.providers))
	for _, p := range f.providers {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeProviderStore) CreateRequest(_ context.Context, request *model.Request) (*model.Request, error) {
	r := *request
	r.ID = uuid.New()
	r.Status = model.RequestStatusOpen
	r.CreatedAt = time.Now().UTC()
	f.requests[r.ID] = r
	return &r, nil
}

func (f *fakeProviderStore) GetRequest(_ context.Context, id uuid.UUID) (*model.Request, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f *fakeProviderStore) UpdateRequestStatus(_ context.Context, id uuid.UUID, status model.RequestStatus) error {
	r, ok := f.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Status = status
	f.requests[id] = r
	return nil
}

func (f *fakeProviderStore) CloseRequest(_ context.Context, id uuid.UUID) error {
	r, ok := f.requests[id]
	if !ok || r.Status == model.RequestStatusClosed {
		return gorm.ErrRecordNotFound
	}
	r.Status = model.RequestStatusClosed
	f.requests[id] = r
	return nil
}

type fakeSessionStore struct {
	sessions  map[uuid.UUID]model.Session
	contracts map[uuid.UUID]model.ContractRecord
	bySession map[uuid.UUID]uuid.UUID
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[uuid.UUID]model.Session),
		contracts: make(map[uuid.UUID]model.ContractRecord),
		bySession: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeSessionStore) Create(_ context.Context, sess *model.Session) (*model.Session, error) {
	s := *sess
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	f.sessions[s.ID] = s
	return &s, nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (f *fakeSessionStore) Update(_ context.Context, sess *model.Session, previousRound int) error {
	stored, ok := f.sessions[sess.ID]
	if !ok || stored.Round != previousRound {
		return gorm.ErrRecordNotFound
	}
	s := *sess
	s.UpdatedAt = time.Now().UTC()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) List(_ context.Context, status *model.SessionStatus) ([]model.Session, error) {
	result := make([]model.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		if status == nil || s.Status == *status {
			result = append(result, s)
		}
	}
	return result, nil
}

func (f *fakeSessionStore) CreateContract(_ context.Context, rec *model.ContractRecord) (*model.ContractRecord, error) {
	if _, exists := f.bySession[rec.SessionID]; exists {
		return nil, gorm.ErrDuplicatedKey
	}
	r := *rec
	r.CreatedAt = time.Now().UTC()
	f.contracts[r.ID] = r
	f.bySession[r.SessionID] = r.ID
	return &r, nil
}

func (f *fakeSessionStore) GetContract(_ context.Context, id uuid.UUID) (*model.ContractRecord, error) {
	r, ok := f.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f *fakeSessionStore) ListContracts(_ context.Context, _, _ time.Time) ([]model.ContractRecord, error) {
	result := make([]model.ContractRecord, 0, len(f.contracts))
	for _, r := range f.contracts {
		result = append(result, r)
	}
	return result, nil
}

func newTestService() (*NegotiationService, *fakeProviderStore, *fakeSessionStore) {
	cfg := &config.Config{
		Negotiation: config.NegotiationConfig{
			MaxRounds:          6,
			AcceptScore:        0.75,
			ConcessionCap:      0.20,
			MinDurationMinutes: 60,
		},
	}
	fp := newFakeProviderStore()
	fs := newFakeSessionStore()
	svc := &NegotiationService{providers: fp, sessions: fs, cfg: cfg, log: zerolog.Nop()}
	return svc, fp, fs
}

func buyerPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.PrincipalRoleBuyer}
}

func providerPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.PrincipalRoleProvider}
}

func registerTestProvider(t *testing.T, svc *NegotiationService, owner model.Principal, floor float64, availability []negotiation.DaySlot) *model.Provider {
	t.Helper()
	provider, err := svc.RegisterProvider(context.Background(), RegisterProviderInput{
		Name:         "Marcus Plumbing",
		Trades:       []string{"plumbing"},
		Pricing:      map[string]model.PriceBand{"plumbing": {Min: floor, Max: floor + 40}},
		FloorPrice:   floor,
		Location:     almaty,
		Availability: availability,
		Principal:    owner,
	})
	require.NoError(t, err)
	return provider
}

func createTestRequest(t *testing.T, svc *NegotiationService, buyer model.Principal) *model.Request {
	t.Helper()
	budget, err := negotiation.NewMoneyRange(40, 60, 80)
	require.NoError(t, err)
	request, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		RequesterID: buyer.UserID,
		Trade:       "plumbing",
		BuyerName:   "Dana",
		Location:    almaty,
		Budget:      budget,
		Availability: []negotiation.DaySlot{
			{Day: negotiation.Tue, Start: "09:00", End: "12:00"},
		},
		Job:       negotiation.JobSpec{Category: "plumbing", Summary: "Leaking sink"},
		Deadline:  time.Now().AddDate(0, 0, 14),
		MaxVisits: 1,
		MaxRounds: 6,
		Principal: buyer,
	})
	require.NoError(t, err)
	return request
}

func decideInit(floor float64) negotiation.NegotiationInit {
	budget, _ := negotiation.NewMoneyRange(40, 60, 80)
	buyerMax := budget.Max
	return negotiation.NegotiationInit{
		RequestID: "req-100",
		Buyer: negotiation.Party{
			Name:           "Dana",
			Role:           negotiation.RoleBuyer,
			ReservationMax: &buyerMax,
		},
		Provider: negotiation.Party{
			Name:           "Marcus Plumbing",
			Role:           negotiation.RoleProvider,
			ReservationMin: &floor,
		},
		WeekAvailability: []negotiation.DaySlot{
			{Day: negotiation.Tue, Start: "09:00", End: "12:00"},
		},
		Budget:    budget,
		Currency:  negotiation.DefaultCurrency,
		MaxRounds: 6,
	}
}

func TestDecideRoundSlotlessOfferNeverAccepted(t *testing.T) {
	init := decideInit(50)
	policy := negotiation.DefaultPolicy()

	offer := negotiation.ProposeInitialOffer(init, nil, 50, policy)
	require.Empty(t, offer.ProposedSlots)

	// The score gate alone would let this offer through.
	require.GreaterOrEqual(t, negotiation.ScoreOffer(offer, init, 50), policy.AcceptScore)

	actor := init.Buyer
	resp := decideRound(offer, init, actor, 50, policy)
	for resp.Decision == negotiation.DecisionCounter {
		require.NotNil(t, resp.Offer)
		offer = *resp.Offer
		if actor.Role == negotiation.RoleBuyer {
			actor = init.Provider
		} else {
			actor = init.Buyer
		}
		resp = decideRound(offer, init, actor, 50, policy)
	}

	assert.Equal(t, negotiation.DecisionReject, resp.Decision)
	assert.Equal(t, "No feasible visit slot.", resp.Reason)
	assert.GreaterOrEqual(t, resp.Round, init.MaxRounds)
}

func TestDecideRoundSlotlessRejectsAtCeiling(t *testing.T) {
	init := decideInit(50)
	offer := negotiation.Offer{
		RequestID:       init.RequestID,
		Round:           init.MaxRounds,
		From:            negotiation.RoleProvider,
		Price:           60,
		DurationMinutes: 60,
	}

	resp := decideRound(offer, init, init.Buyer, 50, negotiation.DefaultPolicy())
	assert.Equal(t, negotiation.DecisionReject, resp.Decision)
}

func TestDecideRoundAcceptsWithSlot(t *testing.T) {
	init := decideInit(50)
	offer := negotiation.Offer{
		RequestID: init.RequestID,
		Round:     1,
		From:      negotiation.RoleProvider,
		Price:     60,
		ProposedSlots: []negotiation.DaySlot{
			{Day: negotiation.Tue, Start: "09:00", End: "10:00"},
		},
		DurationMinutes: 60,
	}

	resp := decideRound(offer, init, init.Buyer, 50, negotiation.DefaultPolicy())
	assert.Equal(t, negotiation.DecisionAccept, resp.Decision)
}

func TestRunToCompletionSlotlessSessionTerminates(t *testing.T) {
	svc, fp, fs := newTestService()
	buyer := buyerPrincipal()
	owner := providerPrincipal()
	ctx := context.Background()

	provider := registerTestProvider(t, svc, owner, 50, nil)
	request := createTestRequest(t, svc, buyer)

	sess, err := svc.OpenSession(ctx, request.ID, provider.ID, buyer)
	require.NoError(t, err)
	require.NotNil(t, sess.LastOffer)
	require.Empty(t, sess.LastOffer.ProposedSlots)

	sess, err = svc.RunToCompletion(ctx, sess.ID, buyer)
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusRejected, sess.Status)
	assert.Empty(t, fs.contracts)
	require.NotEmpty(t, sess.Log)
	last := sess.Log[len(sess.Log)-1]
	assert.Equal(t, negotiation.DecisionReject, last.Decision)
	assert.Equal(t, "No feasible visit slot.", last.Reason)
	assert.NotEqual(t, model.RequestStatusClosed, fp.requests[request.ID].Status)

	_, err = svc.AdvanceSession(ctx, sess.ID, buyer)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestAuthorizeActor(t *testing.T) {
	buyer := buyerPrincipal()
	owner := providerPrincipal()
	request := &model.Request{RequesterID: buyer.UserID}
	provider := &model.Provider{OwnerID: owner.UserID}

	assert.NoError(t, authorizeActor(buyer, request, provider, negotiation.RoleBuyer))
	assert.NoError(t, authorizeActor(owner, request, provider, negotiation.RoleProvider))

	admin := model.Principal{UserID: uuid.New(), Role: model.PrincipalRoleAdmin}
	assert.NoError(t, authorizeActor(admin, request, provider, negotiation.RoleBuyer))
	assert.NoError(t, authorizeActor(admin, request, provider, negotiation.RoleProvider))

	assert.ErrorIs(t, authorizeActor(buyerPrincipal(), request, provider, negotiation.RoleBuyer), ErrPermissionDenied)
	assert.ErrorIs(t, authorizeActor(providerPrincipal(), request, provider, negotiation.RoleProvider), ErrPermissionDenied)
	assert.ErrorIs(t, authorizeActor(buyer, request, provider, negotiation.RoleProvider), ErrPermissionDenied)
	assert.ErrorIs(t, authorizeActor(owner, request, provider, negotiation.RoleBuyer), ErrPermissionDenied)
}

func TestAuthorizeParty(t *testing.T) {
	buyer := buyerPrincipal()
	owner := providerPrincipal()
	request := &model.Request{RequesterID: buyer.UserID}
	provider := &model.Provider{OwnerID: owner.UserID}

	assert.NoError(t, authorizeParty(buyer, request, provider))
	assert.NoError(t, authorizeParty(owner, request, provider))
	assert.ErrorIs(t, authorizeParty(buyerPrincipal(), request, provider), ErrPermissionDenied)
	assert.ErrorIs(t, authorizeParty(providerPrincipal(), request, provider), ErrPermissionDenied)
}

func TestAdvanceSessionRequiresSessionParty(t *testing.T) {
	svc, _, _ := newTestService()
	buyer := buyerPrincipal()
	owner := providerPrincipal()
	ctx := context.Background()

	availability := []negotiation.DaySlot{
		{Day: negotiation.Tue, Start: "09:00", End: "12:00"},
	}
	// Floor above the budget keeps the opening offer unacceptable, so the
	// buyer counters and the provider gets a turn.
	provider := registerTestProvider(t, svc, owner, 90, availability)
	request := createTestRequest(t, svc, buyer)

	sess, err := svc.OpenSession(ctx, request.ID, provider.ID, buyer)
	require.NoError(t, err)
	require.Equal(t, negotiation.RoleBuyer, sess.NextActor)

	_, err = svc.AdvanceSession(ctx, sess.ID, buyerPrincipal())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.AdvanceSession(ctx, sess.ID, owner)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	sess, err = svc.AdvanceSession(ctx, sess.ID, buyer)
	require.NoError(t, err)
	require.Equal(t, negotiation.RoleProvider, sess.NextActor)

	_, err = svc.AdvanceSession(ctx, sess.ID, providerPrincipal())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = svc.AdvanceSession(ctx, sess.ID, buyer)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.AdvanceSession(ctx, sess.ID, owner)
	require.NoError(t, err)
}

func TestOpenSessionRequiresRequester(t *testing.T) {
	svc, _, _ := newTestService()
	buyer := buyerPrincipal()
	owner := providerPrincipal()
	ctx := context.Background()

	provider := registerTestProvider(t, svc, owner, 50, nil)
	request := createTestRequest(t, svc, buyer)

	_, err := svc.OpenSession(ctx, request.ID, provider.ID, buyerPrincipal())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.OpenSession(ctx, request.ID, provider.ID, buyer)
	assert.NoError(t, err)
}

func TestAcceptClaimsRequestOnce(t *testing.T) {
	svc, fp, fs := newTestService()
	buyer := buyerPrincipal()
	ctx := context.Background()

	availability := []negotiation.DaySlot{
		{Day: negotiation.Tue, Start: "09:00", End: "12:00"},
	}
	first := registerTestProvider(t, svc, providerPrincipal(), 50, availability)
	second := registerTestProvider(t, svc, providerPrincipal(), 50, availability)
	request := createTestRequest(t, svc, buyer)

	sessA, err := svc.OpenSession(ctx, request.ID, first.ID, buyer)
	require.NoError(t, err)
	sessB, err := svc.OpenSession(ctx, request.ID, second.ID, buyer)
	require.NoError(t, err)

	sessA, err = svc.AdvanceSession(ctx, sessA.ID, buyer)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusAccepted, sessA.Status)
	require.Len(t, fs.contracts, 1)
	assert.Equal(t, model.RequestStatusClosed, fp.requests[request.ID].Status)

	sessB, err = svc.AdvanceSession(ctx, sessB.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusRejected, sessB.Status)
	assert.Len(t, fs.contracts, 1)
	require.NotEmpty(t, sessB.Log)
	assert.Equal(t, "Request already fulfilled.", sessB.Log[len(sessB.Log)-1].Reason)
}
