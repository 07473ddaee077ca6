package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fixwise/negotiations/internal/model"
	"github.com/fixwise/negotiations/internal/negotiation"
)

type ProviderRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

type providerRow struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	Trades       []byte
	Pricing      []byte
	FloorPrice   float64
	Lat          float64
	Lon          float64
	Availability []byte
	Phone        *string
	CreatedAt    time.Time
}

func (r providerRow) toModel() (*model.Provider, error) {
	p := &model.Provider{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Name:       r.Name,
		FloorPrice: r.FloorPrice,
		Location:   model.GeoPoint{Lat: r.Lat, Lon: r.Lon},
		CreatedAt:  r.CreatedAt,
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if err := json.Unmarshal(r.Trades, &p.Trades); err != nil {
		return nil, fmt.Errorf("decode provider trades: %w", err)
	}
	if err := json.Unmarshal(r.Pricing, &p.Pricing); err != nil {
		return nil, fmt.Errorf("decode provider pricing: %w", err)
	}
	if err := json.Unmarshal(r.Availability, &p.Availability); err != nil {
		return nil, fmt.Errorf("decode provider availability: %w", err)
	}
	return p, nil
}

func (r *ProviderRepository) Create(ctx context.Context, provider *model.Provider) (*model.Provider, error) {
	trades, err := json.Marshal(provider.Trades)
	if err != nil {
		return nil, err
	}
	pricing, err := json.Marshal(provider.Pricing)
	if err != nil {
		return nil, err
	}
	availability, err := json.Marshal(provider.Availability)
	if err != nil {
		return nil, err
	}

	var row providerRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO providers (owner_id, name, trades, pricing, floor_price, lat, lon, availability, phone)
		VALUES (?, ?, ?::jsonb, ?::jsonb, ?, ?, ?, ?::jsonb, ?)
		RETURNING id, owner_id, name, trades, pricing, floor_price, lat, lon, availability, phone, created_at
	`,
		provider.OwnerID,
		provider.Name,
		string(trades),
		string(pricing),
		provider.FloorPrice,
		provider.Location.Lat,
		provider.Location.Lon,
		string(availability),
		provider.Phone,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var row providerRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, owner_id, name, trades, pricing, floor_price, lat, lon, availability, phone, created_at
		FROM providers
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toModel()
}

func (r *ProviderRepository) List(ctx context.Context) ([]model.Provider, error) {
	var rows []providerRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, owner_id, name, trades, pricing, floor_price, lat, lon, availability, phone, created_at
		FROM providers
		ORDER BY created_at
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	providers := make([]model.Provider, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		providers = append(providers, *p)
	}
	return providers, nil
}

type requestRow struct {
	ID           uuid.UUID
	RequesterID  uuid.UUID
	Trade        string
	BuyerName    string
	Lat          float64
	Lon          float64
	BudgetMin    float64
	BudgetTarget float64
	BudgetMax    float64
	Availability []byte
	Job          []byte
	Address      []byte
	Deadline     time.Time
	MaxVisits    int
	MaxRounds    int
	Status       model.RequestStatus
	CreatedAt    time.Time
}

func (r requestRow) toModel() (*model.Request, error) {
	budget, err := negotiation.NewMoneyRange(r.BudgetMin, r.BudgetTarget, r.BudgetMax)
	if err != nil {
		return nil, fmt.Errorf("stored budget invalid: %w", err)
	}
	req := &model.Request{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		Trade:       r.Trade,
		BuyerName:   r.BuyerName,
		Location:    model.GeoPoint{Lat: r.Lat, Lon: r.Lon},
		Budget:      budget,
		Deadline:    r.Deadline,
		MaxVisits:   r.MaxVisits,
		MaxRounds:   r.MaxRounds,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
	if err := json.Unmarshal(r.Availability, &req.Availability); err != nil {
		return nil, fmt.Errorf("decode request availability: %w", err)
	}
	if err := json.Unmarshal(r.Job, &req.Job); err != nil {
		return nil, fmt.Errorf("decode request job: %w", err)
	}
	if err := json.Unmarshal(r.Address, &req.Address); err != nil {
		return nil, fmt.Errorf("decode request address: %w", err)
	}
	return req, nil
}

func (r *ProviderRepository) CreateRequest(ctx context.Context, request *model.Request) (*model.Request, error) {
	availability, err := json.Marshal(request.Availability)
	if err != nil {
		return nil, err
	}
	job, err := json.Marshal(request.Job)
	if err != nil {
		return nil, err
	}
	address, err := json.Marshal(request.Address)
	if err != nil {
		return nil, err
	}

	var row requestRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO requests (
			requester_id, trade, buyer_name, lat, lon,
			budget_min, budget_target, budget_max,
			availability, job, address, deadline, max_visits, max_rounds, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?::jsonb, ?::jsonb, ?::jsonb, ?, ?, ?, ?)
		RETURNING
			id, requester_id, trade, buyer_name, lat, lon,
			budget_min, budget_target, budget_max,
			availability, job, address, deadline, max_visits, max_rounds, status, created_at
	`,
		request.RequesterID,
		request.Trade,
		request.BuyerName,
		request.Location.Lat,
		request.Location.Lon,
		request.Budget.Min,
		request.Budget.Target,
		request.Budget.Max,
		string(availability),
		string(job),
		string(address),
		request.Deadline,
		request.MaxVisits,
		request.MaxRounds,
		model.RequestStatusOpen,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *ProviderRepository) GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var row requestRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id, requester_id, trade, buyer_name, lat, lon,
			budget_min, budget_target, budget_max,
			availability, job, address, deadline, max_visits, max_rounds, status, created_at
		FROM requests
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toModel()
}

func (r *ProviderRepository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE requests SET status = ? WHERE id = ?
	`, status, id).Error
}

// CloseRequest marks the request fulfilled. The status guard makes the
// close a one-time claim: a request already closed reports
// gorm.ErrRecordNotFound and the caller must not store a contract for it.
func (r *ProviderRepository) CloseRequest(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE requests SET status = ? WHERE id = ? AND status <> ?
	`, model.RequestStatusClosed, id, model.RequestStatusClosed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
