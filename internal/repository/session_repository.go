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

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionRow struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	ProviderID uuid.UUID
	Status     model.SessionStatus
	Round      int
	NextActor  string
	LastOffer  []byte
	Log        []byte
	Init       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r sessionRow) toModel() (*model.Session, error) {
	sess := &model.Session{
		ID:         r.ID,
		RequestID:  r.RequestID,
		ProviderID: r.ProviderID,
		Status:     r.Status,
		Round:      r.Round,
		NextActor:  negotiation.Role(r.NextActor),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if len(r.LastOffer) > 0 && string(r.LastOffer) != "null" {
		var offer negotiation.Offer
		if err := json.Unmarshal(r.LastOffer, &offer); err != nil {
			return nil, fmt.Errorf("decode session last offer: %w", err)
		}
		sess.LastOffer = &offer
	}
	if err := json.Unmarshal(r.Log, &sess.Log); err != nil {
		return nil, fmt.Errorf("decode session log: %w", err)
	}
	if err := json.Unmarshal(r.Init, &sess.Init); err != nil {
		return nil, fmt.Errorf("decode session init: %w", err)
	}
	return sess, nil
}

func marshalSession(sess *model.Session) (lastOffer *string, log, init string, err error) {
	if sess.LastOffer != nil {
		raw, err := json.Marshal(sess.LastOffer)
		if err != nil {
			return nil, "", "", err
		}
		s := string(raw)
		lastOffer = &s
	}
	if sess.Log == nil {
		sess.Log = []model.RoundEntry{}
	}
	rawLog, err := json.Marshal(sess.Log)
	if err != nil {
		return nil, "", "", err
	}
	rawInit, err := json.Marshal(sess.Init)
	if err != nil {
		return nil, "", "", err
	}
	return lastOffer, string(rawLog), string(rawInit), nil
}

func (r *SessionRepository) Create(ctx context.Context, sess *model.Session) (*model.Session, error) {
	lastOffer, log, init, err := marshalSession(sess)
	if err != nil {
		return nil, err
	}

	var row sessionRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO sessions (request_id, provider_id, status, round, next_actor, last_offer, log, init)
		VALUES (?, ?, ?, ?, ?, ?::jsonb, ?::jsonb, ?::jsonb)
		RETURNING id, request_id, provider_id, status, round, next_actor, last_offer, log, init, created_at, updated_at
	`,
		sess.RequestID,
		sess.ProviderID,
		sess.Status,
		sess.Round,
		string(sess.NextActor),
		lastOffer,
		log,
		init,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, request_id, provider_id, status, round, next_actor, last_offer, log, init, created_at, updated_at
		FROM sessions
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

// Update persists the session after one advance. The WHERE clause on round
// guards against concurrent writers advancing the same session twice.
func (r *SessionRepository) Update(ctx context.Context, sess *model.Session, previousRound int) error {
	lastOffer, log, _, err := marshalSession(sess)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Exec(`
		UPDATE sessions
		SET status = ?, round = ?, next_actor = ?, last_offer = ?::jsonb, log = ?::jsonb, updated_at = NOW()
		WHERE id = ? AND round = ?
	`,
		sess.Status,
		sess.Round,
		string(sess.NextActor),
		lastOffer,
		log,
		sess.ID,
		previousRound,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context, status *model.SessionStatus) ([]model.Session, error) {
	query := r.db.WithContext(ctx).Raw(`
		SELECT id, request_id, provider_id, status, round, next_actor, last_offer, log, init, created_at, updated_at
		FROM sessions
		ORDER BY created_at DESC
	`)
	if status != nil {
		query = r.db.WithContext(ctx).Raw(`
			SELECT id, request_id, provider_id, status, round, next_actor, last_offer, log, init, created_at, updated_at
			FROM sessions
			WHERE status = ?
			ORDER BY created_at DESC
		`, *status)
	}

	var rows []sessionRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(rows))
	for _, row := range rows {
		sess, err := row.toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

type contractRow struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	RequestID uuid.UUID
	Trade     string
	Buyer     string
	Provider  string
	Price     float64
	Rounds    int
	Contract  []byte
	CreatedAt time.Time
}

func (r contractRow) toModel() (*model.ContractRecord, error) {
	rec := &model.ContractRecord{
		ID:        r.ID,
		SessionID: r.SessionID,
		RequestID: r.RequestID,
		Trade:     r.Trade,
		Buyer:     r.Buyer,
		Provider:  r.Provider,
		Price:     r.Price,
		Rounds:    r.Rounds,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal(r.Contract, &rec.Contract); err != nil {
		return nil, fmt.Errorf("decode contract payload: %w", err)
	}
	return rec, nil
}

func (r *SessionRepository) CreateContract(ctx context.Context, rec *model.ContractRecord) (*model.ContractRecord, error) {
	payload, err := json.Marshal(rec.Contract)
	if err != nil {
		return nil, err
	}

	// The id comes from the caller so it matches the contract_id embedded
	// in the document payload.
	var row contractRow
	err = r.db.WithContext(ctx).Raw(`
		INSERT INTO contracts (id, session_id, request_id, trade, buyer, provider, price, rounds, contract)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?::jsonb)
		RETURNING id, session_id, request_id, trade, buyer, provider, price, rounds, contract, created_at
	`,
		rec.ID,
		rec.SessionID,
		rec.RequestID,
		rec.Trade,
		rec.Buyer,
		rec.Provider,
		rec.Price,
		rec.Rounds,
		string(payload),
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *SessionRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.ContractRecord, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, session_id, request_id, trade, buyer, provider, price, rounds, contract, created_at
		FROM contracts
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

func (r *SessionRepository) GetContractBySession(ctx context.Context, sessionID uuid.UUID) (*model.ContractRecord, error) {
	var row contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, session_id, request_id, trade, buyer, provider, price, rounds, contract, created_at
		FROM contracts
		WHERE session_id = ?
		LIMIT 1
	`, sessionID).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toModel()
}

func (r *SessionRepository) ListContracts(ctx context.Context, from, to time.Time) ([]model.ContractRecord, error) {
	var rows []contractRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, session_id, request_id, trade, buyer, provider, price, rounds, contract, created_at
		FROM contracts
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at
	`, from, to).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]model.ContractRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
