package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'request_status') THEN
			CREATE TYPE request_status AS ENUM ('OPEN', 'MATCHED', 'CLOSED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'session_status') THEN
			CREATE TYPE session_status AS ENUM ('ACTIVE', 'ACCEPTED', 'REJECTED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS providers (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_id UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		trades JSONB NOT NULL DEFAULT '[]',
		pricing JSONB NOT NULL DEFAULT '{}',
		floor_price NUMERIC(18,2) NOT NULL,
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lon DOUBLE PRECISION NOT NULL DEFAULT 0,
		availability JSONB NOT NULL DEFAULT '[]',
		phone VARCHAR(32),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS requests (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		requester_id UUID NOT NULL,
		trade VARCHAR(64) NOT NULL,
		buyer_name VARCHAR(255) NOT NULL,
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lon DOUBLE PRECISION NOT NULL DEFAULT 0,
		budget_min NUMERIC(18,2) NOT NULL,
		budget_target NUMERIC(18,2) NOT NULL,
		budget_max NUMERIC(18,2) NOT NULL,
		availability JSONB NOT NULL DEFAULT '[]',
		job JSONB NOT NULL DEFAULT '{}',
		address JSONB NOT NULL DEFAULT '{}',
		deadline TIMESTAMPTZ NOT NULL,
		max_visits INT NOT NULL DEFAULT 1,
		max_rounds INT NOT NULL DEFAULT 6,
		status request_status NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		request_id UUID NOT NULL REFERENCES requests(id),
		provider_id UUID NOT NULL REFERENCES providers(id),
		status session_status NOT NULL DEFAULT 'ACTIVE',
		round INT NOT NULL DEFAULT 0,
		next_actor VARCHAR(16) NOT NULL,
		last_offer JSONB,
		log JSONB NOT NULL DEFAULT '[]',
		init JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_request_id ON sessions (request_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_provider_id ON sessions (provider_id);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions (status);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		session_id UUID NOT NULL REFERENCES sessions(id),
		request_id UUID NOT NULL REFERENCES requests(id),
		trade VARCHAR(64) NOT NULL,
		buyer VARCHAR(255) NOT NULL,
		provider VARCHAR(255) NOT NULL,
		price NUMERIC(18,2) NOT NULL,
		rounds INT NOT NULL,
		contract JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_session_id ON contracts (session_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_trade ON contracts (trade);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_created_at ON contracts (created_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
