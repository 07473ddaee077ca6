package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/negotiations")
	t.Setenv("JWT_ACCESS_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 7091, cfg.HTTP.Port)
	assert.Equal(t, 6, cfg.Negotiation.MaxRounds)
	assert.InDelta(t, 0.75, cfg.Negotiation.AcceptScore, 0.0001)
	assert.InDelta(t, 0.20, cfg.Negotiation.ConcessionCap, 0.0001)
	assert.Equal(t, 60, cfg.Negotiation.MinDurationMinutes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/negotiations")
	t.Setenv("JWT_ACCESS_SECRET", "test-secret")
	t.Setenv("NEGOTIATION_MAX_ROUNDS", "10")
	t.Setenv("NEGOTIATION_ACCEPT_SCORE", "0.8")
	t.Setenv("NEGOTIATION_CONTRACT_TERMS", "Payment due on completion.; Work warranted for 30 days.")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Negotiation.MaxRounds)
	assert.InDelta(t, 0.8, cfg.Negotiation.AcceptScore, 0.0001)
	assert.Equal(t, []string{
		"Payment due on completion.",
		"Work warranted for 30 days.",
	}, cfg.Negotiation.ContractTerms)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestLoadRejectsBadAcceptScore(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/negotiations")
	t.Setenv("JWT_ACCESS_SECRET", "test-secret")
	t.Setenv("NEGOTIATION_ACCEPT_SCORE", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEGOTIATION_ACCEPT_SCORE")
}
