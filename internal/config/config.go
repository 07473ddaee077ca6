package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

// NegotiationConfig externalizes the bargaining defaults. ContractTerms is
// the boilerplate attached to every contract.
type NegotiationConfig struct {
	MaxRounds          int
	AcceptScore        float64
	ConcessionCap      float64
	MinDurationMinutes int
	ContractTerms      []string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Negotiation NegotiationConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Negotiation: NegotiationConfig{
			MaxRounds:          v.GetInt("NEGOTIATION_MAX_ROUNDS"),
			AcceptScore:        v.GetFloat64("NEGOTIATION_ACCEPT_SCORE"),
			ConcessionCap:      v.GetFloat64("NEGOTIATION_CONCESSION_CAP"),
			MinDurationMinutes: v.GetInt("NEGOTIATION_MIN_DURATION_MINUTES"),
			ContractTerms:      parseList(v.GetString("NEGOTIATION_CONTRACT_TERMS")),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7091
	}
	if cfg.Negotiation.MaxRounds == 0 {
		cfg.Negotiation.MaxRounds = 6
	}
	if cfg.Negotiation.AcceptScore == 0 {
		cfg.Negotiation.AcceptScore = 0.75
	}
	if cfg.Negotiation.ConcessionCap == 0 {
		cfg.Negotiation.ConcessionCap = 0.20
	}
	if cfg.Negotiation.MinDurationMinutes == 0 {
		cfg.Negotiation.MinDurationMinutes = 60
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Negotiation.MaxRounds < 1 {
		return fmt.Errorf("NEGOTIATION_MAX_ROUNDS must be at least 1")
	}
	if cfg.Negotiation.AcceptScore <= 0 || cfg.Negotiation.AcceptScore > 1 {
		return fmt.Errorf("NEGOTIATION_ACCEPT_SCORE must be in (0, 1]")
	}
	if cfg.Negotiation.ConcessionCap <= 0 || cfg.Negotiation.ConcessionCap > 1 {
		return fmt.Errorf("NEGOTIATION_CONCESSION_CAP must be in (0, 1]")
	}
	return nil
}

// parseList splits a semicolon-separated env value. Contract terms contain
// commas, so the usual comma separator does not work here.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ";")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
