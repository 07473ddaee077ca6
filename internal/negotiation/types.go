// Package negotiation implements the bargaining engine for service jobs:
// slot matching, offer scoring, bounded price concession and the
// round-limited accept/counter/reject decision flow. The package is pure:
// every call reads an immutable NegotiationInit plus the previous offer and
// produces new values, so callers own all session state and concurrency.
package negotiation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleProvider
}

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleBuyer {
		return RoleProvider
	}
	return RoleBuyer
}

type Weekday string

const (
	Mon Weekday = "Mon"
	Tue Weekday = "Tue"
	Wed Weekday = "Wed"
	Thu Weekday = "Thu"
	Fri Weekday = "Fri"
	Sat Weekday = "Sat"
	Sun Weekday = "Sun"
)

var weekdays = map[Weekday]struct{}{
	Mon: {}, Tue: {}, Wed: {}, Thu: {}, Fri: {}, Sat: {}, Sun: {},
}

// DaySlot is one weekly availability window in local time.
// Start and End hold "HH:MM" 24h clock values with Start < End.
type DaySlot struct {
	Day   Weekday `json:"day"`
	Start string  `json:"start"`
	End   string  `json:"end"`
}

// NewDaySlot validates the weekday tag and clock values.
func NewDaySlot(day Weekday, start, end string) (DaySlot, error) {
	s := DaySlot{Day: day, Start: start, End: end}
	if err := s.Validate(); err != nil {
		return DaySlot{}, err
	}
	return s, nil
}

func (s DaySlot) Validate() error {
	if _, ok := weekdays[s.Day]; !ok {
		return validationErr("day", "unknown weekday %q", s.Day)
	}
	start, err := ParseClock(s.Start)
	if err != nil {
		return validationErr("start", "%v", err)
	}
	end, err := ParseClock(s.End)
	if err != nil {
		return validationErr("end", "%v", err)
	}
	if start >= end {
		return validationErr("end", "slot end %s must be after start %s", s.End, s.Start)
	}
	return nil
}

// ParseClock converts an "HH:MM" value to minutes from midnight.
func ParseClock(v string) (int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock value %q is not HH:MM", v)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("clock value %q has invalid hour", v)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("clock value %q has invalid minute", v)
	}
	return hh*60 + mm, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MoneyRange is a budget band in the negotiation currency.
// Invariant: 0 <= Min <= Target <= Max, enforced at construction.
type MoneyRange struct {
	Min    float64 `json:"min"`
	Target float64 `json:"target"`
	Max    float64 `json:"max"`
}

func NewMoneyRange(min, target, max float64) (MoneyRange, error) {
	r := MoneyRange{Min: min, Target: target, Max: max}
	if err := r.Validate(); err != nil {
		return MoneyRange{}, err
	}
	return r, nil
}

func (r MoneyRange) Validate() error {
	if r.Min < 0 || r.Target < 0 || r.Max < 0 {
		return validationErr("budget", "money must be non-negative")
	}
	if r.Min > r.Target || r.Target > r.Max {
		return validationErr("budget", "target %.2f must lie in [%.2f, %.2f]", r.Target, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether price falls inside the band.
func (r MoneyRange) Contains(price float64) bool {
	return r.Min <= price && price <= r.Max
}

// Party is one side of the negotiation. Reservation bounds are the party's
// private walk-away limits and are never shown to the counterpart:
// a provider carries ReservationMin (minimum acceptable total), a buyer
// carries ReservationMax (maximum acceptable total).
type Party struct {
	Name           string   `json:"name"`
	Role           Role     `json:"role"`
	ReservationMin *float64 `json:"reservation_min,omitempty"`
	ReservationMax *float64 `json:"reservation_max,omitempty"`
}

func (p Party) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return validationErr("name", "party name is required")
	}
	if !p.Role.Valid() {
		return validationErr("role", "unknown role %q", p.Role)
	}
	if p.ReservationMin != nil && *p.ReservationMin < 0 {
		return validationErr("reservation_min", "money must be non-negative")
	}
	if p.ReservationMax != nil && *p.ReservationMax < 0 {
		return validationErr("reservation_max", "money must be non-negative")
	}
	return nil
}

type Location struct {
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
}

// JobSpec describes what the buyer wants done. Opaque to the engine.
type JobSpec struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Details  string `json:"details"`
}

// Window bounds when the job should be completed.
type Window struct {
	LatestCompletion time.Time  `json:"latest_completion"`
	EarliestStart    *time.Time `json:"earliest_start,omitempty"`
}

// Constraints are hard limits the engine will not violate.
type Constraints struct {
	MustFinishBy   *time.Time `json:"must_finish_by,omitempty"`
	MaxVisits      int        `json:"max_visits"`
	OnSiteRequired bool       `json:"on_site_required"`
	PartsIncluded  bool       `json:"parts_included"`
}

// NegotiationInit opens a negotiation case. It is created once per case and
// never mutated; every later computation is relative to it.
type NegotiationInit struct {
	RequestID        string      `json:"request_id"`
	Buyer            Party       `json:"buyer"`
	Provider         Party       `json:"provider"`
	Job              JobSpec     `json:"job"`
	Location         Location    `json:"location"`
	WeekAvailability []DaySlot   `json:"week_availability"`
	Budget           MoneyRange  `json:"budget"`
	Window           Window      `json:"window"`
	Constraints      Constraints `json:"constraints"`
	Currency         string      `json:"currency"`
	MaxRounds        int         `json:"max_rounds"`
}

const (
	DefaultCurrency  = "USD"
	DefaultMaxRounds = 6
)

func (init *NegotiationInit) Validate() error {
	if strings.TrimSpace(init.RequestID) == "" {
		return validationErr("request_id", "request id is required")
	}
	if err := init.Buyer.Validate(); err != nil {
		return err
	}
	if init.Buyer.Role != RoleBuyer {
		return validationErr("buyer", "party role must be buyer")
	}
	if err := init.Provider.Validate(); err != nil {
		return err
	}
	if init.Provider.Role != RoleProvider {
		return validationErr("provider", "party role must be provider")
	}
	for _, slot := range init.WeekAvailability {
		if err := slot.Validate(); err != nil {
			return err
		}
	}
	if err := init.Budget.Validate(); err != nil {
		return err
	}
	if init.Window.LatestCompletion.IsZero() {
		return validationErr("window", "latest completion is required")
	}
	if init.Constraints.MaxVisits < 1 {
		return validationErr("constraints", "max visits must be at least 1")
	}
	if init.Currency != DefaultCurrency {
		return validationErr("currency", "unsupported currency %q", init.Currency)
	}
	if init.MaxRounds < 1 {
		return validationErr("max_rounds", "max rounds must be at least 1")
	}
	return nil
}

// LineItem is an optional cost breakdown entry on an offer.
type LineItem struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Offer is one side's proposal for a single round. Rounds start at 1 and
// advance by exactly one per exchange.
type Offer struct {
	RequestID       string     `json:"request_id"`
	Round           int        `json:"round"`
	From            Role       `json:"from_party"`
	Price           float64    `json:"price"`
	ProposedSlots   []DaySlot  `json:"proposed_slots"`
	DurationMinutes int        `json:"duration_minutes"`
	IncludesParts   bool       `json:"includes_parts"`
	Notes           string     `json:"notes,omitempty"`
	LineItems       []LineItem `json:"line_items,omitempty"`
}

func (o *Offer) Validate() error {
	if strings.TrimSpace(o.RequestID) == "" {
		return validationErr("request_id", "request id is required")
	}
	if o.Round < 1 {
		return validationErr("round", "round numbering starts at 1")
	}
	if !o.From.Valid() {
		return validationErr("from_party", "unknown role %q", o.From)
	}
	if o.Price < 0 {
		return validationErr("price", "money must be non-negative")
	}
	for _, slot := range o.ProposedSlots {
		if err := slot.Validate(); err != nil {
			return err
		}
	}
	if o.DurationMinutes < 1 {
		return validationErr("duration_minutes", "duration must be positive")
	}
	for _, item := range o.LineItems {
		if item.Amount < 0 {
			return validationErr("line_items", "money must be non-negative")
		}
	}
	return nil
}

type Decision string

const (
	DecisionAccept  Decision = "ACCEPT"
	DecisionCounter Decision = "COUNTER"
	DecisionReject  Decision = "REJECT"
)

// Response is the closed outcome of evaluating a received offer. The Offer
// payload belongs to the COUNTER variant only; use the Accept, Counter and
// Reject constructors so the pairing cannot be built wrong.
type Response struct {
	RequestID string   `json:"request_id"`
	Round     int      `json:"round"`
	Decision  Decision `json:"decision"`
	Offer     *Offer   `json:"offer,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

func Accept(requestID string, round int, reason string) Response {
	return Response{RequestID: requestID, Round: round, Decision: DecisionAccept, Reason: reason}
}

func Reject(requestID string, round int, reason string) Response {
	return Response{RequestID: requestID, Round: round, Decision: DecisionReject, Reason: reason}
}

// Counter responds to the offer of round `round` with a fresh offer for the
// next round.
func Counter(round int, offer Offer) Response {
	return Response{RequestID: offer.RequestID, Round: round, Decision: DecisionCounter, Offer: &offer}
}

func (r *Response) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return validationErr("request_id", "request id is required")
	}
	if r.Round < 1 {
		return validationErr("round", "round numbering starts at 1")
	}
	switch r.Decision {
	case DecisionCounter:
		if r.Offer == nil {
			return validationErr("offer", "COUNTER requires an offer payload")
		}
		if r.Offer.Round != r.Round+1 {
			return validationErr("offer", "counter offer must advance the round by one")
		}
		return r.Offer.Validate()
	case DecisionAccept, DecisionReject:
		if r.Offer != nil {
			return validationErr("offer", "%s must not carry an offer payload", r.Decision)
		}
		return nil
	default:
		return validationErr("decision", "unknown decision %q", r.Decision)
	}
}

// Terminal reports whether the response ends the negotiation.
func (r *Response) Terminal() bool {
	return r.Decision == DecisionAccept || r.Decision == DecisionReject
}

// Contract is the binding agreement emitted on ACCEPT. Created exactly once
// per negotiation; no further offers are valid afterwards.
type Contract struct {
	ContractID      string    `json:"contract_id"`
	RequestID       string    `json:"request_id"`
	Buyer           Party     `json:"buyer"`
	Provider        Party     `json:"provider"`
	Job             JobSpec   `json:"job"`
	Location        Location  `json:"location"`
	ScheduledSlot   DaySlot   `json:"scheduled_slot"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	IncludesParts   bool      `json:"includes_parts"`
	Currency        string    `json:"currency"`
	Terms           []string  `json:"terms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Policy is the deterministic strategy each side follows.
type Policy struct {
	MinDurationMinutes int
	AllowParts         bool
	// ConcessionCap bounds per-round price movement to a fraction of the
	// current price (default 20%).
	ConcessionCap float64
	// AcceptScore is the scorer threshold gating acceptance.
	AcceptScore float64
}

func DefaultPolicy() Policy {
	return Policy{
		MinDurationMinutes: 60,
		AllowParts:         false,
		ConcessionCap:      0.20,
		AcceptScore:        0.75,
	}
}

func (p Policy) Validate() error {
	if p.MinDurationMinutes < 1 {
		return validationErr("min_duration_minutes", "duration must be positive")
	}
	if p.ConcessionCap <= 0 || p.ConcessionCap > 1 {
		return validationErr("concession_cap", "cap must be in (0, 1]")
	}
	if p.AcceptScore <= 0 || p.AcceptScore > 1 {
		return validationErr("accept_score", "threshold %v out of range", p.AcceptScore)
	}
	return nil
}
