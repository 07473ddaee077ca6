package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fixwise/negotiations/internal/http/middleware"
	"github.com/fixwise/negotiations/internal/model"
	"github.com/fixwise/negotiations/internal/negotiation"
	"github.com/fixwise/negotiations/internal/service"
)

type Handler struct {
	negotiations *service.NegotiationService
	log          zerolog.Logger
}

func NewHandler(negotiations *service.NegotiationService, log zerolog.Logger) *Handler {
	return &Handler{negotiations: negotiations, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/providers", h.registerProvider)
	protected.GET("/providers", h.listProviders)

	protected.POST("/requests", h.createRequest)
	protected.GET("/requests/:id", h.getRequest)
	protected.GET("/match/:request_id", h.matchProviders)

	protected.POST("/sessions", h.openSession)
	protected.POST("/sessions/:id/advance", h.advanceSession)
	protected.POST("/sessions/:id/run", h.runSession)
	protected.GET("/sessions/:id", h.getSession)
	protected.GET("/sessions", h.listSessions)

	protected.GET("/contracts", h.listContracts)
	protected.GET("/contracts/:id", h.getContract)
	protected.GET("/contracts/:id/pdf", h.contractPDF)
	protected.POST("/contracts/export", h.exportContracts)
}

type slotPayload struct {
	Day   string `json:"day" binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

func parseSlots(payloads []slotPayload) ([]negotiation.DaySlot, error) {
	slots := make([]negotiation.DaySlot, 0, len(payloads))
	for _, p := range payloads {
		slot, err := negotiation.NewDaySlot(negotiation.Weekday(p.Day), p.Start, p.End)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

type registerProviderRequest struct {
	Name         string                     `json:"name" binding:"required"`
	Trades       []string                   `json:"trades" binding:"required"`
	Pricing      map[string]model.PriceBand `json:"pricing"`
	FloorPrice   float64                    `json:"floor_price"`
	Location     model.GeoPoint             `json:"location"`
	Availability []slotPayload              `json:"availability"`
	Phone        string                     `json:"phone"`
}

type providerResponse struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	Trades       []string              `json:"trades"`
	Location     model.GeoPoint        `json:"location"`
	Availability []negotiation.DaySlot `json:"availability"`
	Phone        string                `json:"phone,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// toProviderResponse strips the private floor price from the profile.
func toProviderResponse(p model.Provider) providerResponse {
	return providerResponse{
		ID:           p.ID,
		Name:         p.Name,
		Trades:       p.Trades,
		Location:     p.Location,
		Availability: p.Availability,
		Phone:        p.Phone,
		CreatedAt:    p.CreatedAt,
	}
}

func (h *Handler) registerProvider(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req registerProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	availability, err := parseSlots(req.Availability)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider, err := h.negotiations.RegisterProvider(c.Request.Context(), service.RegisterProviderInput{
		Name:         req.Name,
		Trades:       req.Trades,
		Pricing:      req.Pricing,
		FloorPrice:   req.FloorPrice,
		Location:     req.Location,
		Availability: availability,
		Phone:        req.Phone,
		Principal:    principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProviderResponse(*provider))
}

func (h *Handler) listProviders(c *gin.Context) {
	providers, err := h.negotiations.ListProviders(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		result = append(result, toProviderResponse(p))
	}
	c.JSON(http.StatusOK, result)
}

type createRequestRequest struct {
	Trade        string                 `json:"trade" binding:"required"`
	BuyerName    string                 `json:"buyer_name" binding:"required"`
	Location     model.GeoPoint         `json:"location"`
	Budget       negotiation.MoneyRange `json:"budget" binding:"required"`
	Availability []slotPayload          `json:"availability"`
	Job          negotiation.JobSpec    `json:"job"`
	Address      negotiation.Location   `json:"address"`
	Deadline     string                 `json:"deadline" binding:"required"`
	MaxVisits    int                    `json:"max_visits"`
	MaxRounds    int                    `json:"max_rounds"`
}

func (h *Handler) createRequest(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deadline, err := parseDate(req.Deadline)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline"})
		return
	}
	availability, err := parseSlots(req.Availability)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.negotiations.CreateRequest(c.Request.Context(), service.CreateRequestInput{
		RequesterID:  principal.UserID,
		Trade:        req.Trade,
		BuyerName:    req.BuyerName,
		Location:     req.Location,
		Budget:       req.Budget,
		Availability: availability,
		Job:          req.Job,
		Address:      req.Address,
		Deadline:     deadline,
		MaxVisits:    req.MaxVisits,
		MaxRounds:    req.MaxRounds,
		Principal:    principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *Handler) getRequest(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	request, err := h.negotiations.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type candidateResponse struct {
	Provider providerResponse `json:"provider"`
	Score    float64          `json:"score"`
}

func (h *Handler) matchProviders(c *gin.Context) {
	requestID, err := parseID(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request_id"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	candidates, err := h.negotiations.MatchProviders(c.Request.Context(), requestID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := make([]candidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		result = append(result, candidateResponse{
			Provider: toProviderResponse(cand.Provider),
			Score:    cand.Score,
		})
	}
	c.JSON(http.StatusOK, result)
}

type openSessionRequest struct {
	RequestID  string `json:"request_id" binding:"required"`
	ProviderID string `json:"provider_id" binding:"required"`
}

func (h *Handler) openSession(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, err := parseID(req.RequestID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request_id"})
		return
	}
	providerID, err := parseID(req.ProviderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider_id"})
		return
	}

	sess, err := h.negotiations.OpenSession(c.Request.Context(), requestID, providerID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Handler) advanceSession(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	sess, err := h.negotiations.AdvanceSession(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) runSession(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	sess, err := h.negotiations.RunToCompletion(c.Request.Context(), id, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) getSession(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	sess, err := h.negotiations.GetSession(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) listSessions(c *gin.Context) {
	var status *model.SessionStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := parseSessionStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &parsed
	}

	sessions, err := h.negotiations.ListSessions(c.Request.Context(), status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) listContracts(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}

	records, err := h.negotiations.ListContracts(c.Request.Context(), from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) getContract(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	rec, err := h.negotiations.GetContract(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) contractPDF(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result, err := h.negotiations.ContractPDF(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

type exportContractsRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

func (h *Handler) exportContracts(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req exportContractsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseDate(req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_start"})
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_end"})
		return
	}

	result, err := h.negotiations.ExportContractsXLSX(c.Request.Context(), start, end, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, xlsxMIME, result.Content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoContracts):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(raw string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(raw))
}

func parseSessionStatus(raw string) (model.SessionStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(model.SessionStatusActive):
		return model.SessionStatusActive, nil
	case string(model.SessionStatusAccepted):
		return model.SessionStatusAccepted, nil
	case string(model.SessionStatusRejected):
		return model.SessionStatusRejected, nil
	default:
		return "", service.ErrInvalidInput
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
