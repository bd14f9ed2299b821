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

	"github.com/rodavia/transport-settlements/internal/http/middleware"
	"github.com/rodavia/transport-settlements/internal/model"
	"github.com/rodavia/transport-settlements/internal/service"
)

type Handler struct {
	settlements *service.SettlementService
	contracts   *service.ContractService
	expenses    *service.ExpenseService
	payables    *service.PayableService
	log         zerolog.Logger
}

func NewHandler(
	settlements *service.SettlementService,
	contracts *service.ContractService,
	expenses *service.ExpenseService,
	payables *service.PayableService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		settlements: settlements,
		contracts:   contracts,
		expenses:    expenses,
		payables:    payables,
		log:         log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/settlements", h.generateSettlement)
	protected.POST("/settlements/preview", h.previewSettlement)
	protected.GET("/settlements", h.listSettlements)
	protected.GET("/settlements/:id", h.getSettlement)
	protected.POST("/settlements/:id/approve", h.approveSettlement)
	protected.POST("/settlements/:id/reject", h.rejectSettlement)
	protected.GET("/settlements/:id/pdf", h.settlementPDF)
	protected.GET("/settlements/:id/export", h.settlementExcel)
	protected.POST("/settlements/:id/send", h.sendSettlement)

	protected.GET("/expenses/pending", h.pendingExpenses)

	protected.GET("/contracts/:id", h.getContract)
	protected.POST("/contracts/:id/charge", h.chargeContract)
	protected.POST("/contracts/:id/budget", h.adjustContractBudget)

	protected.GET("/payables", h.listPayables)
	protected.GET("/payables/:id", h.getPayable)
	protected.POST("/payables/:id/state", h.advancePayable)
}

type generateSettlementRequest struct {
	ServiceRequestIDs []string `json:"service_request_ids" binding:"required"`
	OperationalIDs    []string `json:"operational_expense_ids"`
	PreoperationalIDs []string `json:"preoperational_expense_ids"`
	Notes             string   `json:"notes"`
}

func (h *Handler) generateSettlement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req generateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestIDs, err := parseIDs(req.ServiceRequestIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_request_ids"})
		return
	}
	operationalIDs, err := parseIDs(req.OperationalIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operational_expense_ids"})
		return
	}
	preoperationalIDs, err := parseIDs(req.PreoperationalIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preoperational_expense_ids"})
		return
	}

	settlement, err := h.settlements.Generate(c.Request.Context(), service.GenerateInput{
		RequestIDs:        requestIDs,
		OperationalIDs:    operationalIDs,
		PreoperationalIDs: preoperationalIDs,
		Notes:             req.Notes,
		Principal:         principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, settlement)
}

type previewSettlementRequest struct {
	ServiceRequestIDs []string `json:"service_request_ids" binding:"required"`
}

func (h *Handler) previewSettlement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req previewSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestIDs, err := parseIDs(req.ServiceRequestIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_request_ids"})
		return
	}

	preview, err := h.settlements.Preview(c.Request.Context(), service.PreviewInput{
		RequestIDs: requestIDs,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) listSettlements(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	filter := model.SettlementFilter{
		CompanyID: principal.CompanyID,
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "page_size", 20),
	}
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		state := model.SettlementState(raw)
		filter.State = &state
	}
	if from, err := parseDate(c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := parseDate(c.Query("to")); err == nil {
		filter.To = &to
	}

	settlements, total, err := h.settlements.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": settlements,
		"total": total,
		"page":  filter.Page,
	})
}

func (h *Handler) getSettlement(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	settlement, err := h.settlements.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

type transitionRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) approveSettlement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req transitionRequest
	_ = c.ShouldBindJSON(&req)

	settlement, err := h.settlements.Approve(c.Request.Context(), id, principal, req.Notes)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) rejectSettlement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req transitionRequest
	_ = c.ShouldBindJSON(&req)

	settlement, err := h.settlements.Reject(c.Request.Context(), id, principal, req.Notes)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

func (h *Handler) settlementPDF(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	result, err := h.settlements.RenderPDF(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) settlementExcel(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	result, err := h.settlements.ExportExcel(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

type sendSettlementRequest struct {
	Recipient string `json:"recipient"`
}

func (h *Handler) sendSettlement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req sendSettlementRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.settlements.SendToClient(c.Request.Context(), id, req.Recipient, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) pendingExpenses(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	vehicleIDs, err := parseIDs(splitQuery(c.Query("vehicle_ids")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle_ids"})
		return
	}

	pending, err := h.expenses.AggregateUnliquidated(c.Request.Context(), vehicleIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operational":          pending.Operational,
		"preoperational":       pending.Preoperational,
		"operational_total":    pending.OperationalTotal(),
		"preoperational_total": pending.PreoperationalTotal(),
	})
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type chargeContractRequest struct {
	Amount           float64 `json:"amount" binding:"required"`
	Mode             string  `json:"mode" binding:"required"`
	ServiceRequestID string  `json:"service_request_id"`
	Notes            string  `json:"notes"`
}

func (h *Handler) chargeContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req chargeContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.ChargeInput{
		ContractID: id,
		Amount:     req.Amount,
		Mode:       model.ChargeMode(req.Mode),
		Notes:      req.Notes,
		Principal:  principal,
	}
	if raw := strings.TrimSpace(req.ServiceRequestID); raw != "" {
		requestID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_request_id"})
			return
		}
		input.ServiceRequestID = &requestID
	}

	contract, err := h.contracts.Charge(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type adjustBudgetRequest struct {
	NewCap *float64 `json:"new_cap"`
	Notes  string   `json:"notes"`
}

func (h *Handler) adjustContractBudget(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req adjustBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.AdjustBudget(c.Request.Context(), service.AdjustBudgetInput{
		ContractID: id,
		NewCap:     req.NewCap,
		Notes:      req.Notes,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) listPayables(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	payeeID, err := uuid.Parse(strings.TrimSpace(c.Query("payee_id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payee_id"})
		return
	}

	accounts, err := h.payables.ListByPayee(c.Request.Context(), principal.CompanyID, payeeID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": accounts})
}

func (h *Handler) getPayable(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	account, err := h.payables.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

type advancePayableRequest struct {
	State string `json:"state" binding:"required"`
}

func (h *Handler) advancePayable(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req advancePayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.payables.Advance(c.Request.Context(), id, model.PayableState(req.State), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitQuery(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
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
