package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler handles HTTP requests related to ledger entries.
type ledgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

// newLedgerHandler creates a new ledgerHandler.
func newLedgerHandler(ledgerService portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{
		ledgerService: ledgerService,
	}
}

// RegisterLedgerRoutes registers ledger entry routes on the v1 group.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newLedgerHandler(ledgerService)

	sessions := rg.Group("/session-logs")
	{
		sessions.POST("", middleware.RequireWriter(), h.recordSession)
		sessions.GET("", h.listSessions)
		sessions.POST("/:entryID/corrections", middleware.RequireWriter(), h.correctSession)
	}

	payments := rg.Group("/payment-logs")
	{
		payments.POST("", middleware.RequireWriter(), h.recordPayment)
		payments.GET("", h.listPayments)
		payments.POST("/:entryID/corrections", middleware.RequireWriter(), h.correctPayment)
	}

	entries := rg.Group("/entries")
	{
		entries.GET("/:entryID", h.getEntry)
		entries.GET("/:entryID/chain", h.getChain)
		entries.POST("/:entryID/void", middleware.RequireWriter(), h.voidEntry)
	}

	rg.GET("/parents/:parentID/balance", h.getBalance)
	rg.POST("/allocations/preview", h.previewAllocation)

	integrity := rg.Group("/integrity")
	{
		integrity.GET("/orphaned-charges", h.getOrphanedCharges)
		integrity.GET("/charge-sum-mismatches", h.getChargeSumMismatches)
	}
}

// respondLedgerError maps service errors to HTTP responses.
func respondLedgerError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrAllocation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAlreadyVoid), errors.Is(err, apperrors.ErrSuperseded), errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Conflicting ledger state", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.Error("Internal error handling ledger request", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// recordSession godoc
// @Summary Record a tutoring session log
// @Description Records a scheduled or custom session with its allocated charges
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   session body dto.RecordSessionRequest true "Session facts"
// @Success 201 {object} dto.EntryResponse "The recorded session log"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /session-logs [post]
func (h *ledgerHandler) recordSession(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for recordSession", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.ledgerService.RecordSession(c.Request.Context(), req, adminID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

// recordPayment godoc
// @Summary Record a payment log
// @Description Records a payment received from a parent
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   payment body dto.RecordPaymentRequest true "Payment facts"
// @Success 201 {object} dto.EntryResponse "The recorded payment log"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /payment-logs [post]
func (h *ledgerHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for recordPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.ledgerService.RecordPayment(c.Request.Context(), req, adminID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

// listSessions godoc
// @Summary List a parent's session logs
// @Tags ledger
// @Produce  json
// @Param   parentID query string true "Parent ID"
// @Param   limit query int false "Page size (default 20)"
// @Param   nextToken query string false "Pagination token"
// @Param   includeVoid query bool false "Include voided entries"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /session-logs [get]
func (h *ledgerHandler) listSessions(c *gin.Context) {
	h.listEntries(c, domain.KindSession)
}

// listPayments godoc
// @Summary List a parent's payment logs
// @Tags ledger
// @Produce  json
// @Param   parentID query string true "Parent ID"
// @Param   limit query int false "Page size (default 20)"
// @Param   nextToken query string false "Pagination token"
// @Param   includeVoid query bool false "Include voided entries"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /payment-logs [get]
func (h *ledgerHandler) listPayments(c *gin.Context) {
	h.listEntries(c, domain.KindPayment)
}

func (h *ledgerHandler) listEntries(c *gin.Context, kind domain.EntryKind) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for listEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	entries, nextToken, err := h.ledgerService.ListEntries(c.Request.Context(), kind, params)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListEntriesResponse{
		Entries:   dto.ToEntryResponses(entries),
		NextToken: nextToken,
	})
}

// getEntry godoc
// @Summary Get a ledger entry
// @Description Retrieves one ledger entry with its charges
// @Tags ledger
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Router /entries/{entryID} [get]
func (h *ledgerHandler) getEntry(c *gin.Context) {
	entryID := c.Param("entryID")

	entry, err := h.ledgerService.GetEntryByID(c.Request.Context(), entryID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// getChain godoc
// @Summary Get the correction chain of an entry
// @Description Returns every version of the logical billing event containing this entry, oldest first
// @Tags ledger
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Success 200 {object} dto.ChainResponse
// @Failure 404 {object} map[string]string "Entry not found"
// @Router /entries/{entryID}/chain [get]
func (h *ledgerHandler) getChain(c *gin.Context) {
	entryID := c.Param("entryID")

	chain, err := h.ledgerService.GetChain(c.Request.Context(), entryID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChainResponse{Entries: dto.ToEntryResponses(chain)})
}

// voidEntry godoc
// @Summary Void a ledger entry
// @Description Terminally voids an active entry without a replacement
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   entryID path string true "Entry ID"
// @Param   void body dto.VoidRequest true "Void reason"
// @Success 204 "Entry voided"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry already void or superseded"
// @Router /entries/{entryID}/void [post]
func (h *ledgerHandler) voidEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("entryID")

	var req dto.VoidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for voidEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.ledgerService.VoidEntry(c.Request.Context(), entryID, req.Reason, adminID); err != nil {
		respondLedgerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// correctSession godoc
// @Summary Correct a session log
// @Description Voids the target session log and records a replacement linked to it
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   entryID path string true "Entry ID being corrected"
// @Param   session body dto.RecordSessionRequest true "Replacement session facts"
// @Success 201 {object} dto.EntryResponse "The replacement entry"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry already void or superseded"
// @Router /session-logs/{entryID}/corrections [post]
func (h *ledgerHandler) correctSession(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("entryID")

	var req dto.CorrectSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for correctSession", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	replacement, err := h.ledgerService.CorrectSession(c.Request.Context(), entryID, req.RecordSessionRequest, adminID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntryResponse(replacement))
}

// correctPayment godoc
// @Summary Correct a payment log
// @Description Voids the target payment log and records a replacement linked to it
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   entryID path string true "Entry ID being corrected"
// @Param   payment body dto.RecordPaymentRequest true "Replacement payment facts"
// @Success 201 {object} dto.EntryResponse "The replacement entry"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry already void or superseded"
// @Router /payment-logs/{entryID}/corrections [post]
func (h *ledgerHandler) correctPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	entryID := c.Param("entryID")

	var req dto.CorrectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for correctPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	replacement, err := h.ledgerService.CorrectPayment(c.Request.Context(), entryID, req.RecordPaymentRequest, adminID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEntryResponse(replacement))
}

// getBalance godoc
// @Summary Get a parent's balance
// @Description Computes charged, paid and outstanding totals for a payer
// @Tags ledger
// @Produce  json
// @Param   parentID path string true "Parent ID"
// @Param   scope query string false "active (default) or all"
// @Success 200 {object} dto.BalanceResponse
// @Failure 404 {object} map[string]string "Parent not found"
// @Router /parents/{parentID}/balance [get]
func (h *ledgerHandler) getBalance(c *gin.Context) {
	parentID := c.Param("parentID")
	scope := c.DefaultQuery("scope", "active")
	if scope != "active" && scope != "all" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be 'active' or 'all'"})
		return
	}

	balance, err := h.ledgerService.GetPayerBalance(c.Request.Context(), parentID, scope == "active")
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		ParentID:     balance.ParentID,
		CurrencyCode: balance.CurrencyCode,
		TotalCharged: balance.TotalCharged,
		TotalPaid:    balance.TotalPaid,
		Balance:      balance.Balance,
		Scope:        scope,
	})
}

// previewAllocation godoc
// @Summary Preview a cost allocation
// @Description Runs the allocation engine for a total and attendee set without recording anything
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   preview body dto.AllocationPreviewRequest true "Total and attendees"
// @Success 200 {object} dto.AllocationPreviewResponse
// @Failure 400 {object} map[string]string "Invalid request or allocation error"
// @Router /allocations/preview [post]
func (h *ledgerHandler) previewAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.AllocationPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for previewAllocation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	charges, err := h.ledgerService.PreviewAllocation(c.Request.Context(), req.TotalCost, req.AttendeeIDs)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	resp := dto.AllocationPreviewResponse{TotalCost: req.TotalCost}
	resp.Charges = make([]dto.ChargeResponse, len(charges))
	for i, charge := range charges {
		resp.Charges[i] = dto.ChargeResponse{
			StudentID: charge.StudentID,
			ParentID:  charge.ParentID,
			Amount:    charge.Amount,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// getOrphanedCharges godoc
// @Summary List orphaned charges
// @Description Lists entry IDs of charges whose owning session log is missing
// @Tags integrity
// @Produce  json
// @Success 200 {object} map[string][]string
// @Router /integrity/orphaned-charges [get]
func (h *ledgerHandler) getOrphanedCharges(c *gin.Context) {
	entryIDs, err := h.ledgerService.FindOrphanedCharges(c.Request.Context())
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entryIDs": entryIDs})
}

// getChargeSumMismatches godoc
// @Summary List charge sum mismatches
// @Description Lists active costed session logs whose charges do not sum to the logged total
// @Tags integrity
// @Produce  json
// @Success 200 {object} map[string][]domain.IntegrityFinding
// @Router /integrity/charge-sum-mismatches [get]
func (h *ledgerHandler) getChargeSumMismatches(c *gin.Context) {
	findings, err := h.ledgerService.FindChargeSumMismatches(c.Request.Context())
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings})
}
