package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// backfillHandler handles idempotent historical reconstruction runs.
type backfillHandler struct {
	backfillService portssvc.BackfillSvcFacade
}

// newBackfillHandler creates a new backfillHandler.
func newBackfillHandler(backfillService portssvc.BackfillSvcFacade) *backfillHandler {
	return &backfillHandler{
		backfillService: backfillService,
	}
}

// registerBackfillRoutes registers the backfill routes on the v1 group.
func registerBackfillRoutes(rg *gin.RouterGroup, backfillService portssvc.BackfillSvcFacade) {
	h := newBackfillHandler(backfillService)
	rg.POST("/backfill/run", middleware.RequireWriter(), h.run)
}

// run godoc
// @Summary Run a ledger backfill
// @Description Reconstructs ledger history from a snapshot of pre-ledger records; re-running the same snapshot creates nothing new
// @Tags backfill
// @Accept  json
// @Produce  json
// @Param   snapshot body dto.BackfillSnapshot true "Historical records"
// @Success 200 {object} dto.BackfillReport
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /backfill/run [post]
func (h *backfillHandler) run(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var snapshot dto.BackfillSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		logger.Warn("Failed to bind JSON for backfill run", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	report, err := h.backfillService.Run(c.Request.Context(), snapshot, adminID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
