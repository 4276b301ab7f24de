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

// adminHandler handles HTTP requests related to admin account governance.
type adminHandler struct {
	governanceService portssvc.GovernanceSvcFacade
}

// newAdminHandler creates a new adminHandler.
func newAdminHandler(governanceService portssvc.GovernanceSvcFacade) *adminHandler {
	return &adminHandler{
		governanceService: governanceService,
	}
}

// registerAdminRoutes registers admin governance routes on the v1 group.
func registerAdminRoutes(rg *gin.RouterGroup, governanceService portssvc.GovernanceSvcFacade) {
	h := newAdminHandler(governanceService)

	admins := rg.Group("/admins")
	{
		admins.POST("", h.createAdmin)
		admins.GET("", h.listAdmins)
		admins.GET("/:adminID", h.getAdmin)
		admins.PUT("/:adminID/privilege", h.updatePrivilege)
		admins.DELETE("/:adminID", h.deleteAdmin)
		admins.POST("/master-transfer", h.transferMaster)
	}
}

// respondGovernanceError maps governance errors to HTTP responses.
func respondGovernanceError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Admin account not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrLastMaster), errors.Is(err, apperrors.ErrDuplicateMaster),
		errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Governance conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Internal error handling governance request", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// createAdmin godoc
// @Summary Create an admin account
// @Description Creates a READONLY or NORMAL admin account; only the Master may do this
// @Tags admins
// @Accept  json
// @Produce  json
// @Param   admin body dto.CreateAdminRequest true "Account details"
// @Success 201 {object} dto.AdminResponse
// @Failure 403 {object} map[string]string "Caller is not the Master"
// @Router /admins [post]
func (h *adminHandler) createAdmin(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createAdmin", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actorID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	admin, err := h.governanceService.CreateAdmin(c.Request.Context(), req, actorID)
	if err != nil {
		respondGovernanceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAdminResponse(admin))
}

// listAdmins godoc
// @Summary List admin accounts
// @Tags admins
// @Produce  json
// @Success 200 {array} dto.AdminResponse
// @Router /admins [get]
func (h *adminHandler) listAdmins(c *gin.Context) {
	admins, err := h.governanceService.ListAdmins(c.Request.Context())
	if err != nil {
		respondGovernanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAdminResponses(admins))
}

// getAdmin godoc
// @Summary Get an admin account
// @Tags admins
// @Produce  json
// @Param   adminID path string true "Admin ID"
// @Success 200 {object} dto.AdminResponse
// @Failure 404 {object} map[string]string "Admin not found"
// @Router /admins/{adminID} [get]
func (h *adminHandler) getAdmin(c *gin.Context) {
	admin, err := h.governanceService.GetAdminByID(c.Request.Context(), c.Param("adminID"))
	if err != nil {
		respondGovernanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAdminResponse(admin))
}

// updatePrivilege godoc
// @Summary Update an admin's privilege
// @Description Changes privilege between READONLY and NORMAL; Master moves require a transfer
// @Tags admins
// @Accept  json
// @Produce  json
// @Param   adminID path string true "Admin ID"
// @Param   privilege body dto.UpdatePrivilegeRequest true "New privilege"
// @Success 204 "Privilege updated"
// @Failure 409 {object} map[string]string "Would violate the single-Master invariant"
// @Router /admins/{adminID}/privilege [put]
func (h *adminHandler) updatePrivilege(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.UpdatePrivilegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updatePrivilege", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actorID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.governanceService.UpdatePrivilege(c.Request.Context(), c.Param("adminID"), domain.PrivilegeLevel(req.Privilege), actorID)
	if err != nil {
		respondGovernanceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// deleteAdmin godoc
// @Summary Delete an admin account
// @Tags admins
// @Produce  json
// @Param   adminID path string true "Admin ID"
// @Success 204 "Account deleted"
// @Failure 409 {object} map[string]string "Cannot delete the Master account"
// @Router /admins/{adminID} [delete]
func (h *adminHandler) deleteAdmin(c *gin.Context) {
	actorID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.governanceService.DeleteAdmin(c.Request.Context(), c.Param("adminID"), actorID); err != nil {
		respondGovernanceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// transferMaster godoc
// @Summary Transfer the Master privilege
// @Description Atomically demotes the current Master and promotes the target account
// @Tags admins
// @Accept  json
// @Produce  json
// @Param   transfer body dto.TransferMasterRequest true "Source and target accounts"
// @Success 204 "Privilege transferred"
// @Failure 403 {object} map[string]string "Caller is not the current Master"
// @Router /admins/master-transfer [post]
func (h *adminHandler) transferMaster(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.TransferMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for transferMaster", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	actorID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.governanceService.TransferMaster(c.Request.Context(), req.FromAdminID, req.ToAdminID, actorID); err != nil {
		respondGovernanceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
