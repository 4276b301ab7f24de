package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
	"github.com/efficienttutor/tuition_ledger_app/internal/platform/config"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils"
	"github.com/gin-gonic/gin"
)

// authHandler handles authentication and first-run bootstrap.
type authHandler struct {
	cfg               *config.Config
	governanceService portssvc.GovernanceSvcFacade
}

// newAuthHandler creates a new authHandler.
func newAuthHandler(cfg *config.Config, governanceService portssvc.GovernanceSvcFacade) *authHandler {
	return &authHandler{
		cfg:               cfg,
		governanceService: governanceService,
	}
}

// registerAuthRoutes registers the public authentication routes.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	h := newAuthHandler(cfg, services.Governance)

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", h.login)
		auth.POST("/bootstrap-master", h.bootstrapMaster)
	}
}

// login godoc
// @Summary Authenticate an admin
// @Description Verifies credentials and returns a signed token
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   credentials body dto.LoginRequest true "Admin credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *authHandler) login(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for login", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	admin, err := h.governanceService.Authenticate(c.Request.Context(), req.AdminID, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		logger.Error("Failed to authenticate admin", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := utils.GenerateAdminJWT(admin.AdminID, string(admin.Privilege), h.cfg.JWTSecret, h.cfg.JWTExpiryDuration, h.cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to sign token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     token,
		AdminID:   admin.AdminID,
		Privilege: string(admin.Privilege),
	})
}

// bootstrapMaster godoc
// @Summary Bootstrap the first Master account
// @Description Creates the initial Master admin on a fresh deployment; fails once any Master exists
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   master body dto.BootstrapMasterRequest true "Master account details"
// @Success 201 {object} dto.AdminResponse
// @Failure 409 {object} map[string]string "A Master account already exists"
// @Router /auth/bootstrap-master [post]
func (h *authHandler) bootstrapMaster(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.BootstrapMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for bootstrapMaster", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	admin, err := h.governanceService.BootstrapMaster(c.Request.Context(), req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateMaster) {
			c.JSON(http.StatusConflict, gin.H{"error": "A master account already exists"})
			return
		}
		respondGovernanceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAdminResponse(admin))
}
