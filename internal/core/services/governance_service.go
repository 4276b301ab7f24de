package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/services"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfDemotion       = errors.New("an admin cannot change their own privilege")
)

// governanceService manages admin accounts under the single-Master
// invariant. The invariant itself is enforced transactionally in the
// repository; this layer adds actor authorization and input validation.
type governanceService struct {
	adminRepo portsrepo.AdminRepositoryFacade
}

// NewGovernanceService creates a new GovernanceService.
func NewGovernanceService(adminRepo portsrepo.AdminRepositoryFacade) portssvc.GovernanceSvcFacade {
	return &governanceService{adminRepo: adminRepo}
}

var _ portssvc.GovernanceSvcFacade = (*governanceService)(nil)

// requireMaster verifies that the acting admin holds Master privilege.
func (s *governanceService) requireMaster(ctx context.Context, actorID string) (*domain.AdminAccount, error) {
	actor, err := s.adminRepo.FindAdminByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find acting admin %s: %w", actorID, err)
	}
	if actor.Privilege != domain.PrivilegeMaster {
		return nil, fmt.Errorf("%w: only the master admin may manage accounts", apperrors.ErrForbidden)
	}
	return actor, nil
}

// CreateAdmin creates a READONLY or NORMAL admin account.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) CreateAdmin(ctx context.Context, req dto.CreateAdminRequest, actorID string) (*domain.AdminAccount, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.requireMaster(ctx, actorID); err != nil {
		return nil, err
	}

	privilege := domain.PrivilegeLevel(req.Privilege)
	if !privilege.Valid() || privilege == domain.PrivilegeMaster {
		return nil, fmt.Errorf("%w: privilege %q cannot be granted at creation", apperrors.ErrValidation, req.Privilege)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", apperrors.ErrInternal)
	}

	now := time.Now().UTC()
	admin := domain.AdminAccount{
		AdminID:      uuid.NewString(),
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Privilege:    privilege,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.adminRepo.CreateAdmin(ctx, admin); err != nil {
		logger.Error("Failed to create admin account", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("Admin account created", slog.String("admin_id", admin.AdminID), slog.String("privilege", string(privilege)))
	return &admin, nil
}

// BootstrapMaster creates the very first Master account. No actor check:
// this runs before any account exists, guarded transactionally against a
// second Master by the repository.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) BootstrapMaster(ctx context.Context, displayName, password string) (*domain.AdminAccount, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if displayName == "" || password == "" {
		return nil, fmt.Errorf("%w: display name and password are required", apperrors.ErrValidation)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hash password: %w", apperrors.ErrInternal)
	}

	now := time.Now().UTC()
	adminID := uuid.NewString()
	admin := domain.AdminAccount{
		AdminID:      adminID,
		DisplayName:  displayName,
		PasswordHash: hash,
		Privilege:    domain.PrivilegeMaster,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     adminID, // Self-created
			LastUpdatedAt: now,
			LastUpdatedBy: adminID,
		},
	}

	if err := s.adminRepo.BootstrapMaster(ctx, admin); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicateMaster) {
			logger.Error("Failed to bootstrap master account", slog.String("error", err.Error()))
		}
		return nil, err
	}

	logger.Info("Master account bootstrapped", slog.String("admin_id", admin.AdminID))
	return &admin, nil
}

// GetAdminByID retrieves a single admin account.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) GetAdminByID(ctx context.Context, adminID string) (*domain.AdminAccount, error) {
	admin, err := s.adminRepo.FindAdminByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin %s: %w", adminID, err)
	}
	return admin, nil
}

// ListAdmins returns all admin accounts.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) ListAdmins(ctx context.Context) ([]domain.AdminAccount, error) {
	admins, err := s.adminRepo.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

// UpdatePrivilege changes an account's privilege level between READONLY and
// NORMAL. Master movements must go through TransferMaster so the Master
// count never leaves one.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) UpdatePrivilege(ctx context.Context, adminID string, privilege domain.PrivilegeLevel, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.requireMaster(ctx, actorID); err != nil {
		return err
	}
	if adminID == actorID {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrSelfDemotion)
	}
	if !privilege.Valid() {
		return fmt.Errorf("%w: unknown privilege %q", apperrors.ErrValidation, privilege)
	}
	if privilege == domain.PrivilegeMaster {
		return fmt.Errorf("%w: use a master transfer instead of a privilege update", apperrors.ErrDuplicateMaster)
	}

	if err := s.adminRepo.UpdatePrivilege(ctx, adminID, privilege, actorID, time.Now().UTC()); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrLastMaster) {
			logger.Error("Failed to update admin privilege", slog.String("error", err.Error()), slog.String("admin_id", adminID))
		}
		return err
	}

	logger.Info("Admin privilege updated", slog.String("admin_id", adminID), slog.String("privilege", string(privilege)))
	return nil
}

// DeleteAdmin removes an admin account.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) DeleteAdmin(ctx context.Context, adminID string, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.requireMaster(ctx, actorID); err != nil {
		return err
	}

	if err := s.adminRepo.DeleteAdmin(ctx, adminID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrLastMaster) {
			logger.Error("Failed to delete admin account", slog.String("error", err.Error()), slog.String("admin_id", adminID))
		}
		return err
	}

	logger.Info("Admin account deleted", slog.String("admin_id", adminID), slog.String("deleted_by", actorID))
	return nil
}

// TransferMaster atomically moves the Master privilege.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) TransferMaster(ctx context.Context, fromAdminID, toAdminID string, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	actor, err := s.requireMaster(ctx, actorID)
	if err != nil {
		return err
	}
	// Only the sitting Master can hand the privilege over.
	if actor.AdminID != fromAdminID {
		return fmt.Errorf("%w: only the current master may transfer the privilege", apperrors.ErrForbidden)
	}
	if fromAdminID == toAdminID {
		return fmt.Errorf("%w: transfer source and target are the same account", apperrors.ErrValidation)
	}

	if err := s.adminRepo.TransferMaster(ctx, fromAdminID, toAdminID, actorID, time.Now().UTC()); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to transfer master privilege", slog.String("error", err.Error()),
				slog.String("from", fromAdminID), slog.String("to", toAdminID))
		}
		return err
	}

	logger.Info("Master privilege transferred", slog.String("from", fromAdminID), slog.String("to", toAdminID))
	return nil
}

// Authenticate verifies credentials and returns the account on success.
// Implements portssvc.GovernanceSvcFacade
func (s *governanceService) Authenticate(ctx context.Context, adminID, password string) (*domain.AdminAccount, error) {
	admin, err := s.adminRepo.FindAdminByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same error for unknown account and bad password.
			return nil, fmt.Errorf("%w: %s", apperrors.ErrForbidden, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to find admin %s: %w", adminID, err)
	}
	if !utils.CheckPasswordHash(password, admin.PasswordHash) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrForbidden, ErrInvalidCredentials)
	}
	return admin, nil
}
