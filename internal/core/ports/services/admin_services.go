package services

import (
	"context"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
)

// GovernanceSvcFacade defines the business logic operations for admin
// accounts and the single-Master privilege invariant.
type GovernanceSvcFacade interface {
	// CreateAdmin creates a READONLY or NORMAL admin account. Only a Master
	// may create accounts.
	CreateAdmin(ctx context.Context, req dto.CreateAdminRequest, actorID string) (*domain.AdminAccount, error)

	// BootstrapMaster creates the very first Master account. Fails with
	// apperrors.ErrDuplicateMaster once any Master exists.
	BootstrapMaster(ctx context.Context, displayName, password string) (*domain.AdminAccount, error)

	// GetAdminByID retrieves a single admin account.
	GetAdminByID(ctx context.Context, adminID string) (*domain.AdminAccount, error)

	// ListAdmins returns all admin accounts.
	ListAdmins(ctx context.Context) ([]domain.AdminAccount, error)

	// UpdatePrivilege changes an account's privilege level. Promoting to
	// MASTER or demoting the last MASTER is rejected; use TransferMaster.
	UpdatePrivilege(ctx context.Context, adminID string, privilege domain.PrivilegeLevel, actorID string) error

	// DeleteAdmin removes an admin account. The last Master cannot be
	// deleted.
	DeleteAdmin(ctx context.Context, adminID string, actorID string) error

	// TransferMaster atomically demotes the current Master and promotes the
	// target, preserving exactly one Master throughout.
	TransferMaster(ctx context.Context, fromAdminID, toAdminID string, actorID string) error

	// Authenticate verifies credentials and returns the account on success.
	Authenticate(ctx context.Context, adminID, password string) (*domain.AdminAccount, error)
}
