package repositories

import (
	"context"
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
)

// AdminReader defines read operations for admin account data.
type AdminReader interface {
	// FindAdminByID retrieves an admin account by its identifier.
	FindAdminByID(ctx context.Context, adminID string) (*domain.AdminAccount, error)

	// ListAdmins retrieves all admin accounts.
	ListAdmins(ctx context.Context) ([]domain.AdminAccount, error)

	// CountMasters returns the number of accounts holding Master privilege.
	CountMasters(ctx context.Context) (int, error)
}

// AdminWriter defines guarded write operations for admin account data.
// Every method runs its governance check inside the same database
// transaction as the mutation, with the Master rows locked, so concurrent
// writers cannot race the single-Master invariant.
type AdminWriter interface {
	// CreateAdmin inserts a new admin account. Creating a MASTER account
	// fails with ErrDuplicateMaster while one exists; creating the very
	// first MASTER is only allowed through BootstrapMaster.
	CreateAdmin(ctx context.Context, admin domain.AdminAccount) error

	// BootstrapMaster inserts the initial MASTER account. Fails with
	// ErrDuplicateMaster if any MASTER row already exists.
	BootstrapMaster(ctx context.Context, admin domain.AdminAccount) error

	// UpdatePrivilege changes an account's privilege level. Demoting the
	// last MASTER fails with ErrLastMaster; promoting a second account to
	// MASTER fails with ErrDuplicateMaster.
	UpdatePrivilege(ctx context.Context, adminID string, privilege domain.PrivilegeLevel, updatedBy string, at time.Time) error

	// DeleteAdmin removes an account. Deleting the last MASTER fails with
	// ErrLastMaster.
	DeleteAdmin(ctx context.Context, adminID string) error

	// TransferMaster demotes fromID to NORMAL and promotes toID to MASTER
	// in one transaction, keeping the Master count at exactly one
	// throughout.
	TransferMaster(ctx context.Context, fromID, toID, updatedBy string, at time.Time) error
}

// AdminRepositoryFacade combines all admin repository interfaces.
type AdminRepositoryFacade interface {
	AdminReader
	AdminWriter
}
