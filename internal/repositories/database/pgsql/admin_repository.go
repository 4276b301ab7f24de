package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	"github.com/efficienttutor/tuition_ledger_app/internal/models"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAdminRepository struct {
	BaseRepository
}

// newPgxAdminRepository creates a new repository for admin account data.
func newPgxAdminRepository(pool *pgxpool.Pool) portsrepo.AdminRepositoryFacade {
	return &PgxAdminRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxAdminRepository implements portsrepo.AdminRepositoryFacade
var _ portsrepo.AdminRepositoryFacade = (*PgxAdminRepository)(nil)

const adminColumns = `admin_id, display_name, password_hash, privilege, created_at, created_by, last_updated_at, last_updated_by`

func scanAdmin(row pgx.Row) (models.AdminAccount, error) {
	var m models.AdminAccount
	err := row.Scan(
		&m.AdminID,
		&m.DisplayName,
		&m.PasswordHash,
		&m.Privilege,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// lockMastersTx locks every MASTER row and returns their count. All
// governance mutations take this lock first so concurrent writers serialize
// on the Master set instead of racing the invariant.
func (r *PgxAdminRepository) lockMastersTx(ctx context.Context, tx pgx.Tx) (int, error) {
	rows, err := tx.Query(ctx, `SELECT admin_id FROM admin_accounts WHERE privilege = 'MASTER' FOR UPDATE;`)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to lock master accounts", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, apperrors.NewAppError(500, "failed to scan master account row", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, apperrors.NewAppError(500, "error iterating master account rows", err)
	}
	return count, nil
}

func (r *PgxAdminRepository) insertAdminTx(ctx context.Context, tx pgx.Tx, admin domain.AdminAccount) error {
	modelAdmin := mapping.ToModelAdminAccount(admin)
	query := `
		INSERT INTO admin_accounts (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := tx.Exec(ctx, query,
		modelAdmin.AdminID,
		modelAdmin.DisplayName,
		modelAdmin.PasswordHash,
		modelAdmin.Privilege,
		modelAdmin.CreatedAt,
		modelAdmin.CreatedBy,
		modelAdmin.LastUpdatedAt,
		modelAdmin.LastUpdatedBy,
	)
	if err != nil {
		return mapAdminInsertError(err, modelAdmin.AdminID)
	}
	return nil
}

// mapAdminInsertError classifies unique violations raised by the admin
// insert. Two concurrent bootstraps both see zero MASTER rows (FOR UPDATE on
// an empty set locks nothing), so the loser hits the single-master partial
// index rather than the in-transaction guard; that violation means another
// MASTER row won the race, not a duplicate account ID.
func mapAdminInsertError(err error, adminID string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		if pgErr.ConstraintName == "uq_admin_accounts_single_master" {
			return apperrors.ErrDuplicateMaster
		}
		return fmt.Errorf("%w: admin account %s already exists", apperrors.ErrDuplicate, adminID)
	}
	return apperrors.NewAppError(500, "failed to insert admin account "+adminID, err)
}

// FindAdminByID retrieves an admin account by its identifier.
func (r *PgxAdminRepository) FindAdminByID(ctx context.Context, adminID string) (*domain.AdminAccount, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_accounts WHERE admin_id = $1;`
	m, err := scanAdmin(r.Pool.QueryRow(ctx, query, adminID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find admin account by ID "+adminID, err)
	}

	domainAdmin := mapping.ToDomainAdminAccount(m)
	return &domainAdmin, nil
}

// ListAdmins retrieves all admin accounts.
func (r *PgxAdminRepository) ListAdmins(ctx context.Context) ([]domain.AdminAccount, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_accounts ORDER BY created_at, admin_id;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query admin accounts", err)
	}
	defer rows.Close()

	admins := []domain.AdminAccount{}
	for rows.Next() {
		m, err := scanAdmin(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan admin account row", err)
		}
		admins = append(admins, mapping.ToDomainAdminAccount(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating admin account rows", err)
	}

	return admins, nil
}

// CountMasters returns the number of accounts holding Master privilege.
func (r *PgxAdminRepository) CountMasters(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM admin_accounts WHERE privilege = 'MASTER';`
	if err := r.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.NewAppError(500, "failed to count master accounts", err)
	}
	return count, nil
}

// CreateAdmin inserts a new admin account.
func (r *PgxAdminRepository) CreateAdmin(ctx context.Context, admin domain.AdminAccount) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if admin.Privilege == domain.PrivilegeMaster {
		masters, err := r.lockMastersTx(ctx, tx)
		if err != nil {
			return err
		}
		if masters > 0 {
			return apperrors.ErrDuplicateMaster
		}
	}
	if err := r.insertAdminTx(ctx, tx, admin); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// BootstrapMaster inserts the initial MASTER account.
func (r *PgxAdminRepository) BootstrapMaster(ctx context.Context, admin domain.AdminAccount) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	masters, err := r.lockMastersTx(ctx, tx)
	if err != nil {
		return err
	}
	if masters > 0 {
		return apperrors.ErrDuplicateMaster
	}

	admin.Privilege = domain.PrivilegeMaster
	if err := r.insertAdminTx(ctx, tx, admin); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// UpdatePrivilege changes an account's privilege level under the
// single-Master guard.
func (r *PgxAdminRepository) UpdatePrivilege(ctx context.Context, adminID string, privilege domain.PrivilegeLevel, updatedBy string, at time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	// Serialize on the Master set before inspecting the target.
	masters, err := r.lockMastersTx(ctx, tx)
	if err != nil {
		return err
	}

	var current models.PrivilegeLevel
	lockQuery := `SELECT privilege FROM admin_accounts WHERE admin_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockQuery, adminID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to lock admin account "+adminID, err)
	}

	if current == models.PrivilegeMaster && privilege != domain.PrivilegeMaster && masters <= 1 {
		return apperrors.ErrLastMaster
	}
	if current != models.PrivilegeMaster && privilege == domain.PrivilegeMaster && masters > 0 {
		return apperrors.ErrDuplicateMaster
	}

	updateQuery := `
		UPDATE admin_accounts
		SET privilege = $2, last_updated_at = $3, last_updated_by = $4
		WHERE admin_id = $1;
	`
	if _, err := tx.Exec(ctx, updateQuery, adminID, string(privilege), at, updatedBy); err != nil {
		return apperrors.NewAppError(500, "failed to update privilege of admin account "+adminID, err)
	}

	return r.Commit(ctx, tx)
}

// DeleteAdmin removes an account. The Master holds exactly one seat, so
// deleting a Master always trips the last-master guard.
func (r *PgxAdminRepository) DeleteAdmin(ctx context.Context, adminID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, err := r.lockMastersTx(ctx, tx); err != nil {
		return err
	}

	var current models.PrivilegeLevel
	lockQuery := `SELECT privilege FROM admin_accounts WHERE admin_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockQuery, adminID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to lock admin account "+adminID, err)
	}
	if current == models.PrivilegeMaster {
		return apperrors.ErrLastMaster
	}

	if _, err := tx.Exec(ctx, `DELETE FROM admin_accounts WHERE admin_id = $1;`, adminID); err != nil {
		return apperrors.NewAppError(500, "failed to delete admin account "+adminID, err)
	}

	return r.Commit(ctx, tx)
}

// TransferMaster demotes fromID to NORMAL and promotes toID to MASTER in
// one transaction, keeping the Master count at exactly one throughout.
func (r *PgxAdminRepository) TransferMaster(ctx context.Context, fromID, toID, updatedBy string, at time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, err := r.lockMastersTx(ctx, tx); err != nil {
		return err
	}

	var fromPrivilege models.PrivilegeLevel
	lockQuery := `SELECT privilege FROM admin_accounts WHERE admin_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockQuery, fromID).Scan(&fromPrivilege); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to lock admin account "+fromID, err)
	}
	if fromPrivilege != models.PrivilegeMaster {
		return fmt.Errorf("%w: account %s does not hold the master privilege", apperrors.ErrConflict, fromID)
	}

	var toPrivilege models.PrivilegeLevel
	if err := tx.QueryRow(ctx, lockQuery, toID).Scan(&toPrivilege); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to lock admin account "+toID, err)
	}

	updateQuery := `
		UPDATE admin_accounts
		SET privilege = $2, last_updated_at = $3, last_updated_by = $4
		WHERE admin_id = $1;
	`
	// Demote first so the partial unique index on MASTER never sees two
	// masters, not even transiently.
	if _, err := tx.Exec(ctx, updateQuery, fromID, string(domain.PrivilegeNormal), at, updatedBy); err != nil {
		return apperrors.NewAppError(500, "failed to demote admin account "+fromID, err)
	}
	if _, err := tx.Exec(ctx, updateQuery, toID, string(domain.PrivilegeMaster), at, updatedBy); err != nil {
		return apperrors.NewAppError(500, "failed to promote admin account "+toID, err)
	}

	return r.Commit(ctx, tx)
}
