package pgsql

import (
	"errors"
	"testing"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapAdminInsertError_SingleMasterIndexViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_admin_accounts_single_master"}

	err := mapAdminInsertError(pgErr, "admin-1")

	assert.ErrorIs(t, err, apperrors.ErrDuplicateMaster)
	assert.NotErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestMapAdminInsertError_PrimaryKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "admin_accounts_pkey"}

	err := mapAdminInsertError(pgErr, "admin-1")

	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	assert.NotErrorIs(t, err, apperrors.ErrDuplicateMaster)
}

func TestMapAdminInsertError_OtherErrorsWrapped(t *testing.T) {
	err := mapAdminInsertError(errors.New("connection reset"), "admin-1")

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, 500, appErr.Code)
}
