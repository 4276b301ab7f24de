package pgsql

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	portsrepo "github.com/efficienttutor/tuition_ledger_app/internal/core/ports/repositories"
	"github.com/efficienttutor/tuition_ledger_app/internal/models"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils/mapping"
	"github.com/efficienttutor/tuition_ledger_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxEntryRepository struct {
	BaseRepository
}

// newPgxEntryRepository creates a new repository for ledger entry and charge data.
func newPgxEntryRepository(pool *pgxpool.Pool) portsrepo.EntryRepositoryWithTx {
	return &PgxEntryRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxEntryRepository implements portsrepo.EntryRepositoryWithTx
var _ portsrepo.EntryRepositoryWithTx = (*PgxEntryRepository)(nil)

const entryColumns = `
	entry_id, kind, payer_id, amount, currency_code, status,
	corrected_from, void_reason, notes,
	teacher_id, subject, start_time, end_time, template_id, lesson_index, create_type,
	created_at, created_by, last_updated_at, last_updated_by
`

// prefixedEntryColumns returns entryColumns with every column qualified by
// the given table alias, for queries that join ledger_entries against itself.
func prefixedEntryColumns(alias string) string {
	cols := strings.Split(entryColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

// scanEntry scans one ledger_entries row in entryColumns order.
func scanEntry(row pgx.Row) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID,
		&m.Kind,
		&m.PayerID,
		&m.Amount,
		&m.CurrencyCode,
		&m.Status,
		&m.CorrectedFrom,
		&m.VoidReason,
		&m.Notes,
		&m.TeacherID,
		&m.Subject,
		&m.StartTime,
		&m.EndTime,
		&m.TemplateID,
		&m.LessonIndex,
		&m.CreateType,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// insertEntryTx inserts an entry row within an open transaction.
func (r *PgxEntryRepository) insertEntryTx(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry) error {
	modelEntry := mapping.ToModelLedgerEntry(entry)
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	_, err := tx.Exec(ctx, query,
		modelEntry.EntryID,
		modelEntry.Kind,
		modelEntry.PayerID,
		modelEntry.Amount,
		modelEntry.CurrencyCode,
		modelEntry.Status,
		modelEntry.CorrectedFrom,
		modelEntry.VoidReason,
		modelEntry.Notes,
		modelEntry.TeacherID,
		modelEntry.Subject,
		modelEntry.StartTime,
		modelEntry.EndTime,
		modelEntry.TemplateID,
		modelEntry.LessonIndex,
		modelEntry.CreateType,
		modelEntry.CreatedAt,
		modelEntry.CreatedBy,
		modelEntry.LastUpdatedAt,
		modelEntry.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert ledger entry "+modelEntry.EntryID, err)
	}
	return nil
}

// insertChargesTx batch-inserts charge rows and re-verifies the charge sum
// against the entry amount inside the same transaction. A mismatch aborts
// with ErrIntegrity so nothing partial is ever visible.
func (r *PgxEntryRepository) insertChargesTx(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry, charges []domain.Charge) error {
	if len(charges) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	chargeQuery := `
		INSERT INTO charges (entry_id, student_id, parent_id, amount, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, charge := range charges {
		modelCharge := mapping.ToModelCharge(charge)
		batch.Queue(chargeQuery,
			modelCharge.EntryID,
			modelCharge.StudentID,
			modelCharge.ParentID,
			modelCharge.Amount,
			modelCharge.CreatedAt,
			modelCharge.CreatedBy,
			modelCharge.LastUpdatedAt,
			modelCharge.LastUpdatedBy,
		)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to execute charge batch for entry "+entry.EntryID, err)
	}

	if entry.Amount != nil {
		var chargeSum decimal.Decimal
		sumQuery := `SELECT COALESCE(SUM(amount), 0) FROM charges WHERE entry_id = $1;`
		if err := tx.QueryRow(ctx, sumQuery, entry.EntryID).Scan(&chargeSum); err != nil {
			return apperrors.NewAppError(500, "failed to verify charge sum for entry "+entry.EntryID, err)
		}
		if !chargeSum.Equal(*entry.Amount) {
			return apperrors.NewAppError(500,
				"charge sum "+chargeSum.String()+" does not equal entry amount "+entry.Amount.String(),
				apperrors.ErrIntegrity)
		}
	}
	return nil
}

// lockEntryTx locks the target row and runs the void-eligibility checks:
// the entry must exist, be ACTIVE and not yet superseded by a correction.
func (r *PgxEntryRepository) lockEntryTx(ctx context.Context, tx pgx.Tx, entryID string) error {
	var status models.EntryStatus
	lockQuery := `SELECT status FROM ledger_entries WHERE entry_id = $1 FOR UPDATE;`
	if err := tx.QueryRow(ctx, lockQuery, entryID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to lock ledger entry "+entryID, err)
	}
	if status == models.StatusVoid {
		return apperrors.ErrAlreadyVoid
	}

	var supersededBy string
	successorQuery := `SELECT entry_id FROM ledger_entries WHERE corrected_from = $1 LIMIT 1;`
	err := tx.QueryRow(ctx, successorQuery, entryID).Scan(&supersededBy)
	if err == nil {
		return apperrors.ErrSuperseded
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewAppError(500, "failed to check successors of ledger entry "+entryID, err)
	}
	return nil
}

// voidEntryTx flips the locked entry to VOID within an open transaction.
func (r *PgxEntryRepository) voidEntryTx(ctx context.Context, tx pgx.Tx, entryID string, reason *string, voidedBy string, at time.Time) error {
	voidQuery := `
		UPDATE ledger_entries
		SET status = $2, void_reason = $3, last_updated_at = $4, last_updated_by = $5
		WHERE entry_id = $1;
	`
	_, err := tx.Exec(ctx, voidQuery, entryID, models.StatusVoid, reason, at, voidedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to void ledger entry "+entryID, err)
	}
	return nil
}

// SaveEntry persists an entry and its charges in a single transaction.
func (r *PgxEntryRepository) SaveEntry(ctx context.Context, entry domain.LedgerEntry, charges []domain.Charge) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	if err := r.insertEntryTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := r.insertChargesTx(ctx, tx, entry, charges); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// VoidEntry terminally voids an entry with no replacement.
func (r *PgxEntryRepository) VoidEntry(ctx context.Context, entryID, reason, voidedBy string, at time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.lockEntryTx(ctx, tx, entryID); err != nil {
		return err
	}
	if err := r.voidEntryTx(ctx, tx, entryID, &reason, voidedBy, at); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// VoidAndReplaceEntry atomically voids the target and inserts the
// replacement with its charges. The target stays locked until commit so a
// concurrent correction of the same entry fails on ErrSuperseded instead of
// forking the chain.
func (r *PgxEntryRepository) VoidAndReplaceEntry(ctx context.Context, targetID string, replacement domain.LedgerEntry, charges []domain.Charge) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.lockEntryTx(ctx, tx, targetID); err != nil {
		return err
	}
	// The replacement documents the correction; the voided row keeps no
	// void_reason of its own.
	if err := r.voidEntryTx(ctx, tx, targetID, nil, replacement.CreatedBy, replacement.CreatedAt); err != nil {
		return err
	}
	if err := r.insertEntryTx(ctx, tx, replacement); err != nil {
		return err
	}
	if err := r.insertChargesTx(ctx, tx, replacement, charges); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// FindEntryByID retrieves a ledger entry by its ID.
func (r *PgxEntryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE entry_id = $1;`
	m, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find ledger entry by ID "+entryID, err)
	}

	domainEntry := mapping.ToDomainLedgerEntry(m)
	return &domainEntry, nil
}

// FindChargesByEntryID retrieves all charges owned by a ledger entry.
func (r *PgxEntryRepository) FindChargesByEntryID(ctx context.Context, entryID string) ([]domain.Charge, error) {
	query := `
		SELECT entry_id, student_id, parent_id, amount, created_at, created_by, last_updated_at, last_updated_by
		FROM charges
		WHERE entry_id = $1
		ORDER BY student_id;
	`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query charges for entry "+entryID, err)
	}
	defer rows.Close()

	charges := []models.Charge{}
	for rows.Next() {
		var c models.Charge
		err := rows.Scan(
			&c.EntryID,
			&c.StudentID,
			&c.ParentID,
			&c.Amount,
			&c.CreatedAt,
			&c.CreatedBy,
			&c.LastUpdatedAt,
			&c.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan charge row for entry "+entryID, err)
		}
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating charge rows for entry "+entryID, err)
	}

	return mapping.ToDomainChargeSlice(charges), nil
}

// ChainOf returns the full correction chain containing entryID, oldest to
// newest. It first walks CorrectedFrom links back to the chain root, then
// forward to the live head.
func (r *PgxEntryRepository) ChainOf(ctx context.Context, entryID string) ([]domain.LedgerEntry, error) {
	rootQuery := `
		WITH RECURSIVE back AS (
			SELECT entry_id, corrected_from FROM ledger_entries WHERE entry_id = $1
			UNION ALL
			SELECT e.entry_id, e.corrected_from
			FROM ledger_entries e
			JOIN back b ON e.entry_id = b.corrected_from
		)
		SELECT entry_id FROM back WHERE corrected_from IS NULL;
	`
	var rootID string
	if err := r.Pool.QueryRow(ctx, rootQuery, entryID).Scan(&rootID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find chain root of entry "+entryID, err)
	}

	forwardQuery := `
		WITH RECURSIVE chain AS (
			SELECT ` + entryColumns + `, 0 AS depth
			FROM ledger_entries WHERE entry_id = $1
			UNION ALL
			SELECT ` + prefixedEntryColumns("e") + `, c.depth + 1
			FROM ledger_entries e
			JOIN chain c ON e.corrected_from = c.entry_id
		)
		SELECT ` + entryColumns + ` FROM chain ORDER BY depth;
	`
	rows, err := r.Pool.Query(ctx, forwardQuery, rootID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to walk correction chain of entry "+entryID, err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan chain row for entry "+entryID, err)
		}
		entries = append(entries, mapping.ToDomainLedgerEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating chain rows for entry "+entryID, err)
	}

	return entries, nil
}

// ListEntriesByPayer retrieves a paginated list of a payer's entries of one
// kind using token-based pagination.
func (r *PgxEntryRepository) ListEntriesByPayer(ctx context.Context, payerID string, kind domain.EntryKind, limit int, nextToken *string, includeVoid bool) ([]domain.LedgerEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE payer_id = $1 AND kind = $2`
	if !includeVoid {
		baseQuery += ` AND status = 'ACTIVE'`
	}
	// Ordering is crucial and must be stable: created_at DESC with entry_id
	// as the tie-breaker.
	orderByClause := `ORDER BY created_at DESC, entry_id DESC`

	args := []interface{}{payerID, string(kind)}
	query := baseQuery
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastEntryID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		query += ` AND (created_at, entry_id) < ($3, $4)`
		args = append(args, lastCreatedAt, lastEntryID)
	}
	query += " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query ledger entries for payer "+payerID, err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan ledger entry row for payer "+payerID, err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating ledger entry rows for payer "+payerID, err)
	}

	// Determine the next token
	var nextTokenVal *string
	if len(entries) > limit {
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		nextTokenVal = &token
		entries = entries[:limit]
	}

	results := make([]domain.LedgerEntry, len(entries))
	for i, m := range entries {
		results[i] = mapping.ToDomainLedgerEntry(m)
	}
	return results, nextTokenVal, nil
}

// SumChargesByPayer sums the charge amounts attributed to a payer.
func (r *PgxEntryRepository) SumChargesByPayer(ctx context.Context, payerID string, activeOnly bool) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(c.amount), 0)
		FROM charges c
		JOIN ledger_entries e ON c.entry_id = e.entry_id
		WHERE c.parent_id = $1
	`
	if activeOnly {
		query += ` AND e.status = 'ACTIVE'`
	}
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, payerID).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum charges for payer "+payerID, err)
	}
	return sum, nil
}

// SumPaymentsByPayer sums payment log amounts for a payer.
func (r *PgxEntryRepository) SumPaymentsByPayer(ctx context.Context, payerID string, activeOnly bool) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE payer_id = $1 AND kind = 'PAYMENT'
	`
	if activeOnly {
		query += ` AND status = 'ACTIVE'`
	}
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, payerID).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum payments for payer "+payerID, err)
	}
	return sum, nil
}

// OrphanedCharges returns charges whose owning entry row is missing. The
// foreign key makes this impossible for rows written through this
// repository; the scan exists to audit backfilled and hand-migrated data.
func (r *PgxEntryRepository) OrphanedCharges(ctx context.Context) ([]domain.Charge, error) {
	query := `
		SELECT c.entry_id, c.student_id, c.parent_id, c.amount, c.created_at, c.created_by, c.last_updated_at, c.last_updated_by
		FROM charges c
		LEFT JOIN ledger_entries e ON c.entry_id = e.entry_id
		WHERE e.entry_id IS NULL
		ORDER BY c.entry_id, c.student_id;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query orphaned charges", err)
	}
	defer rows.Close()

	charges := []models.Charge{}
	for rows.Next() {
		var c models.Charge
		err := rows.Scan(
			&c.EntryID,
			&c.StudentID,
			&c.ParentID,
			&c.Amount,
			&c.CreatedAt,
			&c.CreatedBy,
			&c.LastUpdatedAt,
			&c.LastUpdatedBy,
		)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan orphaned charge row", err)
		}
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating orphaned charge rows", err)
	}

	return mapping.ToDomainChargeSlice(charges), nil
}

// ChargeSumMismatches returns ACTIVE costed session logs whose charges do
// not sum to the logged amount exactly.
func (r *PgxEntryRepository) ChargeSumMismatches(ctx context.Context) ([]domain.IntegrityFinding, error) {
	query := `
		SELECT e.entry_id, e.amount, COALESCE(SUM(c.amount), 0) AS charge_sum
		FROM ledger_entries e
		LEFT JOIN charges c ON c.entry_id = e.entry_id
		WHERE e.kind = 'SESSION' AND e.status = 'ACTIVE' AND e.amount IS NOT NULL
		GROUP BY e.entry_id, e.amount
		HAVING COALESCE(SUM(c.amount), 0) <> e.amount
		ORDER BY e.entry_id;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query charge sum mismatches", err)
	}
	defer rows.Close()

	findings := []domain.IntegrityFinding{}
	for rows.Next() {
		var f domain.IntegrityFinding
		if err := rows.Scan(&f.EntryID, &f.Amount, &f.ChargeSum); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan charge sum mismatch row", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating charge sum mismatch rows", err)
	}

	return findings, nil
}
