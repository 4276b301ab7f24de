package repositories

import (
	"context"
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// EntryReader defines read operations for ledger entry data.
type EntryReader interface {
	// FindEntryByID retrieves a specific ledger entry by its identifier.
	FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// FindChargesByEntryID retrieves all charges owned by a ledger entry,
	// including charges of void entries (kept for audit).
	FindChargesByEntryID(ctx context.Context, entryID string) ([]domain.Charge, error)

	// ChainOf returns the full correction chain containing entryID,
	// oldest to newest. Every non-head member is VOID.
	ChainOf(ctx context.Context, entryID string) ([]domain.LedgerEntry, error)

	// ListEntriesByPayer retrieves a paginated list of entries of one kind
	// for a payer using token-based pagination. includeVoid controls whether
	// superseded and voided history rows are returned.
	ListEntriesByPayer(ctx context.Context, payerID string, kind domain.EntryKind, limit int, nextToken *string, includeVoid bool) ([]domain.LedgerEntry, *string, error)

	// SumChargesByPayer sums the charge amounts attributed to a payer.
	// With activeOnly, only charges of ACTIVE entries are considered.
	SumChargesByPayer(ctx context.Context, payerID string, activeOnly bool) (decimal.Decimal, error)

	// SumPaymentsByPayer sums payment log amounts for a payer.
	SumPaymentsByPayer(ctx context.Context, payerID string, activeOnly bool) (decimal.Decimal, error)

	// OrphanedCharges returns charges whose owning entry row is missing.
	OrphanedCharges(ctx context.Context) ([]domain.Charge, error)

	// ChargeSumMismatches returns ACTIVE session logs with a non-null amount
	// whose charges do not sum to that amount exactly.
	ChargeSumMismatches(ctx context.Context) ([]domain.IntegrityFinding, error)
}

// EntryWriter defines write operations for ledger entry data. The ledger is
// append-only: rows are only ever inserted or flipped ACTIVE -> VOID.
type EntryWriter interface {
	// SaveEntry persists an entry and its charges in a single transaction.
	// The charge sum is re-verified against the entry amount inside the
	// transaction; a mismatch rolls everything back with ErrIntegrity.
	SaveEntry(ctx context.Context, entry domain.LedgerEntry, charges []domain.Charge) error

	// VoidEntry terminally voids an entry with no replacement. The entry row
	// is locked for the check-then-act sequence. Fails with ErrNotFound,
	// ErrAlreadyVoid or ErrSuperseded.
	VoidEntry(ctx context.Context, entryID, reason, voidedBy string, at time.Time) error

	// VoidAndReplaceEntry atomically voids the target and inserts the
	// replacement (with its charges) linked via CorrectedFrom, in one
	// transaction with the target row locked. Same failure modes as
	// VoidEntry plus ErrIntegrity on a charge sum mismatch.
	VoidAndReplaceEntry(ctx context.Context, targetID string, replacement domain.LedgerEntry, charges []domain.Charge) error
}

// EntryRepositoryFacade combines all ledger-entry repository interfaces.
type EntryRepositoryFacade interface {
	EntryReader
	EntryWriter
}

// EntryRepositoryWithTx extends EntryRepositoryFacade with transaction capabilities
type EntryRepositoryWithTx interface {
	EntryRepositoryFacade
	TransactionManager
}
