package services

import (
	"context"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSvcFacade defines the business logic operations for the append-only
// ledger: recording sessions and payments, voiding, corrections and reads.
type LedgerSvcFacade interface {
	// RecordSession validates the request, resolves attendees, runs cost
	// allocation and persists the session log with its charges atomically.
	RecordSession(ctx context.Context, req dto.RecordSessionRequest, createdBy string) (*domain.LedgerEntry, error)

	// RecordPayment persists a payment log. Payments carry no charges.
	RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, createdBy string) (*domain.LedgerEntry, error)

	// VoidEntry marks an active entry VOID without a replacement. Returns
	// apperrors.ErrAlreadyVoid if the entry is not active and
	// apperrors.ErrSuperseded if a correction already points at it.
	VoidEntry(ctx context.Context, entryID string, reason string, voidedBy string) error

	// CorrectSession voids the target session log and records a replacement
	// whose CorrectedFrom points at it, in one transaction.
	CorrectSession(ctx context.Context, targetID string, req dto.RecordSessionRequest, correctedBy string) (*domain.LedgerEntry, error)

	// CorrectPayment voids the target payment log and records a replacement.
	CorrectPayment(ctx context.Context, targetID string, req dto.RecordPaymentRequest, correctedBy string) (*domain.LedgerEntry, error)

	// GetEntryByID retrieves a single ledger entry with its charges.
	GetEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// GetChain returns the full correction chain containing entryID,
	// oldest first.
	GetChain(ctx context.Context, entryID string) ([]domain.LedgerEntry, error)

	// ListEntries returns a page of a payer's entries of the given kind,
	// newest first. Void entries are included only when requested.
	ListEntries(ctx context.Context, kind domain.EntryKind, params dto.ListEntriesParams) ([]domain.LedgerEntry, *string, error)

	// GetPayerBalance computes charged, paid and outstanding totals for a
	// payer. With activeOnly the void rows are excluded; otherwise the whole
	// history is summed for audit comparison.
	GetPayerBalance(ctx context.Context, parentID string, activeOnly bool) (*domain.PayerBalance, error)

	// PreviewAllocation runs the allocation engine for the given total and
	// attendees without persisting anything.
	PreviewAllocation(ctx context.Context, total decimal.Decimal, attendeeIDs []string) ([]domain.Charge, error)

	// FindOrphanedCharges lists entry IDs of charges whose session log is
	// missing or void while the charge row survived.
	FindOrphanedCharges(ctx context.Context) ([]string, error)

	// FindChargeSumMismatches lists active costed session logs whose charges
	// do not sum to the logged total.
	FindChargeSumMismatches(ctx context.Context) ([]domain.IntegrityFinding, error)
}
