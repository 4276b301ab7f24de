package services

import (
	"context"

	"github.com/efficienttutor/tuition_ledger_app/internal/dto"
)

// BackfillSvcFacade defines the idempotent reconstruction of ledger history
// from a snapshot of pre-ledger records.
type BackfillSvcFacade interface {
	// Run derives deterministic entry IDs for every snapshot record, inserts
	// the ones not present yet and re-checks ledger integrity afterwards.
	// Re-running with the same snapshot creates nothing new.
	Run(ctx context.Context, snapshot dto.BackfillSnapshot, runBy string) (*dto.BackfillReport, error)
}
