package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegacySessionRecord is one pre-ledger historical session in a backfill
// snapshot. Shapes varied across schema versions, so every resolution input
// is optional; the service falls back through them in order.
type LegacySessionRecord struct {
	LegacyID      string           `json:"legacyID,omitempty"`      // Source row identifier, if any
	Subject       string           `json:"subject"`
	TeacherID     string           `json:"teacherID"`
	LessonIndex   *int             `json:"lessonIndex,omitempty"`
	StartTime     time.Time        `json:"startTime"`
	EndTime       time.Time        `json:"endTime"`
	TotalCost     *decimal.Decimal `json:"totalCost,omitempty"`
	AttendeeIDs   []string         `json:"attendeeIDs,omitempty"`   // Strategy 1: explicit IDs
	TemplateKey   *TemplateKey     `json:"templateKey,omitempty"`   // Strategy 2: template participants
	AttendeeNames []string         `json:"attendeeNames,omitempty"` // Strategy 3: free-text names
}

// TemplateKey is the natural key of a recurring session template. The
// backfill derives the template's deterministic identifier from it.
type TemplateKey struct {
	Subject     string          `json:"subject"`
	TeacherID   string          `json:"teacherID"`
	LessonIndex int             `json:"lessonIndex"`
	StudentIDs  []string        `json:"studentIDs"`
	TotalCost   decimal.Decimal `json:"totalCost"`
}

// LegacyPaymentRecord is one pre-ledger historical payment.
type LegacyPaymentRecord struct {
	LegacyID    string          `json:"legacyID,omitempty"`
	ParentID    string          `json:"parentID"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"paymentDate"`
	Notes       string          `json:"notes,omitempty"`
}

// BackfillSnapshot is a read-only snapshot of pre-ledger historical records.
type BackfillSnapshot struct {
	Sessions []LegacySessionRecord `json:"sessions"`
	Payments []LegacyPaymentRecord `json:"payments"`
}

// Resolution strategies recorded per processed backfill record.
const (
	ResolutionExplicitIDs = "EXPLICIT_IDS"
	ResolutionTemplate    = "TEMPLATE_PARTICIPANTS"
	ResolutionNameMatch   = "NAME_MATCH"
)

// BackfillRecordResult reports the outcome for one snapshot record.
type BackfillRecordResult struct {
	LegacyID      string `json:"legacyID,omitempty"`
	EntryID       string `json:"entryID,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	LowConfidence bool   `json:"lowConfidence"` // true when matched only by name
	Skipped       bool   `json:"skipped"`       // true when the derived entry already existed
	Error         string `json:"error,omitempty"`
}

// BackfillReport summarizes a backfill run. Orphans and integrity findings
// are data-quality results; the run itself still succeeds.
type BackfillReport struct {
	EntriesCreated   int                    `json:"entriesCreated"`
	ChargesCreated   int                    `json:"chargesCreated"`
	TemplatesCreated int                    `json:"templatesCreated"`
	Records          []BackfillRecordResult `json:"records"`
	Orphans          []string               `json:"orphans,omitempty"`       // entry IDs of charges without a log
	SumMismatches    []string               `json:"sumMismatches,omitempty"` // entry IDs failing the charge-sum assertion
	LowConfidence    []string               `json:"lowConfidence,omitempty"` // entry IDs matched only by name
}
