package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind distinguishes the two kinds of billable events in the ledger.
type EntryKind string

const (
	KindSession EntryKind = "SESSION"
	KindPayment EntryKind = "PAYMENT"
)

// EntryStatus indicates the state of a ledger entry.
type EntryStatus string

const (
	StatusActive EntryStatus = "ACTIVE"
	StatusVoid   EntryStatus = "VOID"
)

// SessionCreateType records how a session log came into existence: from a
// recurring session template or entered free-form.
type SessionCreateType string

const (
	CreateScheduled SessionCreateType = "SCHEDULED"
	CreateCustom    SessionCreateType = "CUSTOM"
)

// LedgerEntry represents one billable event: a tutoring session or a payment.
// Entries are append-only; a correction never mutates an existing row but
// voids it and links a fresh row via CorrectedFrom.
type LedgerEntry struct {
	EntryID       string           `json:"entryID"`              // Primary Key (UUID)
	Kind          EntryKind        `json:"kind"`
	PayerID       string           `json:"payerID"`              // FK -> parents.parent_id
	Amount        *decimal.Decimal `json:"amount"`               // Total monetary amount; nil for uncosted session logs
	CurrencyCode  string           `json:"currencyCode"`         // Currency of the payer, stored, never converted
	Status        EntryStatus      `json:"status"`               // Default: ACTIVE
	CorrectedFrom *string          `json:"correctedFrom"`        // Entry this one supersedes, nil for chain roots
	VoidReason    string           `json:"voidReason,omitempty"` // Only set on VOID entries without a replacement
	Notes         string           `json:"notes,omitempty"`

	// Session-only attributes; zero-valued on payment logs.
	TeacherID   string            `json:"teacherID,omitempty"`
	Subject     string            `json:"subject,omitempty"`
	StartTime   *time.Time        `json:"startTime,omitempty"`
	EndTime     *time.Time        `json:"endTime,omitempty"`
	TemplateID  *string           `json:"templateID,omitempty"` // FK -> session_templates, nil for CUSTOM logs
	LessonIndex *int              `json:"lessonIndex,omitempty"`
	CreateType  SessionCreateType `json:"createType,omitempty"`

	// Charges are loaded separately; only populated on demand.
	Charges []Charge `json:"charges,omitempty"`

	AuditFields
}

// IsActive reports whether the entry participates in active aggregations.
func (e *LedgerEntry) IsActive() bool {
	return e.Status == StatusActive
}
