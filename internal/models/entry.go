package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind mirrors domain.EntryKind at the persistence layer.
type EntryKind string

const (
	KindSession EntryKind = "SESSION"
	KindPayment EntryKind = "PAYMENT"
)

// EntryStatus mirrors domain.EntryStatus at the persistence layer.
type EntryStatus string

const (
	StatusActive EntryStatus = "ACTIVE"
	StatusVoid   EntryStatus = "VOID"
)

// LedgerEntry maps one row of the append-only ledger_entries table.
type LedgerEntry struct {
	EntryID       string           `json:"entryID"`
	Kind          EntryKind        `json:"kind"`
	PayerID       string           `json:"payerID"`
	Amount        *decimal.Decimal `json:"amount"`
	CurrencyCode  string           `json:"currencyCode"`
	Status        EntryStatus      `json:"status"`
	CorrectedFrom *string          `json:"correctedFrom"`
	VoidReason    *string          `json:"voidReason"`
	Notes         *string          `json:"notes"`
	TeacherID     *string          `json:"teacherID"`
	Subject       *string          `json:"subject"`
	StartTime     *time.Time       `json:"startTime"`
	EndTime       *time.Time       `json:"endTime"`
	TemplateID    *string          `json:"templateID"`
	LessonIndex   *int             `json:"lessonIndex"`
	CreateType    *string          `json:"createType"`
	AuditFields
}
