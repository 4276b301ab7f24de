package domain

import "github.com/shopspring/decimal"

// Charge represents one participant's share of a session log's cost.
// Charges are immutable once written; correcting a log voids the log and
// retires its charges together, then writes a fresh log plus charge set.
// Invariant: for every ACTIVE session log with a non-nil amount, the sum of
// its charges equals the log's amount exactly.
type Charge struct {
	EntryID   string          `json:"entryID"`   // FK -> ledger_entries.entry_id
	StudentID string          `json:"studentID"` // FK -> students.student_id
	ParentID  string          `json:"parentID"`  // Responsible payer, FK -> parents.parent_id
	Amount    decimal.Decimal `json:"amount"`    // Fixed-point, two fractional digits
	AuditFields
}
