package models

import "github.com/shopspring/decimal"

// Charge maps one row of the charges table, keyed by (entry_id, student_id).
type Charge struct {
	EntryID   string          `json:"entryID"`
	StudentID string          `json:"studentID"`
	ParentID  string          `json:"parentID"`
	Amount    decimal.Decimal `json:"amount"`
	AuditFields
}
