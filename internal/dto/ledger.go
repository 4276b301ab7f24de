package dto

import (
	"time"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordSessionRequest carries the facts of a tutoring session to be logged.
// A "scheduled" session pulls teacher, subject, attendees and cost from its
// template; a "custom" session supplies them inline.
type RecordSessionRequest struct {
	LogType     string           `json:"logType" binding:"required,oneof=scheduled custom"`
	TemplateID  *string          `json:"templateID,omitempty"` // required for scheduled
	TeacherID   string           `json:"teacherID,omitempty"`
	Subject     string           `json:"subject,omitempty"`
	LessonIndex *int             `json:"lessonIndex,omitempty"`
	StartTime   time.Time        `json:"startTime" binding:"required"`
	EndTime     time.Time        `json:"endTime" binding:"required"`
	TotalCost   *decimal.Decimal `json:"totalCost,omitempty"` // nil records an uncosted session
	AttendeeIDs []string         `json:"attendeeIDs,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}

// RecordPaymentRequest carries the facts of a payment received from a payer.
type RecordPaymentRequest struct {
	ParentID    string          `json:"parentID" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate time.Time       `json:"paymentDate" binding:"required"`
	Notes       string          `json:"notes,omitempty"`
}

// VoidRequest carries the reason for a terminal void without replacement.
type VoidRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CorrectSessionRequest carries the replacement facts for a session log
// correction.
type CorrectSessionRequest struct {
	RecordSessionRequest
}

// CorrectPaymentRequest carries the replacement facts for a payment log
// correction.
type CorrectPaymentRequest struct {
	RecordPaymentRequest
}

// ChargeResponse defines the data returned for one charge.
type ChargeResponse struct {
	StudentID string          `json:"studentID"`
	ParentID  string          `json:"parentID"`
	Amount    decimal.Decimal `json:"amount"`
}

// EntryResponse defines the data returned for a ledger entry.
type EntryResponse struct {
	EntryID       string           `json:"entryID"`
	Kind          string           `json:"kind"`
	PayerID       string           `json:"payerID"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	CurrencyCode  string           `json:"currencyCode"`
	Status        string           `json:"status"`
	CorrectedFrom *string          `json:"correctedFrom,omitempty"`
	VoidReason    string           `json:"voidReason,omitempty"`
	Subject       string           `json:"subject,omitempty"`
	TeacherID     string           `json:"teacherID,omitempty"`
	StartTime     *time.Time       `json:"startTime,omitempty"`
	EndTime       *time.Time       `json:"endTime,omitempty"`
	TemplateID    *string          `json:"templateID,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Charges       []ChargeResponse `json:"charges,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	CreatedBy     string           `json:"createdBy"`
}

// ToEntryResponse converts a domain LedgerEntry to an EntryResponse DTO.
func ToEntryResponse(e *domain.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		EntryID:       e.EntryID,
		Kind:          string(e.Kind),
		PayerID:       e.PayerID,
		Amount:        e.Amount,
		CurrencyCode:  e.CurrencyCode,
		Status:        string(e.Status),
		CorrectedFrom: e.CorrectedFrom,
		VoidReason:    e.VoidReason,
		Subject:       e.Subject,
		TeacherID:     e.TeacherID,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		TemplateID:    e.TemplateID,
		Notes:         e.Notes,
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
	}
	if len(e.Charges) > 0 {
		resp.Charges = make([]ChargeResponse, len(e.Charges))
		for i, c := range e.Charges {
			resp.Charges[i] = ChargeResponse{
				StudentID: c.StudentID,
				ParentID:  c.ParentID,
				Amount:    c.Amount,
			}
		}
	}
	return resp
}

// ToEntryResponses converts a slice of domain LedgerEntries to DTOs.
func ToEntryResponses(entries []domain.LedgerEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToEntryResponse(&entries[i])
	}
	return responses
}

// ChainResponse is the correction chain of one logical billing event,
// oldest to newest, for audit display.
type ChainResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// ListEntriesParams holds parameters for listing ledger entries.
type ListEntriesParams struct {
	ParentID    string  `form:"parentID" binding:"required,uuid"`
	Limit       int     `form:"limit"`
	NextToken   *string `form:"nextToken"`
	IncludeVoid bool    `form:"includeVoid"`
}

// ListEntriesResponse is a page of ledger entries plus the next page token.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// BalanceResponse reports a payer's financial position.
type BalanceResponse struct {
	ParentID     string          `json:"parentID"`
	CurrencyCode string          `json:"currencyCode"`
	TotalCharged decimal.Decimal `json:"totalCharged"`
	TotalPaid    decimal.Decimal `json:"totalPaid"`
	Balance      decimal.Decimal `json:"balance"`
	Scope        string          `json:"scope"` // "active" or "all"
}

// AllocationPreviewRequest asks for a speculative cost split without
// recording anything.
type AllocationPreviewRequest struct {
	TotalCost   decimal.Decimal `json:"totalCost" binding:"required"`
	AttendeeIDs []string        `json:"attendeeIDs" binding:"required,min=1"`
}

// AllocationPreviewResponse is the speculative result of running the
// allocation engine without committing anything.
type AllocationPreviewResponse struct {
	TotalCost decimal.Decimal  `json:"totalCost"`
	Charges   []ChargeResponse `json:"charges"`
}
