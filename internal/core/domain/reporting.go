package domain

import "github.com/shopspring/decimal"

// PayerBalance summarizes a payer's financial position. Charged amounts come
// from session-log charges attributed to the payer, paid amounts from
// payment logs. Scope controls whether void history is included.
type PayerBalance struct {
	ParentID     string          `json:"parentID"`
	CurrencyCode string          `json:"currencyCode"`
	TotalCharged decimal.Decimal `json:"totalCharged"`
	TotalPaid    decimal.Decimal `json:"totalPaid"`
	Balance      decimal.Decimal `json:"balance"` // TotalPaid - TotalCharged
	ActiveOnly   bool            `json:"activeOnly"`
}

// IntegrityFinding reports one session log whose stored amount does not
// equal the sum of its charges. Findings are data-quality results, not
// runtime errors; they are reported and never silently dropped.
type IntegrityFinding struct {
	EntryID   string          `json:"entryID"`
	Amount    decimal.Decimal `json:"amount"`
	ChargeSum decimal.Decimal `json:"chargeSum"`
}
