package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// GrantWaiverRequest grants a discount against a ledger entry.
type GrantWaiverRequest struct {
	WaiverType models.WaiverType `json:"waiver_type" validate:"required,oneof=scholarship financial_aid merit sibling other"`
	Amount     decimal.Decimal   `json:"amount"`
	Percentage decimal.Decimal   `json:"percentage"`
	Reason     string            `json:"reason" validate:"required,max=500"`
}

// WaiverResult returns the waiver together with the re-aggregated entry.
type WaiverResult struct {
	Waiver models.FeeWaiver `json:"waiver"`
	Entry  LedgerEntryView  `json:"entry"`
}
