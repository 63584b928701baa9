package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// RecordPaymentRequest records money received against a ledger entry.
type RecordPaymentRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=cash bank_transfer online cheque card"`
	PaymentDate   string               `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	TransactionID string               `json:"transaction_id" validate:"max=100"`
	Remarks       string               `json:"remarks" validate:"max=500"`
}

// RecordAdjustmentRequest records a signed correction to the amount paid.
type RecordAdjustmentRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=cash bank_transfer online cheque card"`
	Reason        string               `json:"reason" validate:"required,max=500"`
}

// PaymentResult returns the journal row together with the updated entry.
type PaymentResult struct {
	Payment models.PaymentTransaction `json:"payment"`
	Entry   LedgerEntryView           `json:"entry"`
}
