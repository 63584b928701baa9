package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind separates ordinary payments from signed corrections.
type TransactionKind string

const (
	TransactionKindPayment    TransactionKind = "payment"
	TransactionKindAdjustment TransactionKind = "adjustment"
)

// PaymentTransaction is an append-only journal row against a ledger entry.
type PaymentTransaction struct {
	ID            string          `db:"id" json:"id"`
	LedgerEntryID string          `db:"ledger_entry_id" json:"ledger_entry_id"`
	ReceiptNumber string          `db:"receipt_number" json:"receipt_number"`
	Kind          TransactionKind `db:"kind" json:"kind"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
	TransactionID string          `db:"transaction_id" json:"transaction_id,omitempty"`
	CollectedBy   *string         `db:"collected_by" json:"collected_by,omitempty"`
	Remarks       string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Reconciliation compares the journal with the running total on the entry.
type Reconciliation struct {
	LedgerEntryID string          `json:"ledger_entry_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	JournalTotal  decimal.Decimal `json:"journal_total"`
	Drift         decimal.Decimal `json:"drift"`
	Consistent    bool            `json:"consistent"`
}
