package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// PaymentReceiptConstraint is the unique index on receipt numbers.
const PaymentReceiptConstraint = "payment_transactions_receipt_number_key"

const paymentColumns = `id, ledger_entry_id, receipt_number, kind, amount, payment_method, payment_date, transaction_id, collected_by, remarks, created_at`

// PaymentRepository reads the payment journal. Writes go through LedgerTx.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListByEntry returns the journal of one ledger entry in the order it was written.
func (r *PaymentRepository) ListByEntry(ctx context.Context, entryID string) ([]models.PaymentTransaction, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE ledger_entry_id = $1 ORDER BY created_at ASC, id ASC`
	var payments []models.PaymentTransaction
	if err := r.db.SelectContext(ctx, &payments, query, entryID); err != nil {
		return nil, fmt.Errorf("list payment transactions: %w", err)
	}
	return payments, nil
}

// FindByReceipt loads a journal row by its receipt number.
func (r *PaymentRepository) FindByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE receipt_number = $1`
	var payment models.PaymentTransaction
	if err := r.db.GetContext(ctx, &payment, query, receipt); err != nil {
		return nil, err
	}
	return &payment, nil
}

// SumByEntry totals the journal of one ledger entry.
func (r *PaymentRepository) SumByEntry(ctx context.Context, entryID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payment_transactions WHERE ledger_entry_id = $1`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, entryID); err != nil {
		return decimal.Zero, fmt.Errorf("sum payment transactions: %w", err)
	}
	return total, nil
}
