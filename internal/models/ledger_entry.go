package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the derived lifecycle state of a ledger entry.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
	PaymentStatusWaived  PaymentStatus = "waived"
)

// UnpaidStatuses lists the states that still carry an obligation.
var UnpaidStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPartial, PaymentStatusOverdue}

// Unpaid reports whether s is pending, partial or overdue.
func (s PaymentStatus) Unpaid() bool {
	for _, candidate := range UnpaidStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodCard         PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodOnline, PaymentMethodCheque, PaymentMethodCard:
		return true
	}
	return false
}

// Ledger state machine errors.
var (
	ErrNegativeAmountDue  = errors.New("amount due must not be negative")
	ErrNonPositivePayment = errors.New("payment amount must be greater than zero")
	ErrZeroAdjustment     = errors.New("adjustment amount must not be zero")
	ErrNegativeAmountPaid = errors.New("adjustment would make amount paid negative")
	ErrNegativeDiscount   = errors.New("waiver total must not be negative")
)

// LedgerEntry is a student's obligation against one catalog line.
type LedgerEntry struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	FeeCatalogID       string          `db:"fee_catalog_id" json:"fee_catalog_id"`
	AmountDue          decimal.Decimal `db:"amount_due" json:"amount_due"`
	AmountPaid         decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	LateFeeCharged     decimal.Decimal `db:"late_fee_charged" json:"late_fee_charged"`
	DiscountAmount     decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	PaymentStatus      PaymentStatus   `db:"payment_status" json:"payment_status"`
	PaymentMethod      *PaymentMethod  `db:"payment_method" json:"payment_method,omitempty"`
	TransactionID      string          `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentDate        *time.Time      `db:"payment_date" json:"payment_date,omitempty"`
	Remarks            string          `db:"remarks" json:"remarks,omitempty"`
	IsNotified         bool            `db:"is_notified" json:"is_notified"`
	NotificationSentAt *time.Time      `db:"notification_sent_at" json:"notification_sent_at,omitempty"`
	Version            int64           `db:"version" json:"version"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// NewLedgerEntry snapshots the schedule total into a pending entry.
func NewLedgerEntry(id, studentID string, schedule FeeCatalogEntry) (*LedgerEntry, error) {
	due := schedule.Total()
	if due.IsNegative() {
		return nil, ErrNegativeAmountDue
	}
	return &LedgerEntry{
		ID:             id,
		StudentID:      studentID,
		FeeCatalogID:   schedule.ID,
		AmountDue:      due,
		AmountPaid:     decimal.Zero,
		LateFeeCharged: decimal.Zero,
		DiscountAmount: decimal.Zero,
		PaymentStatus:  PaymentStatusPending,
		Version:        1,
	}, nil
}

// Balance is amount due plus late fee, less payments and discounts. It may be negative.
func (e *LedgerEntry) Balance() decimal.Decimal {
	return e.AmountDue.Add(e.LateFeeCharged).Sub(e.AmountPaid).Sub(e.DiscountAmount)
}

// Credit is the overpaid amount, zero when the balance is not negative.
func (e *LedgerEntry) Credit() decimal.Decimal {
	if b := e.Balance(); b.IsNegative() {
		return b.Neg()
	}
	return decimal.Zero
}

// RecomputeLateFee charges the schedule's late fee once asOf passes the grace period.
// Paid and waived entries keep whatever was charged when they settled.
func (e *LedgerEntry) RecomputeLateFee(schedule FeeCatalogEntry, asOf time.Time) {
	if e.PaymentStatus == PaymentStatusPaid || e.PaymentStatus == PaymentStatusWaived {
		return
	}
	if schedule.LateFeeApplies(asOf) {
		e.LateFeeCharged = schedule.LateFeeAmount
		return
	}
	e.LateFeeCharged = decimal.Zero
}

// RecomputeStatus derives the status from balance and date. Waived is terminal.
func (e *LedgerEntry) RecomputeStatus(schedule FeeCatalogEntry, asOf time.Time) {
	if e.PaymentStatus == PaymentStatusWaived {
		return
	}
	switch {
	case !e.Balance().IsPositive():
		e.PaymentStatus = PaymentStatusPaid
		if e.PaymentDate == nil {
			paidOn := DateOf(asOf)
			e.PaymentDate = &paidOn
		}
		return
	case e.AmountPaid.IsPositive():
		e.PaymentStatus = PaymentStatusPartial
	case schedule.IsOverdue(asOf):
		e.PaymentStatus = PaymentStatusOverdue
	default:
		e.PaymentStatus = PaymentStatusPending
	}
	e.PaymentDate = nil
}

// Recompute refreshes the late fee and then the status.
func (e *LedgerEntry) Recompute(schedule FeeCatalogEntry, asOf time.Time) {
	e.RecomputeLateFee(schedule, asOf)
	e.RecomputeStatus(schedule, asOf)
}

// ApplyPayment adds a positive payment and recomputes.
func (e *LedgerEntry) ApplyPayment(amount decimal.Decimal, schedule FeeCatalogEntry, asOf time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositivePayment
	}
	e.AmountPaid = e.AmountPaid.Add(amount)
	e.Recompute(schedule, asOf)
	return nil
}

// ApplyAdjustment adds a signed correction to amount paid. A settled entry regresses
// when the correction leaves a positive balance.
func (e *LedgerEntry) ApplyAdjustment(delta decimal.Decimal, schedule FeeCatalogEntry, asOf time.Time) error {
	if delta.IsZero() {
		return ErrZeroAdjustment
	}
	paid := e.AmountPaid.Add(delta)
	if paid.IsNegative() {
		return ErrNegativeAmountPaid
	}
	e.AmountPaid = paid
	e.reopenIfOwing()
	e.Recompute(schedule, asOf)
	return nil
}

// ApplyWaiverAggregate replaces the discount with the freshly summed active waivers.
func (e *LedgerEntry) ApplyWaiverAggregate(total decimal.Decimal, schedule FeeCatalogEntry, asOf time.Time) error {
	if total.IsNegative() {
		return ErrNegativeDiscount
	}
	e.DiscountAmount = total
	e.Recompute(schedule, asOf)
	return nil
}

// Waive marks the entry as administratively forgiven.
func (e *LedgerEntry) Waive() {
	e.PaymentStatus = PaymentStatusWaived
}

// Reopen clears a waived or settled state and derives the status again.
func (e *LedgerEntry) Reopen(schedule FeeCatalogEntry, asOf time.Time) {
	e.PaymentStatus = PaymentStatusPending
	e.Recompute(schedule, asOf)
}

// reopenIfOwing drops a paid status whose balance has become positive so the late fee
// is derived again.
func (e *LedgerEntry) reopenIfOwing() {
	if e.PaymentStatus == PaymentStatusPaid && e.Balance().IsPositive() {
		e.PaymentStatus = PaymentStatusPending
	}
}

// LedgerEntryFilter narrows ledger listings.
type LedgerEntryFilter struct {
	StudentID string
	Statuses  []PaymentStatus
	Notified  *bool
}
