package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// FeeScheduleSummary is the slice of the catalog line shown next to an entry.
type FeeScheduleSummary struct {
	ClassID     string              `json:"class_id"`
	TermID      string              `json:"term_id"`
	Frequency   models.FeeFrequency `json:"frequency"`
	DueDate     time.Time           `json:"due_date"`
	Description string              `json:"description,omitempty"`
}

// LedgerEntryView is a ledger entry with its derived balance and credit.
type LedgerEntryView struct {
	models.LedgerEntry
	Balance  decimal.Decimal     `json:"balance"`
	Credit   decimal.Decimal     `json:"credit"`
	Schedule *FeeScheduleSummary `json:"schedule,omitempty"`
}

// NewLedgerEntryView derives the read-side fields of entry.
func NewLedgerEntryView(entry models.LedgerEntry, schedule *models.FeeCatalogEntry) LedgerEntryView {
	view := LedgerEntryView{LedgerEntry: entry, Balance: entry.Balance(), Credit: entry.Credit()}
	if schedule != nil {
		view.Schedule = &FeeScheduleSummary{
			ClassID:     schedule.ClassID,
			TermID:      schedule.TermID,
			Frequency:   schedule.Frequency,
			DueDate:     schedule.DueDate,
			Description: schedule.Description,
		}
	}
	return view
}

// StudentFeeSummary lists a student's entries with the outstanding total.
type StudentFeeSummary struct {
	StudentID   string            `json:"student_id"`
	Entries     []LedgerEntryView `json:"entries"`
	TotalUnpaid decimal.Decimal   `json:"total_unpaid"`
	AsOf        time.Time         `json:"as_of"`
}

// LedgerEntryDetail bundles an entry with its journal, waivers and audit trail.
type LedgerEntryDetail struct {
	LedgerEntryView
	Payments []models.PaymentTransaction `json:"payments"`
	Waivers  []models.FeeWaiver          `json:"waivers"`
	History  []models.AuditLog           `json:"history,omitempty"`
}

// OverrideRequest carries the justification for an administrative override.
type OverrideRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ReminderResult reports how many pending and overdue entries were flagged for reminders.
type ReminderResult struct {
	Notified int64 `json:"notified"`
	Pending  int   `json:"pending"`
	Overdue  int   `json:"overdue"`
}

// SweepResult reports the outcome of an overdue refresh.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Updated   int `json:"updated"`
	Conflicts int `json:"conflicts"`
}
