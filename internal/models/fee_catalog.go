package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// FeeFrequency describes how often a catalog line is billed.
type FeeFrequency string

const (
	FeeFrequencyMonthly   FeeFrequency = "monthly"
	FeeFrequencyQuarterly FeeFrequency = "quarterly"
	FeeFrequencySemester  FeeFrequency = "semester"
	FeeFrequencyAnnual    FeeFrequency = "annual"
)

// DefaultLateFeeGraceDays applies when a catalog line omits its grace period.
const DefaultLateFeeGraceDays = 7

// Valid reports whether f is a supported frequency.
func (f FeeFrequency) Valid() bool {
	switch f {
	case FeeFrequencyMonthly, FeeFrequencyQuarterly, FeeFrequencySemester, FeeFrequencyAnnual:
		return true
	}
	return false
}

// FeeComponents holds the individual charges that make up a catalog line.
type FeeComponents struct {
	TuitionFee   decimal.Decimal `db:"tuition_fee" json:"tuition_fee"`
	LibraryFee   decimal.Decimal `db:"library_fee" json:"library_fee"`
	LabFee       decimal.Decimal `db:"lab_fee" json:"lab_fee"`
	SportsFee    decimal.Decimal `db:"sports_fee" json:"sports_fee"`
	TransportFee decimal.Decimal `db:"transport_fee" json:"transport_fee"`
	OtherFee     decimal.Decimal `db:"other_fee" json:"other_fee"`
}

// Total sums every component.
func (c FeeComponents) Total() decimal.Decimal {
	return decimal.Sum(c.TuitionFee, c.LibraryFee, c.LabFee, c.SportsFee, c.TransportFee, c.OtherFee)
}

// HasNegative reports whether any component is below zero.
func (c FeeComponents) HasNegative() bool {
	for _, v := range []decimal.Decimal{c.TuitionFee, c.LibraryFee, c.LabFee, c.SportsFee, c.TransportFee, c.OtherFee} {
		if v.IsNegative() {
			return true
		}
	}
	return false
}

// FeeCatalogEntry is the fee schedule for one class, term and frequency.
type FeeCatalogEntry struct {
	ID        string       `db:"id" json:"id"`
	ClassID   string       `db:"class_id" json:"class_id"`
	TermID    string       `db:"term_id" json:"term_id"`
	Frequency FeeFrequency `db:"frequency" json:"frequency"`
	FeeComponents
	DueDate          time.Time       `db:"due_date" json:"due_date"`
	LateFeeAmount    decimal.Decimal `db:"late_fee_amount" json:"late_fee_amount"`
	LateFeeGraceDays int             `db:"late_fee_grace_days" json:"late_fee_grace_days"`
	Description      string          `db:"description" json:"description"`
	Active           bool            `db:"active" json:"active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether the calendar date of asOf is strictly after the due date.
func (e FeeCatalogEntry) IsOverdue(asOf time.Time) bool {
	return DateOf(asOf).After(DateOf(e.DueDate))
}

// LateFeeApplies reports whether asOf falls after the due date plus the grace period.
func (e FeeCatalogEntry) LateFeeApplies(asOf time.Time) bool {
	return DateOf(asOf).After(DateOf(e.DueDate).AddDate(0, 0, e.LateFeeGraceDays))
}

// MarshalJSON adds the derived total to the serialized form.
func (e FeeCatalogEntry) MarshalJSON() ([]byte, error) {
	type alias FeeCatalogEntry
	return json.Marshal(struct {
		alias
		Total decimal.Decimal `json:"total"`
	}{alias: alias(e), Total: e.Total()})
}

// FeeCatalogFilter narrows catalog listings.
type FeeCatalogFilter struct {
	ClassID   string
	TermID    string
	Frequency FeeFrequency
	Active    *bool
	Page      int
	PageSize  int
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
