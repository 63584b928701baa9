package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WaiverType categorises a discount.
type WaiverType string

const (
	WaiverTypeScholarship  WaiverType = "scholarship"
	WaiverTypeFinancialAid WaiverType = "financial_aid"
	WaiverTypeMerit        WaiverType = "merit"
	WaiverTypeSibling      WaiverType = "sibling"
	WaiverTypeOther        WaiverType = "other"
)

// Valid reports whether t is a supported waiver type.
func (t WaiverType) Valid() bool {
	switch t {
	case WaiverTypeScholarship, WaiverTypeFinancialAid, WaiverTypeMerit, WaiverTypeSibling, WaiverTypeOther:
		return true
	}
	return false
}

// FeeWaiver is a discount granted against a ledger entry. Only the flat amount of
// active waivers feeds the entry's discount.
type FeeWaiver struct {
	ID            string          `db:"id" json:"id"`
	LedgerEntryID string          `db:"ledger_entry_id" json:"ledger_entry_id"`
	WaiverType    WaiverType      `db:"waiver_type" json:"waiver_type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Percentage    decimal.Decimal `db:"percentage" json:"percentage"`
	Reason        string          `db:"reason" json:"reason"`
	ApprovedBy    *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedDate  time.Time       `db:"approved_date" json:"approved_date"`
	Active        bool            `db:"active" json:"active"`
	RevokedAt     *time.Time      `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
