package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// FeeComponentsPayload carries the individual charges of a catalog line.
type FeeComponentsPayload struct {
	TuitionFee   decimal.Decimal `json:"tuition_fee"`
	LibraryFee   decimal.Decimal `json:"library_fee"`
	LabFee       decimal.Decimal `json:"lab_fee"`
	SportsFee    decimal.Decimal `json:"sports_fee"`
	TransportFee decimal.Decimal `json:"transport_fee"`
	OtherFee     decimal.Decimal `json:"other_fee"`
}

// Components converts the payload into the model value.
func (p FeeComponentsPayload) Components() models.FeeComponents {
	return models.FeeComponents{
		TuitionFee:   p.TuitionFee,
		LibraryFee:   p.LibraryFee,
		LabFee:       p.LabFee,
		SportsFee:    p.SportsFee,
		TransportFee: p.TransportFee,
		OtherFee:     p.OtherFee,
	}
}

// CreateFeeCatalogRequest defines a new fee schedule.
type CreateFeeCatalogRequest struct {
	ClassID   string              `json:"class_id" validate:"required,max=64"`
	TermID    string              `json:"term_id" validate:"required,max=64"`
	Frequency models.FeeFrequency `json:"frequency" validate:"omitempty,oneof=monthly quarterly semester annual"`
	FeeComponentsPayload
	DueDate          string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	LateFeeAmount    decimal.Decimal `json:"late_fee_amount"`
	LateFeeGraceDays *int            `json:"late_fee_grace_days" validate:"omitempty,min=0,max=365"`
	Description      string          `json:"description" validate:"max=500"`
}

// UpdateFeeCatalogRequest corrects the amounts and dates of a fee schedule.
type UpdateFeeCatalogRequest struct {
	FeeComponentsPayload
	DueDate          string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	LateFeeAmount    decimal.Decimal `json:"late_fee_amount"`
	LateFeeGraceDays *int            `json:"late_fee_grace_days" validate:"omitempty,min=0,max=365"`
	Description      string          `json:"description" validate:"max=500"`
}

// SetFeeCatalogActiveRequest toggles provisioning for a schedule.
type SetFeeCatalogActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
