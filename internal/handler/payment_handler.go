package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/response"
)

type paymentService interface {
	RecordPayment(ctx context.Context, entryID string, req dto.RecordPaymentRequest, actor *models.JWTClaims) (*dto.PaymentResult, error)
	RecordAdjustment(ctx context.Context, entryID string, req dto.RecordAdjustmentRequest, actor *models.JWTClaims) (*dto.PaymentResult, error)
	ListPayments(ctx context.Context, entryID string) ([]models.PaymentTransaction, error)
	Reconcile(ctx context.Context, entryID string) (*models.Reconciliation, error)
	GetByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error)
	RenderReceipt(ctx context.Context, receipt string) ([]byte, error)
}

// PaymentHandler exposes payment recording endpoints.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler builds a new handler.
func NewPaymentHandler(service paymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Record godoc
// @Summary Record a payment against a fee entry
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	result, err := h.service.RecordPayment(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Adjust godoc
// @Summary Record a signed correction to the amount paid
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Param payload body dto.RecordAdjustmentRequest true "Adjustment payload"
// @Success 201 {object} response.Envelope
// @Router /fees/{id}/adjustments [post]
func (h *PaymentHandler) Adjust(c *gin.Context) {
	var req dto.RecordAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}
	result, err := h.service.RecordAdjustment(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List the payment journal of a fee entry
// @Tags Payments
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	payments, err := h.service.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Reconcile godoc
// @Summary Compare the payment journal with the entry total
// @Tags Payments
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/reconcile [get]
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	result, err := h.service.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetByReceipt godoc
// @Summary Look up a journal row by receipt number
// @Tags Payments
// @Produce json
// @Param receipt path string true "Receipt number"
// @Success 200 {object} response.Envelope
// @Router /payments/{receipt} [get]
func (h *PaymentHandler) GetByReceipt(c *gin.Context) {
	payment, err := h.service.GetByReceipt(c.Request.Context(), c.Param("receipt"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Receipt godoc
// @Summary Download a payment receipt
// @Tags Payments
// @Produce application/pdf
// @Param receipt path string true "Receipt number"
// @Success 200 {file} file
// @Router /payments/{receipt}/receipt.pdf [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	receipt := c.Param("receipt")
	body, err := h.service.RenderReceipt(c.Request.Context(), receipt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, receipt+".pdf", "application/pdf", body)
}
