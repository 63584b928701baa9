package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
)

type paymentServiceMock struct {
	err            error
	lastEntry      string
	lastPayment    dto.RecordPaymentRequest
	lastAdjustment dto.RecordAdjustmentRequest
	lastReceipt    string
	actor          *models.JWTClaims
}

func (m *paymentServiceMock) RecordPayment(ctx context.Context, entryID string, req dto.RecordPaymentRequest, actor *models.JWTClaims) (*dto.PaymentResult, error) {
	m.lastEntry = entryID
	m.lastPayment = req
	m.actor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &dto.PaymentResult{Payment: models.PaymentTransaction{ReceiptNumber: "RCP-20250110-ABC123", Amount: req.Amount}}, nil
}

func (m *paymentServiceMock) RecordAdjustment(ctx context.Context, entryID string, req dto.RecordAdjustmentRequest, actor *models.JWTClaims) (*dto.PaymentResult, error) {
	m.lastEntry = entryID
	m.lastAdjustment = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.PaymentResult{}, nil
}

func (m *paymentServiceMock) ListPayments(ctx context.Context, entryID string) ([]models.PaymentTransaction, error) {
	m.lastEntry = entryID
	return []models.PaymentTransaction{}, m.err
}

func (m *paymentServiceMock) Reconcile(ctx context.Context, entryID string) (*models.Reconciliation, error) {
	m.lastEntry = entryID
	return &models.Reconciliation{LedgerEntryID: entryID, Consistent: true}, m.err
}

func (m *paymentServiceMock) GetByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error) {
	m.lastReceipt = receipt
	if m.err != nil {
		return nil, m.err
	}
	return &models.PaymentTransaction{ReceiptNumber: receipt, LedgerEntryID: "le-1"}, nil
}

func (m *paymentServiceMock) RenderReceipt(ctx context.Context, receipt string) ([]byte, error) {
	m.lastReceipt = receipt
	if m.err != nil {
		return nil, m.err
	}
	return []byte("%PDF-1.3"), nil
}

func TestPaymentHandlerRecord(t *testing.T) {
	svc := &paymentServiceMock{}
	handler := NewPaymentHandler(svc)

	body := `{"amount":"200.50","payment_method":"cash","payment_date":"2025-01-09"}`
	c, w := newTestContext(http.MethodPost, "/fees/le-1/payments", body, gin.Param{Key: "id", Value: "le-1"})
	handler.Record(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "le-1", svc.lastEntry)
	assert.True(t, svc.lastPayment.Amount.Equal(decimal.RequireFromString("200.50")))
	assert.Equal(t, models.PaymentMethodCash, svc.lastPayment.PaymentMethod)
	require.NotNil(t, svc.actor)
	assert.Equal(t, "admin-1", svc.actor.UserID)
}

func TestPaymentHandlerRecordInvalidAmount(t *testing.T) {
	svc := &paymentServiceMock{err: appErrors.Clone(appErrors.ErrInvalidAmount, "amount must be positive")}
	handler := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodPost, "/fees/le-1/payments", `{"amount":"0","payment_method":"cash"}`, gin.Param{Key: "id", Value: "le-1"})
	handler.Record(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_AMOUNT", decodeEnvelope(t, w).Error.Code)
}

func TestPaymentHandlerRecordConcurrencyConflict(t *testing.T) {
	handler := NewPaymentHandler(&paymentServiceMock{err: appErrors.ErrConcurrencyConflict})

	c, w := newTestContext(http.MethodPost, "/fees/le-1/payments", `{"amount":"10","payment_method":"cash"}`, gin.Param{Key: "id", Value: "le-1"})
	handler.Record(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentHandlerRecordMalformedBody(t *testing.T) {
	svc := &paymentServiceMock{}
	handler := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodPost, "/fees/le-1/payments", `{"amount":"abc"}`, gin.Param{Key: "id", Value: "le-1"})
	handler.Record(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastEntry)
}

func TestPaymentHandlerAdjust(t *testing.T) {
	svc := &paymentServiceMock{}
	handler := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodPost, "/fees/le-1/adjustments", `{"amount":"-25","reason":"duplicate posting"}`, gin.Param{Key: "id", Value: "le-1"})
	handler.Adjust(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.lastAdjustment.Amount.Equal(decimal.NewFromInt(-25)))
	assert.Equal(t, "duplicate posting", svc.lastAdjustment.Reason)
}

func TestPaymentHandlerReconcile(t *testing.T) {
	svc := &paymentServiceMock{}
	handler := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodGet, "/fees/le-1/reconcile", "", gin.Param{Key: "id", Value: "le-1"})
	handler.Reconcile(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "le-1", svc.lastEntry)
}

func TestPaymentHandlerReceipt(t *testing.T) {
	svc := &paymentServiceMock{}
	handler := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodGet, "/payments/RCP-1/receipt.pdf", "", gin.Param{Key: "receipt", Value: "RCP-1"})
	handler.Receipt(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RCP-1", svc.lastReceipt)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "RCP-1.pdf")
}

func TestPaymentHandlerReceiptNotFound(t *testing.T) {
	handler := NewPaymentHandler(&paymentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "receipt not found")})

	c, w := newTestContext(http.MethodGet, "/payments/nope/receipt.pdf", "", gin.Param{Key: "receipt", Value: "nope"})
	handler.Receipt(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandlerGetByReceipt(t *testing.T) {
	svc := &paymentServiceMock{}
	handler := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodGet, "/payments/RCP-1", "", gin.Param{Key: "receipt", Value: "RCP-1"})
	handler.GetByReceipt(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RCP-1", svc.lastReceipt)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"ledger_entry_id":"le-1"`)
}
