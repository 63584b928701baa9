package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/service"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
)

type ledgerServiceMock struct {
	err          error
	lastStudent  string
	lastID       string
	lastOverride dto.OverrideRequest
	summary      *dto.StudentFeeSummary
}

func (m *ledgerServiceMock) ListForStudent(ctx context.Context, studentID string) ([]dto.LedgerEntryView, error) {
	m.lastStudent = studentID
	if m.err != nil {
		return nil, m.err
	}
	return []dto.LedgerEntryView{{LedgerEntry: models.LedgerEntry{ID: "le-1", StudentID: studentID}}}, nil
}

func (m *ledgerServiceMock) UnpaidSummary(ctx context.Context, studentID string) (*dto.StudentFeeSummary, error) {
	m.lastStudent = studentID
	return m.summary, m.err
}

func (m *ledgerServiceMock) Get(ctx context.Context, id string) (*dto.LedgerEntryDetail, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return &dto.LedgerEntryDetail{LedgerEntryView: dto.LedgerEntryView{LedgerEntry: models.LedgerEntry{ID: id}}}, nil
}

func (m *ledgerServiceMock) Waive(ctx context.Context, id string, req dto.OverrideRequest, actor *models.JWTClaims) (*dto.LedgerEntryView, error) {
	m.lastID = id
	m.lastOverride = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.LedgerEntryView{LedgerEntry: models.LedgerEntry{ID: id, PaymentStatus: models.PaymentStatusWaived}}, nil
}

func (m *ledgerServiceMock) Reopen(ctx context.Context, id string, req dto.OverrideRequest, actor *models.JWTClaims) (*dto.LedgerEntryView, error) {
	m.lastID = id
	m.lastOverride = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.LedgerEntryView{LedgerEntry: models.LedgerEntry{ID: id, PaymentStatus: models.PaymentStatusPending}}, nil
}

func (m *ledgerServiceMock) SendReminders(ctx context.Context) (*dto.ReminderResult, error) {
	return &dto.ReminderResult{Notified: 3, Pending: 2, Overdue: 1}, m.err
}

func (m *ledgerServiceMock) RefreshOverdue(ctx context.Context) (*dto.SweepResult, error) {
	return &dto.SweepResult{Scanned: 4, Updated: 1}, m.err
}

type statementServiceMock struct {
	format service.StatementFormat
	err    error
}

func (m *statementServiceMock) Statement(ctx context.Context, studentID string, format service.StatementFormat) (*service.Statement, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.Statement{Filename: "fee_statement_" + studentID + ".csv", ContentType: "text/csv", Body: []byte("Class,Term\n")}, nil
}

func TestLedgerHandlerListForStudent(t *testing.T) {
	svc := &ledgerServiceMock{}
	handler := NewLedgerHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/students/stu-1/fees", "", gin.Param{Key: "studentId", Value: "stu-1"})
	handler.ListForStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.lastStudent)
	var entries []dto.LedgerEntryView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "le-1", entries[0].ID)
}

func TestLedgerHandlerUnpaidReturnsTotal(t *testing.T) {
	svc := &ledgerServiceMock{summary: &dto.StudentFeeSummary{StudentID: "stu-1", TotalUnpaid: decimal.RequireFromString("550.00")}}
	handler := NewLedgerHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/students/stu-1/fees/unpaid", "", gin.Param{Key: "studentId", Value: "stu-1"})
	handler.Unpaid(c)

	require.Equal(t, http.StatusOK, w.Code)
	var summary dto.StudentFeeSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &summary))
	assert.True(t, summary.TotalUnpaid.Equal(decimal.NewFromInt(550)))
}

func TestLedgerHandlerStatementStreamsAttachment(t *testing.T) {
	statements := &statementServiceMock{}
	handler := NewLedgerHandler(&ledgerServiceMock{}, statements)

	c, w := newTestContext(http.MethodGet, "/students/stu-1/fees/statement", "", gin.Param{Key: "studentId", Value: "stu-1"})
	handler.Statement(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.StatementFormatCSV, statements.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "fee_statement_stu-1.csv")
	assert.Equal(t, "Class,Term\n", w.Body.String())
}

func TestLedgerHandlerStatementUnsupportedFormat(t *testing.T) {
	statements := &statementServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "unsupported statement format doc")}
	handler := NewLedgerHandler(&ledgerServiceMock{}, statements)

	c, w := newTestContext(http.MethodGet, "/students/stu-1/fees/statement?format=doc", "", gin.Param{Key: "studentId", Value: "stu-1"})
	handler.Statement(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.StatementFormat("doc"), statements.format)
}

func TestLedgerHandlerWaiveRequiresBody(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceMock{}, nil)

	c, w := newTestContext(http.MethodPost, "/fees/le-1/waive", `{"reason":`, gin.Param{Key: "id", Value: "le-1"})
	handler.Waive(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandlerWaiveAndReopen(t *testing.T) {
	svc := &ledgerServiceMock{}
	handler := NewLedgerHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/fees/le-1/waive", `{"reason":"hardship"}`, gin.Param{Key: "id", Value: "le-1"})
	handler.Waive(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hardship", svc.lastOverride.Reason)

	c, w = newTestContext(http.MethodPost, "/fees/le-1/reopen", `{"reason":"waived in error"}`, gin.Param{Key: "id", Value: "le-1"})
	handler.Reopen(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "waived in error", svc.lastOverride.Reason)
}

func TestLedgerHandlerGetMissingEntry(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceMock{err: appErrors.ErrEntryNotFound}, nil)

	c, w := newTestContext(http.MethodGet, "/fees/missing", "", gin.Param{Key: "id", Value: "missing"})
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ENTRY_NOT_FOUND", decodeEnvelope(t, w).Error.Code)
}

func TestLedgerHandlerBatchOperations(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceMock{}, nil)

	c, w := newTestContext(http.MethodPost, "/fees/reminders", "")
	handler.SendReminders(c)
	require.Equal(t, http.StatusOK, w.Code)
	var reminders dto.ReminderResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &reminders))
	assert.Equal(t, int64(3), reminders.Notified)

	c, w = newTestContext(http.MethodPost, "/fees/refresh-overdue", "")
	handler.RefreshOverdue(c)
	require.Equal(t, http.StatusOK, w.Code)
	var sweep dto.SweepResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &sweep))
	assert.Equal(t, 4, sweep.Scanned)
}
