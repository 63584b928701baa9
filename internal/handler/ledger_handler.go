package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/service"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/response"
)

type ledgerService interface {
	ListForStudent(ctx context.Context, studentID string) ([]dto.LedgerEntryView, error)
	UnpaidSummary(ctx context.Context, studentID string) (*dto.StudentFeeSummary, error)
	Get(ctx context.Context, id string) (*dto.LedgerEntryDetail, error)
	Waive(ctx context.Context, id string, req dto.OverrideRequest, actor *models.JWTClaims) (*dto.LedgerEntryView, error)
	Reopen(ctx context.Context, id string, req dto.OverrideRequest, actor *models.JWTClaims) (*dto.LedgerEntryView, error)
	SendReminders(ctx context.Context) (*dto.ReminderResult, error)
	RefreshOverdue(ctx context.Context) (*dto.SweepResult, error)
}

type statementService interface {
	Statement(ctx context.Context, studentID string, format service.StatementFormat) (*service.Statement, error)
}

// LedgerHandler exposes student fee ledgers and entry level overrides.
type LedgerHandler struct {
	service    ledgerService
	statements statementService
}

// NewLedgerHandler builds a new handler.
func NewLedgerHandler(service ledgerService, statements statementService) *LedgerHandler {
	return &LedgerHandler{service: service, statements: statements}
}

// ListForStudent godoc
// @Summary List every fee entry of a student
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/fees [get]
func (h *LedgerHandler) ListForStudent(c *gin.Context) {
	entries, err := h.service.ListForStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Unpaid godoc
// @Summary List unpaid fee entries with the outstanding balance
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/fees/unpaid [get]
func (h *LedgerHandler) Unpaid(c *gin.Context) {
	summary, err := h.service.UnpaidSummary(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Statement godoc
// @Summary Download a fee statement
// @Tags Fees
// @Produce octet-stream
// @Param studentId path string true "Student ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Router /students/{studentId}/fees/statement [get]
func (h *LedgerHandler) Statement(c *gin.Context) {
	if h.statements == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "statement export not configured"))
		return
	}
	format := service.StatementFormat(c.DefaultQuery("format", string(service.StatementFormatCSV)))
	statement, err := h.statements.Statement(c.Request.Context(), c.Param("studentId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, statement.Filename, statement.ContentType, statement.Body)
}

// Get godoc
// @Summary Get a fee entry with its payments, waivers and history
// @Tags Fees
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Waive godoc
// @Summary Waive the remaining balance of a fee entry
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Param payload body dto.OverrideRequest true "Override reason"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/waive [post]
func (h *LedgerHandler) Waive(c *gin.Context) {
	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	view, err := h.service.Waive(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Reopen godoc
// @Summary Reopen a paid or waived fee entry
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Param payload body dto.OverrideRequest true "Override reason"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/reopen [post]
func (h *LedgerHandler) Reopen(c *gin.Context) {
	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	view, err := h.service.Reopen(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SendReminders godoc
// @Summary Flag unpaid entries for payment reminders
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/reminders [post]
func (h *LedgerHandler) SendReminders(c *gin.Context) {
	result, err := h.service.SendReminders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RefreshOverdue godoc
// @Summary Recompute late fees and statuses of unpaid entries
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/refresh-overdue [post]
func (h *LedgerHandler) RefreshOverdue(c *gin.Context) {
	result, err := h.service.RefreshOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
