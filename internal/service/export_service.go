package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/export"
)

// StatementFormat selects the rendering of a fee statement.
type StatementFormat string

const (
	StatementFormatCSV  StatementFormat = "csv"
	StatementFormatPDF  StatementFormat = "pdf"
	StatementFormatXLSX StatementFormat = "xlsx"
)

type studentLedgerReader interface {
	ListForStudent(ctx context.Context, studentID string) ([]dto.LedgerEntryView, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Statement is a rendered fee statement ready to stream.
type Statement struct {
	Filename    string
	ContentType string
	Body        []byte
}

var statementHeaders = []string{"Class", "Term", "Description", "Due Date", "Amount Due", "Late Fee", "Discount", "Paid", "Balance", "Status"}

// ExportService renders per-student fee statements.
type ExportService struct {
	ledger    studentLedgerReader
	renderers map[StatementFormat]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(ledger studentLedgerReader, logger *zap.Logger, csv, pdf, xlsx datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter("fee-ledger")
	}
	return &ExportService{
		ledger: ledger,
		renderers: map[StatementFormat]datasetRenderer{
			StatementFormatCSV:  csv,
			StatementFormatPDF:  pdf,
			StatementFormatXLSX: xlsx,
		},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Statement renders every ledger entry of a student with a totals row.
func (s *ExportService) Statement(ctx context.Context, studentID string, format StatementFormat) (*Statement, error) {
	if format == "" {
		format = StatementFormatCSV
	}
	renderer, ok := s.renderers[StatementFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported statement format %s", format))
	}

	entries, err := s.ledger.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	dataset := buildStatementDataset(studentID, entries)

	body, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("failed to render statement", zap.String("student_id", studentID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	return &Statement{
		Filename:    fmt.Sprintf("fee_statement_%s_%s.%s", sanitizeFilename(studentID), s.now().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func buildStatementDataset(studentID string, entries []dto.LedgerEntryView) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	var due, late, discount, paid, balance decimal.Decimal
	for _, entry := range entries {
		row := map[string]string{
			"Amount Due": entry.AmountDue.StringFixed(2),
			"Late Fee":   entry.LateFeeCharged.StringFixed(2),
			"Discount":   entry.DiscountAmount.StringFixed(2),
			"Paid":       entry.AmountPaid.StringFixed(2),
			"Balance":    entry.Balance.StringFixed(2),
			"Status":     string(entry.PaymentStatus),
		}
		if entry.Schedule != nil {
			row["Class"] = entry.Schedule.ClassID
			row["Term"] = entry.Schedule.TermID
			row["Description"] = entry.Schedule.Description
			row["Due Date"] = entry.Schedule.DueDate.Format("2006-01-02")
		}
		rows = append(rows, row)

		due = due.Add(entry.AmountDue)
		late = late.Add(entry.LateFeeCharged)
		discount = discount.Add(entry.DiscountAmount)
		paid = paid.Add(entry.AmountPaid)
		balance = balance.Add(entry.Balance)
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Fee statement %s", studentID),
		Headers: statementHeaders,
		Rows:    rows,
		Footer: map[string]string{
			"Class":      "Total",
			"Amount Due": due.StringFixed(2),
			"Late Fee":   late.StringFixed(2),
			"Discount":   discount.StringFixed(2),
			"Paid":       paid.StringFixed(2),
			"Balance":    balance.StringFixed(2),
		},
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
