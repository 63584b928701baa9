package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/repository"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
	"github.com/noah-isme/sma-fee-ledger/pkg/export"
)

const paymentAuditSource = "payment-service"

type paymentStore interface {
	ListByEntry(ctx context.Context, entryID string) ([]models.PaymentTransaction, error)
	FindByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error)
	SumByEntry(ctx context.Context, entryID string) (decimal.Decimal, error)
}

type receiptRenderer interface {
	RenderReceipt(receipt export.Receipt) ([]byte, error)
}

// PaymentService records payments and adjustments against ledger entries.
type PaymentService struct {
	ledger           ledgerStore
	payments         paymentStore
	schedules        scheduleReader
	mutator          *entryMutator
	audit            auditLogger
	cache            *CacheService
	metrics          *MetricsService
	renderer         receiptRenderer
	validator        *validator.Validate
	logger           *zap.Logger
	allowOverpayment bool
	receipts         receiptNumberFunc
	institution      string
}

// NewPaymentService wires the payment recorder.
func NewPaymentService(
	ledger ledgerStore,
	payments paymentStore,
	schedules scheduleReader,
	audit auditLogger,
	cache *CacheService,
	metrics *MetricsService,
	renderer receiptRenderer,
	opts LedgerOptions,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewPDFExporter()
	}
	return &PaymentService{
		ledger:           ledger,
		payments:         payments,
		schedules:        schedules,
		mutator:          newEntryMutator(ledger, opts, metrics, logger),
		audit:            audit,
		cache:            cache,
		metrics:          metrics,
		renderer:         renderer,
		validator:        validate,
		logger:           logger,
		allowOverpayment: opts.AllowOverpayment,
		receipts:         newReceiptNumber,
		institution:      "SMA",
	}
}

// RecordPayment appends a payment to the journal and applies it to the entry in one
// transaction. A receipt number collision restarts the transaction with a new number.
func (s *PaymentService) RecordPayment(ctx context.Context, entryID string, req dto.RecordPaymentRequest, actor *models.JWTClaims) (*dto.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, invalidAmount("payment amount must be greater than zero")
	}
	if !twoPlaces(req.Amount) {
		return nil, invalidAmount("payment amount supports at most two decimal places")
	}
	now := s.mutator.now()
	paidAt, err := s.paymentDate(req.PaymentDate, now)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		receipt, err := s.receipts(now)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue receipt number")
		}
		payment := &models.PaymentTransaction{
			ReceiptNumber: receipt,
			Kind:          models.TransactionKindPayment,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			PaymentDate:   paidAt,
			TransactionID: req.TransactionID,
			CollectedBy:   actorID(actor),
			Remarks:       req.Remarks,
		}

		entry, _, err := s.mutator.run(ctx, "record_payment", entryID, func(tx repository.LedgerTx, entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, _ time.Time) error {
			if entry.PaymentStatus == models.PaymentStatusWaived {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "ledger entry is waived")
			}
			if !s.allowOverpayment {
				probe := *entry
				probe.Recompute(*schedule, paidAt)
				if req.Amount.GreaterThan(probe.Balance()) {
					return invalidAmount("payment exceeds outstanding balance")
				}
			}
			payment.LedgerEntryID = entry.ID
			if err := tx.InsertPayment(ctx, payment); err != nil {
				return err
			}
			if err := entry.ApplyPayment(req.Amount, *schedule, paidAt); err != nil {
				return err
			}
			method := req.PaymentMethod
			entry.PaymentMethod = &method
			entry.TransactionID = req.TransactionID
			return nil
		})
		if err == nil {
			s.metrics.RecordTransaction(string(models.TransactionKindPayment), string(req.PaymentMethod), req.Amount.InexactFloat64())
			invalidateStudentFees(ctx, s.cache, entry.StudentID)
			s.logger.Info("payment recorded",
				zap.String("ledger_entry_id", entry.ID),
				zap.String("receipt_number", payment.ReceiptNumber),
				zap.String("amount", req.Amount.StringFixed(2)),
				zap.String("status", string(entry.PaymentStatus)),
			)
			return &dto.PaymentResult{Payment: *payment, Entry: dto.NewLedgerEntryView(*entry, nil)}, nil
		}
		if repository.IsDuplicateOn(err, repository.PaymentReceiptConstraint) {
			s.logger.Warn("receipt number collision", zap.String("receipt_number", receipt), zap.Int("attempt", attempt))
			continue
		}
		return nil, ledgerError(err, "record payment")
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "failed to allocate a unique receipt number")
}

// RecordAdjustment journals a signed correction. Negative amounts refund; the entry
// may regress from paid when the correction leaves a balance.
func (s *PaymentService) RecordAdjustment(ctx context.Context, entryID string, req dto.RecordAdjustmentRequest, actor *models.JWTClaims) (*dto.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	if req.Amount.IsZero() {
		return nil, invalidAmount("adjustment amount must not be zero")
	}
	if !twoPlaces(req.Amount) {
		return nil, invalidAmount("adjustment amount supports at most two decimal places")
	}
	now := s.mutator.now()

	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		receipt, err := s.receipts(now)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue receipt number")
		}
		payment := &models.PaymentTransaction{
			ReceiptNumber: receipt,
			Kind:          models.TransactionKindAdjustment,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			PaymentDate:   models.DateOf(now),
			CollectedBy:   actorID(actor),
			Remarks:       req.Reason,
		}
		var before models.LedgerEntry

		entry, _, err := s.mutator.run(ctx, "record_adjustment", entryID, func(tx repository.LedgerTx, entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error {
			before = *entry
			if payment.PaymentMethod == "" {
				payment.PaymentMethod = models.PaymentMethodCash
				if entry.PaymentMethod != nil {
					payment.PaymentMethod = *entry.PaymentMethod
				}
			}
			payment.LedgerEntryID = entry.ID
			if err := entry.ApplyAdjustment(req.Amount, *schedule, asOf); err != nil {
				return err
			}
			return tx.InsertPayment(ctx, payment)
		})
		if err == nil {
			s.metrics.RecordTransaction(string(models.TransactionKindAdjustment), string(payment.PaymentMethod), req.Amount.InexactFloat64())
			invalidateStudentFees(ctx, s.cache, entry.StudentID)
			emitAudit(ctx, s.audit, s.logger, paymentAuditSource, auditEvent{
				actor:      actor,
				action:     models.AuditActionLedgerAdjust,
				resource:   models.AuditResourceLedgerEntry,
				resourceID: entry.ID,
				oldValues:  ledgerSnapshot(before),
				newValues: map[string]interface{}{
					"amount_paid":    entry.AmountPaid,
					"payment_status": entry.PaymentStatus,
					"adjustment":     req.Amount,
					"receipt_number": payment.ReceiptNumber,
					"reason":         req.Reason,
				},
			})
			s.logger.Info("adjustment recorded",
				zap.String("ledger_entry_id", entry.ID),
				zap.String("receipt_number", payment.ReceiptNumber),
				zap.String("amount", req.Amount.StringFixed(2)),
			)
			return &dto.PaymentResult{Payment: *payment, Entry: dto.NewLedgerEntryView(*entry, nil)}, nil
		}
		if repository.IsDuplicateOn(err, repository.PaymentReceiptConstraint) {
			s.logger.Warn("receipt number collision", zap.String("receipt_number", receipt), zap.Int("attempt", attempt))
			continue
		}
		return nil, ledgerError(err, "record adjustment")
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "failed to allocate a unique receipt number")
}

// ListPayments returns the journal of an entry.
func (s *PaymentService) ListPayments(ctx context.Context, entryID string) ([]models.PaymentTransaction, error) {
	if _, err := s.ledger.FindByID(ctx, entryID); err != nil {
		return nil, ledgerError(err, "load ledger entry")
	}
	payments, err := s.payments.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// GetByReceipt loads a journal row by its receipt number.
func (s *PaymentService) GetByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error) {
	payment, err := s.payments.FindByReceipt(ctx, receipt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	return payment, nil
}

// Reconcile compares the journal total with the running amount paid on the entry.
func (s *PaymentService) Reconcile(ctx context.Context, entryID string) (*models.Reconciliation, error) {
	entry, err := s.ledger.FindByID(ctx, entryID)
	if err != nil {
		return nil, ledgerError(err, "load ledger entry")
	}
	total, err := s.payments.SumByEntry(ctx, entryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}
	drift := entry.AmountPaid.Sub(total)
	result := &models.Reconciliation{
		LedgerEntryID: entry.ID,
		AmountPaid:    entry.AmountPaid,
		JournalTotal:  total,
		Drift:         drift,
		Consistent:    drift.IsZero(),
	}
	if !result.Consistent {
		s.logger.Warn("ledger entry drifted from payment journal",
			zap.String("ledger_entry_id", entry.ID),
			zap.String("drift", drift.StringFixed(2)),
		)
	}
	return result, nil
}

// RenderReceipt prints the receipt PDF for a journal row.
func (s *PaymentService) RenderReceipt(ctx context.Context, receipt string) ([]byte, error) {
	payment, err := s.GetByReceipt(ctx, receipt)
	if err != nil {
		return nil, err
	}
	entry, err := s.ledger.FindByID(ctx, payment.LedgerEntryID)
	if err != nil {
		return nil, ledgerError(err, "load ledger entry")
	}

	lines := []export.ReceiptLine{
		{Label: "Date", Value: payment.PaymentDate.Format("2006-01-02")},
		{Label: "Student", Value: entry.StudentID},
		{Label: "Ledger entry", Value: entry.ID},
		{Label: "Type", Value: string(payment.Kind)},
		{Label: "Method", Value: string(payment.PaymentMethod)},
	}
	if s.schedules != nil {
		if schedule, err := s.schedules.FindByID(ctx, entry.FeeCatalogID); err == nil {
			lines = append(lines,
				export.ReceiptLine{Label: "Class", Value: schedule.ClassID},
				export.ReceiptLine{Label: "Term", Value: schedule.TermID},
			)
		} else {
			s.logger.Warn("receipt schedule lookup failed", zap.String("fee_catalog_id", entry.FeeCatalogID), zap.Error(err))
		}
	}
	if payment.TransactionID != "" {
		lines = append(lines, export.ReceiptLine{Label: "Reference", Value: payment.TransactionID})
	}
	if payment.CollectedBy != nil {
		lines = append(lines, export.ReceiptLine{Label: "Collected by", Value: *payment.CollectedBy})
	}
	lines = append(lines, export.ReceiptLine{Label: "Balance", Value: entry.Balance().StringFixed(2)})

	doc, err := s.renderer.RenderReceipt(export.Receipt{
		Institution:   s.institution,
		ReceiptNumber: payment.ReceiptNumber,
		Lines:         lines,
		Amount:        payment.Amount.StringFixed(2),
		Note:          payment.Remarks,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return doc, nil
}

func (s *PaymentService) paymentDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return models.DateOf(now), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment date")
	}
	if date.After(models.DateOf(now)) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "payment date cannot be in the future")
	}
	return date, nil
}

func ledgerSnapshot(entry models.LedgerEntry) map[string]interface{} {
	return map[string]interface{}{
		"amount_paid":      entry.AmountPaid,
		"late_fee_charged": entry.LateFeeCharged,
		"discount_amount":  entry.DiscountAmount,
		"payment_status":   entry.PaymentStatus,
		"payment_date":     entry.PaymentDate,
		"version":          entry.Version,
	}
}
