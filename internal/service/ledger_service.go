package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/repository"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
)

const (
	ledgerAuditSource = "ledger-service"
	sweepPageSize     = 200
)

type auditTrail interface {
	auditLogger
	ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error)
}

// LedgerService answers ledger queries and runs administrative overrides and sweeps.
type LedgerService struct {
	ledger    ledgerStore
	schedules scheduleReader
	payments  paymentStore
	waivers   waiverStore
	mutator   *entryMutator
	audit     auditTrail
	cache     *CacheService
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService wires ledger queries and overrides.
func NewLedgerService(
	ledger ledgerStore,
	schedules scheduleReader,
	payments paymentStore,
	waivers waiverStore,
	audit auditTrail,
	cache *CacheService,
	cacheTTL time.Duration,
	metrics *MetricsService,
	opts LedgerOptions,
	validate *validator.Validate,
	logger *zap.Logger,
) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		ledger:    ledger,
		schedules: schedules,
		payments:  payments,
		waivers:   waivers,
		mutator:   newEntryMutator(ledger, opts, metrics, logger),
		audit:     audit,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ListForStudent returns every entry of a student with late fee and status projected to now.
func (s *LedgerService) ListForStudent(ctx context.Context, studentID string) ([]dto.LedgerEntryView, error) {
	entries, err := s.ledger.List(ctx, models.LedgerEntryFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger entries")
	}
	return s.project(ctx, entries, s.mutator.now())
}

// UnpaidSummary returns the pending, partial and overdue entries of a student with the
// outstanding total.
func (s *LedgerService) UnpaidSummary(ctx context.Context, studentID string) (*dto.StudentFeeSummary, error) {
	key := studentFeesKey(studentID, "unpaid")
	var cached dto.StudentFeeSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	now := s.mutator.now()
	entries, err := s.ledger.List(ctx, models.LedgerEntryFilter{StudentID: studentID, Statuses: models.UnpaidStatuses})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unpaid ledger entries")
	}
	views, err := s.project(ctx, entries, now)
	if err != nil {
		return nil, err
	}

	unpaid := make([]dto.LedgerEntryView, 0, len(views))
	for _, view := range views {
		if view.PaymentStatus.Unpaid() {
			unpaid = append(unpaid, view)
		}
	}
	summary := &dto.StudentFeeSummary{
		StudentID:   studentID,
		Entries:     unpaid,
		TotalUnpaid: totalOutstanding(unpaid),
		AsOf:        now,
	}
	_ = s.cache.Set(ctx, key, summary, s.cacheTTL)
	return summary, nil
}

// TotalUnpaidBalance sums the outstanding balance of a student's unpaid entries.
func (s *LedgerService) TotalUnpaidBalance(ctx context.Context, studentID string) (decimal.Decimal, error) {
	summary, err := s.UnpaidSummary(ctx, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.TotalUnpaid, nil
}

// Get returns an entry with its payments, waivers and override history.
func (s *LedgerService) Get(ctx context.Context, id string) (*dto.LedgerEntryDetail, error) {
	entry, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, ledgerError(err, "load ledger entry")
	}
	views, err := s.project(ctx, []models.LedgerEntry{*entry}, s.mutator.now())
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.ListByEntry(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	waivers, err := s.waivers.ListByEntry(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waivers")
	}
	detail := &dto.LedgerEntryDetail{LedgerEntryView: views[0], Payments: payments, Waivers: waivers}
	if s.audit != nil {
		history, err := s.audit.ListByResource(ctx, models.AuditResourceLedgerEntry, id)
		if err != nil {
			s.logger.Warn("failed to load ledger history", zap.String("ledger_entry_id", id), zap.Error(err))
		} else {
			detail.History = history
		}
	}
	return detail, nil
}

// Waive forgives the entry. Waived is terminal until reopened.
func (s *LedgerService) Waive(ctx context.Context, id string, req dto.OverrideRequest, actor *models.JWTClaims) (*dto.LedgerEntryView, error) {
	return s.override(ctx, id, req, actor, "waive_entry", models.AuditActionLedgerWaive, func(entry *models.LedgerEntry, _ *models.FeeCatalogEntry, _ time.Time) error {
		if entry.PaymentStatus == models.PaymentStatusWaived {
			return appErrors.Clone(appErrors.ErrConflict, "ledger entry is already waived")
		}
		entry.Waive()
		return nil
	})
}

// Reopen clears a waived or settled state and derives the status from balance and date.
func (s *LedgerService) Reopen(ctx context.Context, id string, req dto.OverrideRequest, actor *models.JWTClaims) (*dto.LedgerEntryView, error) {
	return s.override(ctx, id, req, actor, "reopen_entry", models.AuditActionLedgerReopen, func(entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error {
		entry.Reopen(*schedule, asOf)
		return nil
	})
}

func (s *LedgerService) override(
	ctx context.Context,
	id string,
	req dto.OverrideRequest,
	actor *models.JWTClaims,
	op, action string,
	apply func(entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error,
) (*dto.LedgerEntryView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	var before models.LedgerEntry
	entry, schedule, err := s.mutator.run(ctx, op, id, func(_ repository.LedgerTx, entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error {
		before = *entry
		if err := apply(entry, schedule, asOf); err != nil {
			return err
		}
		entry.Remarks = req.Reason
		return nil
	})
	if err != nil {
		return nil, ledgerError(err, op)
	}

	invalidateStudentFees(ctx, s.cache, entry.StudentID)
	after := ledgerSnapshot(*entry)
	after["reason"] = req.Reason
	emitAudit(ctx, s.audit, s.logger, ledgerAuditSource, auditEvent{
		actor:      actor,
		action:     action,
		resource:   models.AuditResourceLedgerEntry,
		resourceID: entry.ID,
		oldValues:  ledgerSnapshot(before),
		newValues:  after,
	})
	s.logger.Info("ledger entry overridden",
		zap.String("operation", op),
		zap.String("ledger_entry_id", entry.ID),
		zap.String("status", string(entry.PaymentStatus)),
	)
	view := dto.NewLedgerEntryView(*entry, schedule)
	return &view, nil
}

// SendReminders flags pending and overdue entries that were not reminded yet.
func (s *LedgerService) SendReminders(ctx context.Context) (*dto.ReminderResult, error) {
	notified := false
	entries, err := s.ledger.List(ctx, models.LedgerEntryFilter{
		Statuses: []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusOverdue},
		Notified: &notified,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reminder candidates")
	}

	result := &dto.ReminderResult{}
	ids := make([]string, 0, len(entries))
	students := make(map[string]struct{})
	for _, entry := range entries {
		ids = append(ids, entry.ID)
		students[entry.StudentID] = struct{}{}
		if entry.PaymentStatus == models.PaymentStatusOverdue {
			result.Overdue++
		} else {
			result.Pending++
		}
	}
	count, err := s.ledger.MarkNotified(ctx, ids, s.mutator.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark reminders")
	}
	result.Notified = count
	for studentID := range students {
		invalidateStudentFees(ctx, s.cache, studentID)
	}
	s.logger.Info("fee reminders flagged", zap.Int64("notified", count), zap.Int("pending", result.Pending), zap.Int("overdue", result.Overdue))
	return result, nil
}

// RefreshOverdue persists late fees and statuses that moved with the calendar.
func (s *LedgerService) RefreshOverdue(ctx context.Context) (*dto.SweepResult, error) {
	result := &dto.SweepResult{}
	afterID := ""
	for {
		entries, err := s.ledger.ListUnpaidAfter(ctx, afterID, sweepPageSize)
		if err != nil {
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unpaid ledger entries")
		}
		if len(entries) == 0 {
			break
		}
		schedules, err := s.schedules.FindByIDs(ctx, catalogIDs(entries))
		if err != nil {
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee schedules")
		}

		now := s.mutator.now()
		for _, entry := range entries {
			result.Scanned++
			schedule, ok := schedules[entry.FeeCatalogID]
			if !ok || !drifted(entry, schedule, now) {
				continue
			}
			updated, _, err := s.mutator.run(ctx, "refresh_overdue", entry.ID, func(_ repository.LedgerTx, locked *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error {
				if !drifted(*locked, *schedule, asOf) {
					return errUnchanged
				}
				locked.Recompute(*schedule, asOf)
				return nil
			})
			switch {
			case err == nil:
				result.Updated++
				invalidateStudentFees(ctx, s.cache, updated.StudentID)
			case errors.Is(err, errUnchanged):
			case errors.Is(err, appErrors.ErrConcurrencyConflict):
				result.Conflicts++
			default:
				return result, ledgerError(err, "refresh overdue entry")
			}
		}

		afterID = entries[len(entries)-1].ID
		if len(entries) < sweepPageSize {
			break
		}
	}
	s.metrics.RecordSweepUpdates(result.Updated)
	s.logger.Info("overdue sweep finished", zap.Int("scanned", result.Scanned), zap.Int("updated", result.Updated), zap.Int("conflicts", result.Conflicts))
	return result, nil
}

// StartOverdueSweep runs RefreshOverdue on every tick until ctx is cancelled.
func (s *LedgerService) StartOverdueSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RefreshOverdue(ctx); err != nil {
					s.logger.Warn("overdue sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *LedgerService) project(ctx context.Context, entries []models.LedgerEntry, asOf time.Time) ([]dto.LedgerEntryView, error) {
	views := make([]dto.LedgerEntryView, 0, len(entries))
	if len(entries) == 0 {
		return views, nil
	}
	schedules, err := s.schedules.FindByIDs(ctx, catalogIDs(entries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee schedules")
	}
	for _, entry := range entries {
		schedule, ok := schedules[entry.FeeCatalogID]
		if !ok {
			views = append(views, dto.NewLedgerEntryView(entry, nil))
			continue
		}
		entry.Recompute(schedule, asOf)
		views = append(views, dto.NewLedgerEntryView(entry, &schedule))
	}
	return views, nil
}

// drifted reports whether recomputing at asOf would change the stored entry.
func drifted(entry models.LedgerEntry, schedule models.FeeCatalogEntry, asOf time.Time) bool {
	probe := entry
	probe.Recompute(schedule, asOf)
	return probe.PaymentStatus != entry.PaymentStatus || !probe.LateFeeCharged.Equal(entry.LateFeeCharged)
}

func totalOutstanding(views []dto.LedgerEntryView) decimal.Decimal {
	total := decimal.Zero
	for _, view := range views {
		if view.Balance.IsPositive() {
			total = total.Add(view.Balance)
		}
	}
	return total
}

func catalogIDs(entries []models.LedgerEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.FeeCatalogID]; ok {
			continue
		}
		seen[entry.FeeCatalogID] = struct{}{}
		ids = append(ids, entry.FeeCatalogID)
	}
	return ids
}

func studentFeesKey(studentID, view string) string {
	return "fees:student:" + studentID + ":" + view
}

func invalidateStudentFees(ctx context.Context, cache *CacheService, studentID string) {
	_ = cache.Invalidate(ctx, studentFeesKey(studentID, "*"))
}
