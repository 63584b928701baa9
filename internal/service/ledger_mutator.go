package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/repository"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
)

// ledgerStore is the persistence surface shared by the ledger services.
type ledgerStore interface {
	FindByID(ctx context.Context, id string) (*models.LedgerEntry, error)
	List(ctx context.Context, filter models.LedgerEntryFilter) ([]models.LedgerEntry, error)
	ListUnpaidAfter(ctx context.Context, afterID string, limit int) ([]models.LedgerEntry, error)
	Provision(ctx context.Context, entry *models.LedgerEntry) (bool, error)
	MarkNotified(ctx context.Context, ids []string, at time.Time) (int64, error)
	WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error
}

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.FeeCatalogEntry, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.FeeCatalogEntry, error)
}

// LedgerOptions tunes the locked read-modify-write cycle.
type LedgerOptions struct {
	MaxRetries       int
	RetryBackoff     time.Duration
	AllowOverpayment bool
}

// errUnchanged aborts a mutation without writing when nothing moved.
var errUnchanged = errors.New("ledger entry unchanged")

// mutation edits a locked entry. The caller persists the entry when it returns nil.
type mutation func(tx repository.LedgerTx, entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error

// entryMutator runs mutations under a row lock and retries lost races.
type entryMutator struct {
	store      ledgerStore
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	metrics    *MetricsService
	logger     *zap.Logger
}

func newEntryMutator(store ledgerStore, opts LedgerOptions, metrics *MetricsService, logger *zap.Logger) *entryMutator {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &entryMutator{
		store:      store,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		now:        func() time.Time { return time.Now().UTC() },
		metrics:    metrics,
		logger:     logger,
	}
}

// run locks the entry, applies fn and writes the result with a version check. Conflicts
// restart the whole transaction; other errors are returned untouched.
func (m *entryMutator) run(ctx context.Context, op, entryID string, fn mutation) (*models.LedgerEntry, *models.FeeCatalogEntry, error) {
	var lastErr error
	for attempt := 1; attempt <= m.maxRetries+1; attempt++ {
		var (
			entry    *models.LedgerEntry
			schedule *models.FeeCatalogEntry
		)
		err := m.store.WithinTx(ctx, func(tx repository.LedgerTx) error {
			locked, err := tx.LockEntry(ctx, entryID)
			if err != nil {
				return err
			}
			sched, err := tx.LoadSchedule(ctx, locked.FeeCatalogID)
			if err != nil {
				return err
			}
			if err := fn(tx, locked, sched, m.now()); err != nil {
				return err
			}
			if err := tx.UpdateEntry(ctx, locked); err != nil {
				return err
			}
			entry, schedule = locked, sched
			return nil
		})
		if err == nil {
			return entry, schedule, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, nil, err
		}

		lastErr = err
		m.metrics.RecordConflict(op)
		m.logger.Warn("ledger entry update conflicted",
			zap.String("operation", op),
			zap.String("ledger_entry_id", entryID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt > m.maxRetries {
			break
		}
		if err := sleepContext(ctx, m.backoff*time.Duration(attempt)); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, appErrors.Wrap(lastErr, appErrors.ErrConcurrencyConflict.Code, appErrors.ErrConcurrencyConflict.Status, appErrors.ErrConcurrencyConflict.Message)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ledgerError maps repository and state machine failures onto API errors.
func ledgerError(err error, action string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrEntryNotFound
	case errors.Is(err, models.ErrNonPositivePayment),
		errors.Is(err, models.ErrZeroAdjustment),
		errors.Is(err, models.ErrNegativeAmountPaid),
		errors.Is(err, models.ErrNegativeDiscount),
		errors.Is(err, models.ErrNegativeAmountDue):
		return appErrors.Wrap(err, appErrors.ErrInvalidAmount.Code, appErrors.ErrInvalidAmount.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action)
}

func invalidAmount(message string) error {
	return appErrors.Clone(appErrors.ErrInvalidAmount, message)
}

// twoPlaces reports whether v fits the two decimal places stored for money.
func twoPlaces(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}
