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
)

const waiverAuditSource = "waiver-service"

var hundred = decimal.NewFromInt(100)

type waiverStore interface {
	FindByID(ctx context.Context, id string) (*models.FeeWaiver, error)
	ListByEntry(ctx context.Context, entryID string) ([]models.FeeWaiver, error)
}

// WaiverService grants and revokes discounts. The entry discount is always the fresh
// sum of its active waivers.
type WaiverService struct {
	ledger    ledgerStore
	waivers   waiverStore
	mutator   *entryMutator
	audit     auditLogger
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWaiverService wires the waiver engine.
func NewWaiverService(
	ledger ledgerStore,
	waivers waiverStore,
	audit auditLogger,
	cache *CacheService,
	metrics *MetricsService,
	opts LedgerOptions,
	validate *validator.Validate,
	logger *zap.Logger,
) *WaiverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaiverService{
		ledger:    ledger,
		waivers:   waivers,
		mutator:   newEntryMutator(ledger, opts, metrics, logger),
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Grant records a waiver and re-aggregates the entry discount. A percentage-only waiver
// is converted to a flat amount of the entry's amount due.
func (s *WaiverService) Grant(ctx context.Context, entryID string, req dto.GrantWaiverRequest, actor *models.JWTClaims) (*dto.WaiverResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid waiver payload")
	}
	if req.Amount.IsNegative() {
		return nil, invalidAmount("waiver amount must not be negative")
	}
	if req.Percentage.IsNegative() || req.Percentage.GreaterThan(hundred) {
		return nil, invalidAmount("waiver percentage must be between 0 and 100")
	}
	if req.Amount.IsZero() && req.Percentage.IsZero() {
		return nil, invalidAmount("waiver requires an amount or a percentage")
	}
	if !twoPlaces(req.Amount) || !twoPlaces(req.Percentage) {
		return nil, invalidAmount("waiver values support at most two decimal places")
	}

	now := s.mutator.now()
	waiver := &models.FeeWaiver{
		WaiverType:   req.WaiverType,
		Amount:       req.Amount,
		Percentage:   req.Percentage,
		Reason:       req.Reason,
		ApprovedBy:   actorID(actor),
		ApprovedDate: models.DateOf(now),
		Active:       true,
	}

	entry, _, err := s.mutator.run(ctx, "grant_waiver", entryID, func(tx repository.LedgerTx, entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error {
		if entry.PaymentStatus == models.PaymentStatusWaived {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "ledger entry is waived")
		}
		waiver.ID = ""
		waiver.LedgerEntryID = entry.ID
		if req.Amount.IsZero() {
			waiver.Amount = entry.AmountDue.Mul(req.Percentage).Div(hundred).Round(2)
		}
		if err := tx.InsertWaiver(ctx, waiver); err != nil {
			return err
		}
		total, err := tx.SumActiveWaivers(ctx, entry.ID)
		if err != nil {
			return err
		}
		return entry.ApplyWaiverAggregate(total, *schedule, asOf)
	})
	if err != nil {
		return nil, ledgerError(err, "grant waiver")
	}

	s.metrics.RecordWaiver("grant", string(waiver.WaiverType))
	invalidateStudentFees(ctx, s.cache, entry.StudentID)
	emitAudit(ctx, s.audit, s.logger, waiverAuditSource, auditEvent{
		actor:      actor,
		action:     models.AuditActionWaiverGrant,
		resource:   models.AuditResourceFeeWaiver,
		resourceID: waiver.ID,
		newValues:  waiver,
	})
	s.logger.Info("waiver granted",
		zap.String("ledger_entry_id", entry.ID),
		zap.String("waiver_id", waiver.ID),
		zap.String("amount", waiver.Amount.StringFixed(2)),
		zap.String("discount_amount", entry.DiscountAmount.StringFixed(2)),
	)
	return &dto.WaiverResult{Waiver: *waiver, Entry: dto.NewLedgerEntryView(*entry, nil)}, nil
}

// Revoke deactivates a waiver and re-aggregates. When the entry is paid and revoking
// would leave it owing, reopen must be set; the entry then re-derives its late fee.
func (s *WaiverService) Revoke(ctx context.Context, waiverID string, reopen bool, actor *models.JWTClaims) (*dto.WaiverResult, error) {
	existing, err := s.waivers.FindByID(ctx, waiverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "waiver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiver")
	}

	var revoked models.FeeWaiver
	entry, _, err := s.mutator.run(ctx, "revoke_waiver", existing.LedgerEntryID, func(tx repository.LedgerTx, entry *models.LedgerEntry, schedule *models.FeeCatalogEntry, asOf time.Time) error {
		waiver, err := tx.LockWaiver(ctx, waiverID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "waiver not found")
			}
			return err
		}
		if !waiver.Active {
			return appErrors.Clone(appErrors.ErrConflict, "waiver already revoked")
		}
		if err := tx.DeactivateWaiver(ctx, waiver.ID, asOf); err != nil {
			return err
		}
		total, err := tx.SumActiveWaivers(ctx, entry.ID)
		if err != nil {
			return err
		}

		wasPaid := entry.PaymentStatus == models.PaymentStatusPaid
		if err := entry.ApplyWaiverAggregate(total, *schedule, asOf); err != nil {
			return err
		}
		if wasPaid && entry.Balance().IsPositive() {
			if !reopen {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "revoking this waiver reopens a paid entry; retry with reopen=true")
			}
			entry.Reopen(*schedule, asOf)
		}

		revokedAt := asOf
		waiver.Active = false
		waiver.RevokedAt = &revokedAt
		revoked = *waiver
		return nil
	})
	if err != nil {
		return nil, ledgerError(err, "revoke waiver")
	}

	s.metrics.RecordWaiver("revoke", string(revoked.WaiverType))
	invalidateStudentFees(ctx, s.cache, entry.StudentID)
	emitAudit(ctx, s.audit, s.logger, waiverAuditSource, auditEvent{
		actor:      actor,
		action:     models.AuditActionWaiverRevoke,
		resource:   models.AuditResourceFeeWaiver,
		resourceID: revoked.ID,
		oldValues:  map[string]interface{}{"active": true, "amount": revoked.Amount},
		newValues: map[string]interface{}{
			"active":          false,
			"reopen":          reopen,
			"discount_amount": entry.DiscountAmount,
			"payment_status":  entry.PaymentStatus,
		},
	})
	s.logger.Info("waiver revoked",
		zap.String("ledger_entry_id", entry.ID),
		zap.String("waiver_id", revoked.ID),
		zap.String("discount_amount", entry.DiscountAmount.StringFixed(2)),
	)
	return &dto.WaiverResult{Waiver: revoked, Entry: dto.NewLedgerEntryView(*entry, nil)}, nil
}

// List returns every waiver granted against an entry.
func (s *WaiverService) List(ctx context.Context, entryID string) ([]models.FeeWaiver, error) {
	if _, err := s.ledger.FindByID(ctx, entryID); err != nil {
		return nil, ledgerError(err, "load ledger entry")
	}
	waivers, err := s.waivers.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waivers")
	}
	return waivers, nil
}
