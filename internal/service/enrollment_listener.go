package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// EnrollmentObserver reacts to enrollment lifecycle events.
type EnrollmentObserver interface {
	OnEnrollmentActivated(ctx context.Context, event models.EnrollmentActivated) error
}

type activeScheduleLister interface {
	ListActiveForClassTerm(ctx context.Context, classID, termID string) ([]models.FeeCatalogEntry, error)
}

type entryProvisioner interface {
	Provision(ctx context.Context, entry *models.LedgerEntry) (bool, error)
}

// FeeProvisioner creates one ledger entry per active catalog line when a student is
// enrolled. Replaying an event is harmless.
type FeeProvisioner struct {
	catalog activeScheduleLister
	ledger  entryProvisioner
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewFeeProvisioner constructs the enrollment observer.
func NewFeeProvisioner(catalog activeScheduleLister, ledger entryProvisioner, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *FeeProvisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeProvisioner{catalog: catalog, ledger: ledger, cache: cache, metrics: metrics, logger: logger}
}

// OnEnrollmentActivated provisions the student's entries. Every catalog line is tried;
// storage failures are logged per line and reported together so the event can be retried.
func (p *FeeProvisioner) OnEnrollmentActivated(ctx context.Context, event models.EnrollmentActivated) error {
	log := p.logger.With(
		zap.String("student_id", event.StudentID),
		zap.String("class_id", event.ClassID),
		zap.String("term_id", event.TermID),
	)
	if event.StudentID == "" || event.ClassID == "" || event.TermID == "" {
		log.Warn("ignoring incomplete enrollment event")
		return nil
	}

	schedules, err := p.catalog.ListActiveForClassTerm(ctx, event.ClassID, event.TermID)
	if err != nil {
		p.metrics.RecordProvisioned("failed")
		log.Error("failed to load fee schedules for enrollment", zap.Error(err))
		return fmt.Errorf("list fee schedules for class %s term %s: %w", event.ClassID, event.TermID, err)
	}
	if len(schedules) == 0 {
		log.Debug("no active fee schedule for enrollment")
		return nil
	}

	created, failed := 0, 0
	for _, schedule := range schedules {
		entry, err := models.NewLedgerEntry("", event.StudentID, schedule)
		if err != nil {
			p.metrics.RecordProvisioned("failed")
			log.Error("invalid fee schedule", zap.String("fee_catalog_id", schedule.ID), zap.Error(err))
			continue
		}
		ok, err := p.ledger.Provision(ctx, entry)
		if err != nil {
			p.metrics.RecordProvisioned("failed")
			log.Error("failed to provision ledger entry", zap.String("fee_catalog_id", schedule.ID), zap.Error(err))
			failed++
			continue
		}
		if !ok {
			p.metrics.RecordProvisioned("existing")
			continue
		}
		created++
		p.metrics.RecordProvisioned("created")
		log.Info("ledger entry provisioned",
			zap.String("ledger_entry_id", entry.ID),
			zap.String("fee_catalog_id", schedule.ID),
			zap.String("amount_due", entry.AmountDue.StringFixed(2)),
		)
	}
	if created > 0 {
		invalidateStudentFees(ctx, p.cache, event.StudentID)
	}
	if failed > 0 {
		return fmt.Errorf("provision fees for student %s: %d of %d schedules failed", event.StudentID, failed, len(schedules))
	}
	return nil
}
