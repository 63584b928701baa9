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

const catalogAuditSource = "fee-catalog-service"

type feeCatalogStore interface {
	Create(ctx context.Context, entry *models.FeeCatalogEntry) error
	FindByID(ctx context.Context, id string) (*models.FeeCatalogEntry, error)
	List(ctx context.Context, filter models.FeeCatalogFilter) ([]models.FeeCatalogEntry, int, error)
	Update(ctx context.Context, entry *models.FeeCatalogEntry) error
	SetActive(ctx context.Context, id string, active bool) error
}

// FeeCatalogService manages fee schedules. Changes never touch ledger entries that
// were already provisioned; their amount due is a snapshot.
type FeeCatalogService struct {
	repo      feeCatalogStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeCatalogService constructs the catalog service.
func NewFeeCatalogService(repo feeCatalogStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *FeeCatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeCatalogService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Create registers a fee schedule for a class, term and frequency.
func (s *FeeCatalogService) Create(ctx context.Context, req dto.CreateFeeCatalogRequest, actor *models.JWTClaims) (*models.FeeCatalogEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee catalog payload")
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	frequency := req.Frequency
	if frequency == "" {
		frequency = models.FeeFrequencySemester
	}
	grace := models.DefaultLateFeeGraceDays
	if req.LateFeeGraceDays != nil {
		grace = *req.LateFeeGraceDays
	}

	entry := &models.FeeCatalogEntry{
		ClassID:          req.ClassID,
		TermID:           req.TermID,
		Frequency:        frequency,
		FeeComponents:    req.Components(),
		DueDate:          dueDate,
		LateFeeAmount:    req.LateFeeAmount,
		LateFeeGraceDays: grace,
		Description:      req.Description,
		Active:           true,
	}
	if err := validateAmounts(entry); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateSchedule.Code, appErrors.ErrDuplicateSchedule.Status, appErrors.ErrDuplicateSchedule.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee catalog entry")
	}

	s.emitAudit(ctx, actor, models.AuditActionCatalogCreate, entry.ID, nil, entry)
	s.logger.Info("fee catalog entry created",
		zap.String("fee_catalog_id", entry.ID),
		zap.String("class_id", entry.ClassID),
		zap.String("term_id", entry.TermID),
		zap.String("total", entry.Total().StringFixed(2)),
	)
	return entry, nil
}

// Get returns a catalog line by id.
func (s *FeeCatalogService) Get(ctx context.Context, id string) (*models.FeeCatalogEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee catalog entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee catalog entry")
	}
	return entry, nil
}

// List returns catalog lines with pagination metadata.
func (s *FeeCatalogService) List(ctx context.Context, filter models.FeeCatalogFilter) ([]models.FeeCatalogEntry, *models.Pagination, error) {
	if filter.Frequency != "" && !filter.Frequency.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid frequency")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee catalog")
	}
	return entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update corrects the amounts, dates and description of a catalog line.
func (s *FeeCatalogService) Update(ctx context.Context, id string, req dto.UpdateFeeCatalogRequest, actor *models.JWTClaims) (*models.FeeCatalogEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee catalog payload")
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *existing

	updated := *existing
	updated.FeeComponents = req.Components()
	updated.DueDate = dueDate
	updated.LateFeeAmount = req.LateFeeAmount
	if req.LateFeeGraceDays != nil {
		updated.LateFeeGraceDays = *req.LateFeeGraceDays
	}
	updated.Description = req.Description
	if err := validateAmounts(&updated); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee catalog entry")
	}
	s.emitAudit(ctx, actor, models.AuditActionCatalogUpdate, id, before, updated)
	return &updated, nil
}

// SetActive enables or disables provisioning from a catalog line.
func (s *FeeCatalogService) SetActive(ctx context.Context, id string, req dto.SetFeeCatalogActiveRequest, actor *models.JWTClaims) (*models.FeeCatalogEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee catalog payload")
	}
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	active := *req.Active
	if entry.Active == active {
		return entry, nil
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee catalog status")
	}

	action := models.AuditActionCatalogDeactivate
	if active {
		action = models.AuditActionCatalogActivate
	}
	s.emitAudit(ctx, actor, action, id, map[string]bool{"active": entry.Active}, map[string]bool{"active": active})
	entry.Active = active
	return entry, nil
}

func (s *FeeCatalogService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, id string, oldValues, newValues interface{}) {
	emitAudit(ctx, s.audit, s.logger, catalogAuditSource, auditEvent{
		actor:      actor,
		action:     action,
		resource:   models.AuditResourceFeeCatalog,
		resourceID: id,
		oldValues:  oldValues,
		newValues:  newValues,
	})
}

func validateAmounts(entry *models.FeeCatalogEntry) error {
	if entry.HasNegative() || entry.LateFeeAmount.IsNegative() {
		return invalidAmount("fee amounts must not be negative")
	}
	c := entry.FeeComponents
	for _, v := range []decimal.Decimal{c.TuitionFee, c.LibraryFee, c.LabFee, c.SportsFee, c.TransportFee, c.OtherFee, entry.LateFeeAmount} {
		if !twoPlaces(v) {
			return invalidAmount("fee amounts support at most two decimal places")
		}
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	return date, nil
}
