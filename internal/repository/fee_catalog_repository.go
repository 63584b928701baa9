package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

// FeeCatalogScheduleConstraint names the (class, term, frequency) uniqueness constraint.
const FeeCatalogScheduleConstraint = "uq_fee_catalog_schedule"

const feeCatalogColumns = `id, class_id, term_id, frequency, tuition_fee, library_fee, lab_fee, sports_fee, transport_fee, other_fee, due_date, late_fee_amount, late_fee_grace_days, description, active, created_at, updated_at`

// FeeCatalogRepository handles persistence for fee schedules.
type FeeCatalogRepository struct {
	db *sqlx.DB
}

// NewFeeCatalogRepository instantiates a catalog repository.
func NewFeeCatalogRepository(db *sqlx.DB) *FeeCatalogRepository {
	return &FeeCatalogRepository{db: db}
}

// Create inserts a catalog line. A clashing schedule surfaces as ErrDuplicate.
func (r *FeeCatalogRepository) Create(ctx context.Context, entry *models.FeeCatalogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO fee_catalog (` + feeCatalogColumns + `) VALUES (:id, :class_id, :term_id, :frequency, :tuition_fee, :library_fee, :lab_fee, :sports_fee, :transport_fee, :other_fee, :due_date, :late_fee_amount, :late_fee_grace_days, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create fee catalog entry: %w", translate(err))
	}
	return nil
}

// FindByID loads a catalog line by identifier.
func (r *FeeCatalogRepository) FindByID(ctx context.Context, id string) (*models.FeeCatalogEntry, error) {
	const query = `SELECT ` + feeCatalogColumns + ` FROM fee_catalog WHERE id = $1`
	var entry models.FeeCatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByIDs loads several catalog lines keyed by id.
func (r *FeeCatalogRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.FeeCatalogEntry, error) {
	result := make(map[string]models.FeeCatalogEntry, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `SELECT ` + feeCatalogColumns + ` FROM fee_catalog WHERE id = ANY($1)`
	var entries []models.FeeCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find fee catalog entries: %w", err)
	}
	for _, entry := range entries {
		result[entry.ID] = entry
	}
	return result, nil
}

// ListActiveForClassTerm returns the active lines billed to a class for a term.
func (r *FeeCatalogRepository) ListActiveForClassTerm(ctx context.Context, classID, termID string) ([]models.FeeCatalogEntry, error) {
	const query = `SELECT ` + feeCatalogColumns + ` FROM fee_catalog WHERE class_id = $1 AND term_id = $2 AND active = TRUE ORDER BY due_date ASC`
	var entries []models.FeeCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list active fee catalog entries: %w", err)
	}
	return entries, nil
}

// List returns catalog lines matching the filter along with the total count.
func (r *FeeCatalogRepository) List(ctx context.Context, filter models.FeeCatalogFilter) ([]models.FeeCatalogEntry, int, error) {
	base := "FROM fee_catalog WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Frequency != "" {
		conditions = append(conditions, fmt.Sprintf("frequency = $%d", len(args)+1))
		args = append(args, filter.Frequency)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY due_date DESC, class_id ASC LIMIT %d OFFSET %d", feeCatalogColumns, base, size, offset)
	var entries []models.FeeCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee catalog: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count fee catalog: %w", err)
	}
	return entries, total, nil
}

// Update rewrites the amounts and dates of a catalog line. Identity columns are immutable.
func (r *FeeCatalogRepository) Update(ctx context.Context, entry *models.FeeCatalogEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_catalog SET tuition_fee = :tuition_fee, library_fee = :library_fee, lab_fee = :lab_fee, sports_fee = :sports_fee, transport_fee = :transport_fee, other_fee = :other_fee, due_date = :due_date, late_fee_amount = :late_fee_amount, late_fee_grace_days = :late_fee_grace_days, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update fee catalog entry: %w", err)
	}
	return nil
}

// SetActive toggles whether the line is used for new provisioning.
func (r *FeeCatalogRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE fee_catalog SET active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set fee catalog active: %w", err)
	}
	return nil
}
