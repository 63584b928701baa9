package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

const ledgerEntryColumns = `id, student_id, fee_catalog_id, amount_due, amount_paid, late_fee_charged, discount_amount, payment_status, payment_method, transaction_id, payment_date, remarks, is_notified, notification_sent_at, version, created_at, updated_at`

// LedgerTx exposes the row-locked operations available inside a ledger transaction.
type LedgerTx interface {
	LockEntry(ctx context.Context, id string) (*models.LedgerEntry, error)
	LoadSchedule(ctx context.Context, feeCatalogID string) (*models.FeeCatalogEntry, error)
	UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error
	InsertPayment(ctx context.Context, payment *models.PaymentTransaction) error
	SumPayments(ctx context.Context, entryID string) (decimal.Decimal, error)
	InsertWaiver(ctx context.Context, waiver *models.FeeWaiver) error
	LockWaiver(ctx context.Context, id string) (*models.FeeWaiver, error)
	DeactivateWaiver(ctx context.Context, id string, at time.Time) error
	SumActiveWaivers(ctx context.Context, entryID string) (decimal.Decimal, error)
}

// LedgerRepository persists ledger entries and runs locked read-modify-write cycles.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// FindByID loads an entry without locking.
func (r *LedgerRepository) FindByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	const query = `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE id = $1`
	var entry models.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByStudentAndCatalog loads the entry owned by the (student, catalog line) pair.
func (r *LedgerRepository) FindByStudentAndCatalog(ctx context.Context, studentID, feeCatalogID string) (*models.LedgerEntry, error) {
	const query = `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE student_id = $1 AND fee_catalog_id = $2`
	var entry models.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, feeCatalogID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns entries matching the filter ordered by creation time.
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerEntryFilter) ([]models.LedgerEntry, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("payment_status = ANY($%d)", len(args)))
	}
	if filter.Notified != nil {
		args = append(args, *filter.Notified)
		conditions = append(conditions, fmt.Sprintf("is_notified = $%d", len(args)))
	}

	query := strings.Builder{}
	query.WriteString(`SELECT ` + ledgerEntryColumns + ` FROM ledger_entries`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at ASC, id ASC")

	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

// ListUnpaidAfter pages through unpaid entries by id for background sweeps.
func (r *LedgerRepository) ListUnpaidAfter(ctx context.Context, afterID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE payment_status = ANY($1) AND id > $2 ORDER BY id ASC LIMIT $3`
	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(statusStrings(models.UnpaidStatuses)), afterID, limit); err != nil {
		return nil, fmt.Errorf("list unpaid ledger entries: %w", err)
	}
	return entries, nil
}

// Provision inserts the entry unless the (student, catalog line) pair already exists.
// On conflict the stored row is loaded into entry and created is false.
func (r *LedgerRepository) Provision(ctx context.Context, entry *models.LedgerEntry) (created bool, err error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	if entry.Version == 0 {
		entry.Version = 1
	}

	const query = `INSERT INTO ledger_entries (id, student_id, fee_catalog_id, amount_due, amount_paid, late_fee_charged, discount_amount, payment_status, remarks, version, created_at, updated_at) VALUES (:id, :student_id, :fee_catalog_id, :amount_due, :amount_paid, :late_fee_charged, :discount_amount, :payment_status, :remarks, :version, :created_at, :updated_at) ON CONFLICT (student_id, fee_catalog_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return false, fmt.Errorf("provision ledger entry: %w", translate(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("provision ledger entry rows: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	existing, err := r.FindByStudentAndCatalog(ctx, entry.StudentID, entry.FeeCatalogID)
	if err != nil {
		return false, fmt.Errorf("load provisioned ledger entry: %w", err)
	}
	*entry = *existing
	return false, nil
}

// MarkNotified flags entries as reminded and returns how many rows changed.
func (r *LedgerRepository) MarkNotified(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE ledger_entries SET is_notified = TRUE, notification_sent_at = $1, updated_at = $1 WHERE id = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, at, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("mark ledger entries notified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark ledger entries notified rows: %w", err)
	}
	return affected, nil
}

// WithinTx runs fn inside a database transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (r *LedgerRepository) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", translate(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", translate(err))
	}
	return nil
}

type ledgerTx struct {
	tx *sqlx.Tx
}

func (t *ledgerTx) LockEntry(ctx context.Context, id string) (*models.LedgerEntry, error) {
	const query = `SELECT ` + ledgerEntryColumns + ` FROM ledger_entries WHERE id = $1 FOR UPDATE`
	var entry models.LedgerEntry
	if err := t.tx.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock ledger entry: %w", translate(err))
	}
	return &entry, nil
}

func (t *ledgerTx) LoadSchedule(ctx context.Context, feeCatalogID string) (*models.FeeCatalogEntry, error) {
	const query = `SELECT ` + feeCatalogColumns + ` FROM fee_catalog WHERE id = $1`
	var entry models.FeeCatalogEntry
	if err := t.tx.GetContext(ctx, &entry, query, feeCatalogID); err != nil {
		return nil, fmt.Errorf("load fee schedule: %w", err)
	}
	return &entry, nil
}

// UpdateEntry writes the mutable columns guarded by the version read under lock.
func (t *ledgerTx) UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	now := time.Now().UTC()
	const query = `UPDATE ledger_entries SET amount_paid = $1, late_fee_charged = $2, discount_amount = $3, payment_status = $4, payment_method = $5, transaction_id = $6, payment_date = $7, remarks = $8, version = version + 1, updated_at = $9 WHERE id = $10 AND version = $11`
	res, err := t.tx.ExecContext(ctx, query,
		entry.AmountPaid, entry.LateFeeCharged, entry.DiscountAmount, entry.PaymentStatus,
		entry.PaymentMethod, entry.TransactionID, entry.PaymentDate, entry.Remarks, now,
		entry.ID, entry.Version)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", translate(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ledger entry rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update ledger entry %s at version %d: %w", entry.ID, entry.Version, ErrConflict)
	}
	entry.Version++
	entry.UpdatedAt = now
	return nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, payment *models.PaymentTransaction) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_transactions (` + paymentColumns + `) VALUES (:id, :ledger_entry_id, :receipt_number, :kind, :amount, :payment_method, :payment_date, :transaction_id, :collected_by, :remarks, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("insert payment transaction: %w", translate(err))
	}
	return nil
}

func (t *ledgerTx) SumPayments(ctx context.Context, entryID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payment_transactions WHERE ledger_entry_id = $1`
	var total decimal.Decimal
	if err := t.tx.GetContext(ctx, &total, query, entryID); err != nil {
		return decimal.Zero, fmt.Errorf("sum payment transactions: %w", err)
	}
	return total, nil
}

func (t *ledgerTx) InsertWaiver(ctx context.Context, waiver *models.FeeWaiver) error {
	if waiver.ID == "" {
		waiver.ID = uuid.NewString()
	}
	if waiver.CreatedAt.IsZero() {
		waiver.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO fee_waivers (` + waiverColumns + `) VALUES (:id, :ledger_entry_id, :waiver_type, :amount, :percentage, :reason, :approved_by, :approved_date, :active, :revoked_at, :created_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, waiver); err != nil {
		return fmt.Errorf("insert fee waiver: %w", translate(err))
	}
	return nil
}

func (t *ledgerTx) LockWaiver(ctx context.Context, id string) (*models.FeeWaiver, error) {
	const query = `SELECT ` + waiverColumns + ` FROM fee_waivers WHERE id = $1 FOR UPDATE`
	var waiver models.FeeWaiver
	if err := t.tx.GetContext(ctx, &waiver, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock fee waiver: %w", translate(err))
	}
	return &waiver, nil
}

func (t *ledgerTx) DeactivateWaiver(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE fee_waivers SET active = FALSE, revoked_at = $1 WHERE id = $2 AND active = TRUE`
	if _, err := t.tx.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("deactivate fee waiver: %w", translate(err))
	}
	return nil
}

func (t *ledgerTx) SumActiveWaivers(ctx context.Context, entryID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM fee_waivers WHERE ledger_entry_id = $1 AND active = TRUE`
	var total decimal.Decimal
	if err := t.tx.GetContext(ctx, &total, query, entryID); err != nil {
		return decimal.Zero, fmt.Errorf("sum active fee waivers: %w", err)
	}
	return total, nil
}

func statusStrings(statuses []models.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}
