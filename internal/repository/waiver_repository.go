package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

const waiverColumns = `id, ledger_entry_id, waiver_type, amount, percentage, reason, approved_by, approved_date, active, revoked_at, created_at`

// WaiverRepository reads fee waivers. Writes go through LedgerTx.
type WaiverRepository struct {
	db *sqlx.DB
}

// NewWaiverRepository constructs the repository.
func NewWaiverRepository(db *sqlx.DB) *WaiverRepository {
	return &WaiverRepository{db: db}
}

// FindByID loads a waiver without locking.
func (r *WaiverRepository) FindByID(ctx context.Context, id string) (*models.FeeWaiver, error) {
	const query = `SELECT ` + waiverColumns + ` FROM fee_waivers WHERE id = $1`
	var waiver models.FeeWaiver
	if err := r.db.GetContext(ctx, &waiver, query, id); err != nil {
		return nil, err
	}
	return &waiver, nil
}

// ListByEntry returns active and revoked waivers of an entry, newest first.
func (r *WaiverRepository) ListByEntry(ctx context.Context, entryID string) ([]models.FeeWaiver, error) {
	const query = `SELECT ` + waiverColumns + ` FROM fee_waivers WHERE ledger_entry_id = $1 ORDER BY created_at DESC`
	var waivers []models.FeeWaiver
	if err := r.db.SelectContext(ctx, &waivers, query, entryID); err != nil {
		return nil, fmt.Errorf("list fee waivers: %w", err)
	}
	return waivers, nil
}
