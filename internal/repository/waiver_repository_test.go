package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

func TestWaiverRepositoryListByEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaiverRepository(db)

	rows := sqlmock.NewRows([]string{"id", "ledger_entry_id", "waiver_type", "amount", "percentage", "reason", "approved_by", "approved_date", "active", "revoked_at", "created_at"}).
		AddRow("fw-2", "le-1", "sibling", "55.00", "10.00", "second child", "admin-1", fixtureTime, true, nil, fixtureTime).
		AddRow("fw-1", "le-1", "merit", "100.00", "0.00", "top of class", nil, fixtureTime, false, fixtureTime, fixtureTime)
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_waivers WHERE ledger_entry_id = $1 ORDER BY created_at DESC")).
		WithArgs("le-1").
		WillReturnRows(rows)

	waivers, err := repo.ListByEntry(context.Background(), "le-1")
	require.NoError(t, err)
	require.Len(t, waivers, 2)
	assert.Equal(t, models.WaiverTypeSibling, waivers[0].WaiverType)
	assert.True(t, decimal.NewFromInt(10).Equal(waivers[0].Percentage))
	assert.False(t, waivers[1].Active)
	assert.NotNil(t, waivers[1].RevokedAt)
}
