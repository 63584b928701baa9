package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
)

func newCatalogEntry() *models.FeeCatalogEntry {
	return &models.FeeCatalogEntry{
		ClassID:          "class-10a",
		TermID:           "2024-2025",
		Frequency:        models.FeeFrequencySemester,
		FeeComponents:    models.FeeComponents{TuitionFee: decimal.NewFromInt(500), LibraryFee: decimal.NewFromInt(50)},
		DueDate:          time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		LateFeeAmount:    decimal.NewFromInt(20),
		LateFeeGraceDays: 7,
		Active:           true,
	}
}

func TestFeeCatalogRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_catalog (id, class_id, term_id, frequency")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := newCatalogEntry()
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeCatalogRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_catalog")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: FeeCatalogScheduleConstraint})

	err := repo.Create(context.Background(), newCatalogEntry())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.True(t, IsDuplicateOn(err, FeeCatalogScheduleConstraint))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeCatalogRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_catalog WHERE id = $1")).
		WithArgs("fc-1").
		WillReturnRows(addCatalogRow(catalogRows(), "fc-1"))

	entry, err := repo.FindByID(context.Background(), "fc-1")
	require.NoError(t, err)
	assert.Equal(t, models.FeeFrequencySemester, entry.Frequency)
	assert.True(t, decimal.NewFromInt(550).Equal(entry.Total()))
	assert.Equal(t, 7, entry.LateFeeGraceDays)
}

func TestFeeCatalogRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	rows := addCatalogRow(addCatalogRow(catalogRows(), "fc-1"), "fc-2")
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_catalog WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	entries, err := repo.FindByIDs(context.Background(), []string{"fc-1", "fc-2"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Contains(t, entries, "fc-2")

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeCatalogRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	active := true
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_catalog WHERE 1=1 AND class_id = $1 AND active = $2 ORDER BY due_date DESC, class_id ASC LIMIT 10 OFFSET 10")).
		WithArgs("class-10a", true).
		WillReturnRows(addCatalogRow(catalogRows(), "fc-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fee_catalog WHERE 1=1 AND class_id = $1 AND active = $2")).
		WithArgs("class-10a", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	entries, total, err := repo.List(context.Background(), models.FeeCatalogFilter{ClassID: "class-10a", Active: &active, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 11, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeCatalogRepositoryListActiveForClassTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE class_id = $1 AND term_id = $2 AND active = TRUE")).
		WithArgs("class-10a", "2024-2025").
		WillReturnRows(addCatalogRow(catalogRows(), "fc-1"))

	entries, err := repo.ListActiveForClassTerm(context.Background(), "class-10a", "2024-2025")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fc-1", entries[0].ID)
}

func TestFeeCatalogRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeCatalogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_catalog SET active = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(false, sqlmock.AnyArg(), "fc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), "fc-1", false))
	require.NoError(t, mock.ExpectationsWereMet())
}
