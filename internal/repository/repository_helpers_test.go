package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

var fixtureTime = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

func catalogRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "class_id", "term_id", "frequency", "tuition_fee", "library_fee", "lab_fee", "sports_fee", "transport_fee", "other_fee", "due_date", "late_fee_amount", "late_fee_grace_days", "description", "active", "created_at", "updated_at"})
}

func addCatalogRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	due := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "class-10a", "2024-2025", "semester", "500.00", "50.00", "0.00", "0.00", "0.00", "0.00", due, "20.00", 7, "Semester fees", true, fixtureTime, fixtureTime)
}

func ledgerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "fee_catalog_id", "amount_due", "amount_paid", "late_fee_charged", "discount_amount", "payment_status", "payment_method", "transaction_id", "payment_date", "remarks", "is_notified", "notification_sent_at", "version", "created_at", "updated_at"})
}

func addLedgerRow(rows *sqlmock.Rows, id, status, paid string, version int64) *sqlmock.Rows {
	return rows.AddRow(id, "student-1", "fc-1", "550.00", paid, "0.00", "0.00", status, nil, "", nil, "", false, nil, version, fixtureTime, fixtureTime)
}
