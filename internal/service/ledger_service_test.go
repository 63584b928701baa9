package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-fee-ledger/internal/dto"
	"github.com/noah-isme/sma-fee-ledger/internal/models"
	appErrors "github.com/noah-isme/sma-fee-ledger/pkg/errors"
)

type memoryCache struct {
	values       map[string]interface{}
	invalidated  []string
	gets, writes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]interface{})}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	v, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	summary := dest.(*dto.StudentFeeSummary)
	*summary = v.(dto.StudentFeeSummary)
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.writes++
	c.values[key] = *value.(*dto.StudentFeeSummary)
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	c.invalidated = append(c.invalidated, pattern)
	n := len(c.values)
	c.values = make(map[string]interface{})
	return n, nil
}

func newLedgerServiceForTest(store *fakeLedgerStore, cache *CacheService) (*LedgerService, *auditStub) {
	audit := &auditStub{}
	svc := NewLedgerService(store, fakeSchedules{store}, fakePayments{store}, fakeWaivers{store}, audit, cache, time.Minute, nil, LedgerOptions{MaxRetries: 2}, nil, zap.NewNop())
	svc.mutator.now = fixedClock(testNow)
	return svc, audit
}

func TestLedgerServiceListProjectsLateFee(t *testing.T) {
	store := seededStore()
	svc, _ := newLedgerServiceForTest(store, nil)

	views, err := svc.ListForStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.PaymentStatusOverdue, views[0].PaymentStatus)
	assert.True(t, views[0].LateFeeCharged.Equal(dec("20")))
	assert.True(t, views[0].Balance.Equal(dec("570")))
	require.NotNil(t, views[0].Schedule)
	assert.Equal(t, "class-1", views[0].Schedule.ClassID)

	stored := store.entry("entry-1")
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, int64(1), stored.Version)
}

func TestLedgerServiceUnpaidSummaryCaches(t *testing.T) {
	schedule := testSchedule()
	second := testSchedule()
	second.ID = "catalog-2"
	second.Frequency = models.FeeFrequencyAnnual
	second.TuitionFee = dec("100")
	second.LibraryFee = dec("0")
	second.LateFeeAmount = dec("0")
	store := newFakeLedgerStore(schedule, second)
	store.put(testEntry("entry-1", schedule))
	paid := testEntry("entry-2", second)
	paid.AmountPaid = dec("100")
	paid.PaymentStatus = models.PaymentStatusPaid
	store.put(paid)

	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc, _ := newLedgerServiceForTest(store, cache)
	ctx := context.Background()

	summary, err := svc.UnpaidSummary(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "entry-1", summary.Entries[0].ID)
	assert.True(t, summary.TotalUnpaid.Equal(dec("570")))
	assert.Equal(t, 1, cacheRepo.writes)

	total, err := svc.TotalUnpaidBalance(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("570")))
	assert.Equal(t, 1, cacheRepo.writes)

	_, err = svc.Waive(ctx, "entry-1", dto.OverrideRequest{Reason: "hardship"}, adminClaims)
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.invalidated, "fees:student:student-1:*")

	total, err = svc.TotalUnpaidBalance(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestLedgerServiceWaiveAndReopen(t *testing.T) {
	store := seededStore()
	svc, audit := newLedgerServiceForTest(store, nil)
	ctx := context.Background()

	view, err := svc.Waive(ctx, "entry-1", dto.OverrideRequest{Reason: "hardship"}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusWaived, view.PaymentStatus)
	assert.Equal(t, "hardship", view.Remarks)

	_, err = svc.Waive(ctx, "entry-1", dto.OverrideRequest{Reason: "again"}, adminClaims)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	view, err = svc.Reopen(ctx, "entry-1", dto.OverrideRequest{Reason: "aid withdrawn"}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusOverdue, view.PaymentStatus)
	assert.True(t, view.LateFeeCharged.Equal(dec("20")))

	_, err = svc.Reopen(ctx, "entry-1", dto.OverrideRequest{}, adminClaims)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Equal(t, []string{models.AuditActionLedgerWaive, models.AuditActionLedgerReopen}, audit.actions())

	detail, err := svc.Get(ctx, "entry-1")
	require.NoError(t, err)
	assert.Len(t, detail.History, 2)
	assert.Empty(t, detail.Payments)
}

func TestLedgerServiceGetNotFound(t *testing.T) {
	store := seededStore()
	svc, _ := newLedgerServiceForTest(store, nil)

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrEntryNotFound)
}

func TestLedgerServiceSendReminders(t *testing.T) {
	schedule := testSchedule()
	store := newFakeLedgerStore(schedule)
	pending := testEntry("entry-1", schedule)
	overdue := testEntry("entry-2", schedule)
	overdue.StudentID = "student-2"
	overdue.PaymentStatus = models.PaymentStatusOverdue
	partial := testEntry("entry-3", schedule)
	partial.StudentID = "student-3"
	partial.PaymentStatus = models.PaymentStatusPartial
	notified := testEntry("entry-4", schedule)
	notified.StudentID = "student-4"
	notified.IsNotified = true
	for _, e := range []models.LedgerEntry{pending, overdue, partial, notified} {
		store.put(e)
	}
	svc, _ := newLedgerServiceForTest(store, nil)

	result, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Notified)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, 1, result.Overdue)
	assert.True(t, store.entry("entry-1").IsNotified)
	assert.False(t, store.entry("entry-3").IsNotified)

	result, err = svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Notified)
}

func TestLedgerServiceRefreshOverdue(t *testing.T) {
	schedule := testSchedule()
	future := testSchedule()
	future.ID = "catalog-2"
	future.DueDate = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeLedgerStore(schedule, future)
	store.put(testEntry("entry-1", schedule))
	notDue := testEntry("entry-2", future)
	store.put(notDue)
	svc, _ := newLedgerServiceForTest(store, nil)

	result, err := svc.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Conflicts)

	stored := store.entry("entry-1")
	assert.Equal(t, models.PaymentStatusOverdue, stored.PaymentStatus)
	assert.True(t, stored.LateFeeCharged.Equal(dec("20")))
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, int64(1), store.entry("entry-2").Version)

	result, err = svc.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Updated)
}

func TestLedgerServiceRefreshOverdueCountsConflicts(t *testing.T) {
	store := seededStore()
	store.conflicts = 10
	svc, _ := newLedgerServiceForTest(store, nil)

	result, err := svc.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Conflicts)
	assert.Zero(t, result.Updated)
}
