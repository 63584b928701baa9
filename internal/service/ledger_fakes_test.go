package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fee-ledger/internal/models"
	"github.com/noah-isme/sma-fee-ledger/internal/repository"
)

var testNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testSchedule() models.FeeCatalogEntry {
	return models.FeeCatalogEntry{
		ID:        "catalog-1",
		ClassID:   "class-1",
		TermID:    "term-1",
		Frequency: models.FeeFrequencySemester,
		FeeComponents: models.FeeComponents{
			TuitionFee: dec("500"),
			LibraryFee: dec("50"),
		},
		DueDate:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LateFeeAmount:    dec("20"),
		LateFeeGraceDays: 7,
		Active:           true,
	}
}

func testEntry(id string, schedule models.FeeCatalogEntry) models.LedgerEntry {
	entry, err := models.NewLedgerEntry(id, "student-1", schedule)
	if err != nil {
		panic(err)
	}
	return *entry
}

// fakeLedgerStore is an in-memory optimistic store. Transactions stage their writes and
// commit them atomically after re-checking entry versions.
type fakeLedgerStore struct {
	mu        sync.Mutex
	entries   map[string]models.LedgerEntry
	schedules map[string]models.FeeCatalogEntry
	payments  []models.PaymentTransaction
	waivers   []models.FeeWaiver

	// conflicts forces the next n UpdateEntry calls to fail with ErrConflict.
	conflicts int
	// failInsertPayment makes InsertPayment return the error.
	failInsertPayment error
	// usedReceipts pre-seeds receipt numbers that collide.
	usedReceipts map[string]bool
	// onLock runs after an entry is read under lock, outside the store mutex.
	onLock func()

	updates int
	txCount int
}

func newFakeLedgerStore(schedules ...models.FeeCatalogEntry) *fakeLedgerStore {
	s := &fakeLedgerStore{
		entries:      make(map[string]models.LedgerEntry),
		schedules:    make(map[string]models.FeeCatalogEntry),
		usedReceipts: make(map[string]bool),
	}
	for _, schedule := range schedules {
		s.schedules[schedule.ID] = schedule
	}
	return s
}

func (s *fakeLedgerStore) put(entry models.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
}

func (s *fakeLedgerStore) entry(id string) models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

func (s *fakeLedgerStore) paymentsFor(entryID string) []models.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PaymentTransaction
	for _, p := range s.payments {
		if p.LedgerEntryID == entryID {
			out = append(out, p)
		}
	}
	return out
}

func (s *fakeLedgerStore) FindByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entry, nil
}

func (s *fakeLedgerStore) List(ctx context.Context, filter models.LedgerEntryFilter) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, entry := range s.entries {
		if filter.StudentID != "" && entry.StudentID != filter.StudentID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, entry.PaymentStatus) {
			continue
		}
		if filter.Notified != nil && entry.IsNotified != *filter.Notified {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeLedgerStore) ListUnpaidAfter(ctx context.Context, afterID string, limit int) ([]models.LedgerEntry, error) {
	entries, _ := s.List(ctx, models.LedgerEntryFilter{Statuses: models.UnpaidStatuses})
	var out []models.LedgerEntry
	for _, entry := range entries {
		if entry.ID > afterID {
			out = append(out, entry)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeLedgerStore) Provision(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.StudentID == entry.StudentID && existing.FeeCatalogID == entry.FeeCatalogID {
			*entry = existing
			return false, nil
		}
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", len(s.entries)+1)
	}
	s.entries[entry.ID] = *entry
	return true, nil
}

func (s *fakeLedgerStore) MarkNotified(ctx context.Context, ids []string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		entry, ok := s.entries[id]
		if !ok {
			continue
		}
		entry.IsNotified = true
		sentAt := at
		entry.NotificationSentAt = &sentAt
		s.entries[id] = entry
		n++
	}
	return n, nil
}

func (s *fakeLedgerStore) WithinTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()

	tx := &fakeTx{store: s, entries: make(map[string]models.LedgerEntry), deactivated: make(map[string]time.Time)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func containsStatus(statuses []models.PaymentStatus, status models.PaymentStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

type fakeTx struct {
	store       *fakeLedgerStore
	entries     map[string]models.LedgerEntry
	payments    []models.PaymentTransaction
	waivers     []models.FeeWaiver
	deactivated map[string]time.Time
}

func (t *fakeTx) LockEntry(ctx context.Context, id string) (*models.LedgerEntry, error) {
	entry, err := t.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.store.onLock != nil {
		t.store.onLock()
	}
	return entry, nil
}

func (t *fakeTx) LoadSchedule(ctx context.Context, feeCatalogID string) (*models.FeeCatalogEntry, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	schedule, ok := t.store.schedules[feeCatalogID]
	if !ok {
		return nil, fmt.Errorf("load fee schedule: %w", sql.ErrNoRows)
	}
	return &schedule, nil
}

func (t *fakeTx) UpdateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.conflicts > 0 {
		t.store.conflicts--
		return fmt.Errorf("update ledger entry: %w", repository.ErrConflict)
	}
	if current := t.store.entries[entry.ID]; current.Version != entry.Version {
		return fmt.Errorf("update ledger entry at version %d: %w", entry.Version, repository.ErrConflict)
	}
	entry.Version++
	t.entries[entry.ID] = *entry
	return nil
}

func (t *fakeTx) InsertPayment(ctx context.Context, payment *models.PaymentTransaction) error {
	if t.store.failInsertPayment != nil {
		return t.store.failInsertPayment
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.usedReceipts[payment.ReceiptNumber] {
		return fmt.Errorf("insert payment transaction: %w", &pq.Error{Code: "23505", Constraint: repository.PaymentReceiptConstraint})
	}
	if payment.ID == "" {
		payment.ID = fmt.Sprintf("payment-%d", len(t.store.payments)+len(t.payments)+1)
	}
	t.payments = append(t.payments, *payment)
	return nil
}

func (t *fakeTx) SumPayments(ctx context.Context, entryID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range append(t.store.paymentsFor(entryID), t.payments...) {
		if p.LedgerEntryID == entryID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (t *fakeTx) InsertWaiver(ctx context.Context, waiver *models.FeeWaiver) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if waiver.ID == "" {
		waiver.ID = fmt.Sprintf("waiver-%d", len(t.store.waivers)+len(t.waivers)+1)
	}
	t.waivers = append(t.waivers, *waiver)
	return nil
}

func (t *fakeTx) LockWaiver(ctx context.Context, id string) (*models.FeeWaiver, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, w := range t.store.waivers {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (t *fakeTx) DeactivateWaiver(ctx context.Context, id string, at time.Time) error {
	t.deactivated[id] = at
	return nil
}

func (t *fakeTx) SumActiveWaivers(ctx context.Context, entryID string) (decimal.Decimal, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	total := decimal.Zero
	for _, w := range append(append([]models.FeeWaiver{}, t.store.waivers...), t.waivers...) {
		if w.LedgerEntryID != entryID || !w.Active {
			continue
		}
		if _, revoked := t.deactivated[w.ID]; revoked {
			continue
		}
		total = total.Add(w.Amount)
	}
	return total, nil
}

func (t *fakeTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, staged := range t.entries {
		if s.entries[id].Version != staged.Version-1 {
			return fmt.Errorf("commit ledger transaction: %w", repository.ErrConflict)
		}
	}
	for id, staged := range t.entries {
		s.entries[id] = staged
		s.updates++
	}
	for _, p := range t.payments {
		s.payments = append(s.payments, p)
		s.usedReceipts[p.ReceiptNumber] = true
	}
	s.waivers = append(s.waivers, t.waivers...)
	for id, at := range t.deactivated {
		for i := range s.waivers {
			if s.waivers[i].ID == id {
				revokedAt := at
				s.waivers[i].Active = false
				s.waivers[i].RevokedAt = &revokedAt
			}
		}
	}
	return nil
}

// fakeSchedules serves catalog reads for the ledger services.
type fakeSchedules struct {
	store *fakeLedgerStore
}

func (f fakeSchedules) FindByID(ctx context.Context, id string) (*models.FeeCatalogEntry, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	schedule, ok := f.store.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &schedule, nil
}

func (f fakeSchedules) FindByIDs(ctx context.Context, ids []string) (map[string]models.FeeCatalogEntry, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := make(map[string]models.FeeCatalogEntry, len(ids))
	for _, id := range ids {
		if schedule, ok := f.store.schedules[id]; ok {
			out[id] = schedule
		}
	}
	return out, nil
}

func (f fakeSchedules) ListActiveForClassTerm(ctx context.Context, classID, termID string) ([]models.FeeCatalogEntry, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.FeeCatalogEntry
	for _, schedule := range f.store.schedules {
		if schedule.Active && schedule.ClassID == classID && schedule.TermID == termID {
			out = append(out, schedule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakePayments reads the committed payment journal.
type fakePayments struct {
	store *fakeLedgerStore
}

func (f fakePayments) ListByEntry(ctx context.Context, entryID string) ([]models.PaymentTransaction, error) {
	return f.store.paymentsFor(entryID), nil
}

func (f fakePayments) FindByReceipt(ctx context.Context, receipt string) (*models.PaymentTransaction, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, p := range f.store.payments {
		if p.ReceiptNumber == receipt {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakePayments) SumByEntry(ctx context.Context, entryID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range f.store.paymentsFor(entryID) {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// fakeWaivers reads committed waivers.
type fakeWaivers struct {
	store *fakeLedgerStore
}

func (f fakeWaivers) FindByID(ctx context.Context, id string) (*models.FeeWaiver, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, w := range f.store.waivers {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeWaivers) ListByEntry(ctx context.Context, entryID string) ([]models.FeeWaiver, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []models.FeeWaiver
	for _, w := range f.store.waivers {
		if w.LedgerEntryID == entryID {
			out = append(out, w)
		}
	}
	return out, nil
}

type auditStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return a.err
}

func (a *auditStub) ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditLog
	for _, log := range a.logs {
		if log.Resource == resource && log.ResourceID != nil && *log.ResourceID == resourceID {
			out = append(out, *log)
		}
	}
	return out, nil
}

func (a *auditStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, log := range a.logs {
		out = append(out, log.Action)
	}
	return out
}

func sequenceReceipts(numbers ...string) receiptNumberFunc {
	var mu sync.Mutex
	i := 0
	return func(time.Time) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n := numbers[i%len(numbers)]
		i++
		return n, nil
	}
}

var adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
