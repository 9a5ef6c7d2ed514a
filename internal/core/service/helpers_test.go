package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/adapter/storage"
	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

// Mock Directory
type mockDirectory struct {
	users map[string]string
	units map[string]string
	fail  bool
}

func (m *mockDirectory) UserName(ctx context.Context, id string) (string, error) {
	if m.fail {
		return "", errors.New("directory down")
	}
	return m.users[id], nil
}

func (m *mockDirectory) UnitName(ctx context.Context, id string) (string, error) {
	if m.fail {
		return "", errors.New("directory down")
	}
	return m.units[id], nil
}

// conflictStore fails the first n units of work with a conflict.
type conflictStore struct {
	port.Store
	mu        sync.Mutex
	remaining int
	calls     int
}

func (c *conflictStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	c.mu.Lock()
	c.calls++
	fail := c.remaining > 0
	if fail {
		c.remaining--
	}
	c.mu.Unlock()

	if fail {
		return domain.ErrConcurrencyConflict
	}
	return c.Store.WithinTx(ctx, fn)
}

func testOptions() Options {
	return Options{ConflictRetries: 5, RetryBackoff: 0}
}

func qty(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func mustCreateItem(t *testing.T, catalog *CatalogService, name, location string, quantity, threshold int64) string {
	t.Helper()
	id, err := catalog.CreateItem(context.Background(), domain.NewItem{
		Name:              name,
		Quantity:          qty(quantity),
		BatchNo:           "B-1",
		LowStockThreshold: qty(threshold),
		Location:          location,
		Unit:              "bag",
		Category:          "building",
		CreatedBy:         "admin",
	})
	if err != nil {
		t.Fatalf("create %s failed: %v", name, err)
	}
	return id
}

func mustGetItem(t *testing.T, catalog *CatalogService, id string) *domain.Item {
	t.Helper()
	item, err := catalog.GetItem(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s failed: %v", id, err)
	}
	return item
}

func countLogs(t *testing.T, store port.Store, filter domain.LogFilter) int {
	t.Helper()
	var n int
	err := store.View(context.Background(), func(tx port.Tx) error {
		logs, err := tx.ListLogs(context.Background(), filter)
		n = len(logs)
		return err
	})
	if err != nil {
		t.Fatalf("list logs failed: %v", err)
	}
	return n
}

type fixture struct {
	store    *storage.MemoryStore
	catalog  *CatalogService
	ledger   *LedgerService
	transfer *TransferService
	requests *RequestService
}

func newFixture(dir port.Directory) *fixture {
	store := storage.NewMemoryStore()
	return &fixture{
		store:    store,
		catalog:  NewCatalogService(store, testOptions(), nil),
		ledger:   NewLedgerService(store, dir, testOptions(), nil),
		transfer: NewTransferService(store, testOptions(), nil),
		requests: NewRequestService(store, dir, testOptions(), nil),
	}
}

// racingStore commits rival just before the first unit of work runs, after
// that unit's duplicate check would have passed.
type racingStore struct {
	port.Store
	rival domain.Item
	raced bool
	calls int
}

func (r *racingStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	r.calls++
	if r.raced {
		return r.Store.WithinTx(ctx, fn)
	}
	r.raced = true

	if err := r.Store.WithinTx(ctx, func(tx port.Tx) error { return tx.InsertItem(ctx, r.rival) }); err != nil {
		return err
	}
	return r.Store.WithinTx(ctx, func(tx port.Tx) error { return fn(blindTx{tx}) })
}

// blindTx misses every identity lookup.
type blindTx struct {
	port.Tx
}

func (blindTx) FindItemByKey(ctx context.Context, key domain.ItemKey) (*domain.Item, error) {
	return nil, nil
}
