package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/adapter/storage"
	"github.com/rl1809/stock-ledger/internal/core/domain"
)

func TestCreateItem_Success(t *testing.T) {
	f := newFixture(nil)
	id := mustCreateItem(t, f.catalog, "Cement", "A", 100, 20)

	item := mustGetItem(t, f.catalog, id)
	if !item.Quantity.Equal(qty(100)) {
		t.Errorf("expected quantity 100, got %s", item.Quantity)
	}
	if item.Version != 1 {
		t.Errorf("expected version 1, got %d", item.Version)
	}
	if countLogs(t, f.store, domain.LogFilter{}) != 0 {
		t.Error("creating an item must not write ledger entries")
	}
}

func TestCreateItem_Validation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		spec domain.NewItem
	}{
		{"missing name", domain.NewItem{Location: "A", Quantity: qty(1)}},
		{"missing location", domain.NewItem{Name: "Cement", Quantity: qty(1)}},
		{"negative quantity", domain.NewItem{Name: "Cement", Location: "A", Quantity: qty(-1)}},
		{"negative threshold", domain.NewItem{Name: "Cement", Location: "A", LowStockThreshold: qty(-5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.CreateItem(ctx, tt.spec)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestCreateItem_DuplicateIdentity(t *testing.T) {
	f := newFixture(nil)
	mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	_, err := f.catalog.CreateItem(context.Background(), domain.NewItem{
		Name: "Cement", BatchNo: "B-1", Location: "A", Quantity: qty(5),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 2)

	name := "Portland Cement"
	threshold := qty(5)
	updated, err := f.catalog.UpdateItem(ctx, id, domain.ItemPatch{Name: &name, LowStockThreshold: &threshold})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != name || !updated.LowStockThreshold.Equal(threshold) {
		t.Errorf("unexpected item after update: %+v", updated)
	}
	if !updated.Quantity.Equal(qty(10)) {
		t.Errorf("update must not touch quantity, got %s", updated.Quantity)
	}

	stored := mustGetItem(t, f.catalog, id)
	if stored.Version != updated.Version || stored.Version != 2 {
		t.Errorf("expected version 2, got stored %d returned %d", stored.Version, updated.Version)
	}
}

func TestUpdateItem_IdentityClash(t *testing.T) {
	f := newFixture(nil)
	mustCreateItem(t, f.catalog, "Cement", "B", 10, 0)
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	location := "B"
	_, err := f.catalog.UpdateItem(context.Background(), id, domain.ItemPatch{Location: &location})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
	if item := mustGetItem(t, f.catalog, id); item.Location != "A" {
		t.Errorf("expected location A, got %s", item.Location)
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	f := newFixture(nil)
	name := "x"
	_, err := f.catalog.UpdateItem(context.Background(), "missing", domain.ItemPatch{Name: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	stocked := mustCreateItem(t, f.catalog, "Cement", "A", 5, 0)
	if err := f.catalog.DeleteItem(ctx, stocked); !errors.Is(err, domain.ErrItemInUse) {
		t.Errorf("expected ErrItemInUse for stocked item, got: %v", err)
	}

	empty := mustCreateItem(t, f.catalog, "Sand", "A", 0, 0)
	_, err := f.requests.CreateRequest(ctx, domain.NewRequest{
		RequestingUnit: "unit-1",
		RequestedBy:    "user-1",
		Lines:          []domain.RequestLine{{ItemID: empty, QuantityRequested: qty(1)}},
	})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	if err := f.catalog.DeleteItem(ctx, empty); !errors.Is(err, domain.ErrItemInUse) {
		t.Errorf("expected ErrItemInUse for referenced item, got: %v", err)
	}

	unused := mustCreateItem(t, f.catalog, "Gravel", "A", 0, 0)
	if err := f.catalog.DeleteItem(ctx, unused); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.catalog.GetItem(ctx, unused); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}
}

func TestListItems_Filters(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	mustCreateItem(t, f.catalog, "Cement", "A", 1, 0)
	mustCreateItem(t, f.catalog, "Cement", "B", 1, 0)
	mustCreateItem(t, f.catalog, "Sand", "A", 1, 0)

	atA, _ := f.catalog.ListItems(ctx, domain.ItemFilter{Location: "A"})
	if len(atA) != 2 {
		t.Errorf("expected 2 items at A, got %d", len(atA))
	}

	cement, _ := f.catalog.ListItems(ctx, domain.ItemFilter{SearchTerm: "cem"})
	if len(cement) != 2 {
		t.Errorf("expected 2 cement items, got %d", len(cement))
	}
}

func TestGetLowStock_AfterDeduction(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 100, 20)
	mustCreateItem(t, f.catalog, "Sand", "A", 100, 20)

	_, err := f.ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(90), Type: domain.AdjustmentDeduction, ActorID: "user-1", Reason: "site use",
	})
	if err != nil {
		t.Fatalf("deduction failed: %v", err)
	}

	low, err := f.catalog.GetLowStock(ctx, "")
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	if len(low) != 1 {
		t.Fatalf("expected 1 low item, got %d", len(low))
	}
	if low[0].Item.ID != id || low[0].PercentageRemaining != 50 {
		t.Errorf("expected Cement at 50%%, got %s at %d%%", low[0].Item.Name, low[0].PercentageRemaining)
	}

	elsewhere, _ := f.catalog.GetLowStock(ctx, "B")
	if len(elsewhere) != 0 {
		t.Errorf("expected nothing low at B, got %d", len(elsewhere))
	}
}

func TestLowStockMonitor_Scan(t *testing.T) {
	f := newFixture(nil)
	mustCreateItem(t, f.catalog, "Cement", "A", 0, 10)
	mustCreateItem(t, f.catalog, "Sand", "A", 50, 10)

	n, err := NewLowStockMonitor(f.store, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 low item, got %d", n)
	}
}

func TestCreateItem_LosesRaceWithValidationError(t *testing.T) {
	store := &racingStore{
		Store: storage.NewMemoryStore(),
		rival: domain.Item{ID: "rival", Name: "Cement", BatchNo: "B-1", Location: "A", Quantity: qty(1)},
	}
	catalog := NewCatalogService(store, testOptions(), nil)

	_, err := catalog.CreateItem(context.Background(), domain.NewItem{
		Name: "Cement", BatchNo: "B-1", Location: "A", Quantity: qty(5),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation after losing the race, got: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("expected the create to be retried once, got %d attempts", store.calls)
	}
}

func TestDeleteItem_InUseHidesRequestIDs(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Sand", "A", 0, 0)
	reqID, err := f.requests.CreateRequest(ctx, domain.NewRequest{
		RequestingUnit: "unit-1",
		RequestedBy:    "user-1",
		Lines:          []domain.RequestLine{{ItemID: id, QuantityRequested: qty(1)}},
	})
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}

	err = f.catalog.DeleteItem(ctx, id)
	if !errors.Is(err, domain.ErrItemInUse) {
		t.Fatalf("expected ErrItemInUse, got: %v", err)
	}
	if strings.Contains(err.Error(), reqID) {
		t.Errorf("error exposes request id: %v", err)
	}
}

func TestCreateItem_RejectsExcessPrecision(t *testing.T) {
	f := newFixture(nil)
	_, err := f.catalog.CreateItem(context.Background(), domain.NewItem{
		Name: "Cement", Location: "A", Quantity: decimal.RequireFromString("1.23456"),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}
