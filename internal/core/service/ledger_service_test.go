package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

func TestApplyAdjustment_AdditionAndDeduction(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	res, err := f.ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(5), Type: domain.AdjustmentAddition, ActorID: "user-1", Reason: "delivery",
	})
	if err != nil {
		t.Fatalf("addition failed: %v", err)
	}
	if !res.Item.Quantity.Equal(qty(15)) || !res.Entry.Delta.Equal(qty(5)) {
		t.Errorf("expected quantity 15 and delta 5, got %s and %s", res.Item.Quantity, res.Entry.Delta)
	}

	res, err = f.ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(15), Type: domain.AdjustmentDeduction, ActorID: "user-1", SubjectID: "worker-7",
	})
	if err != nil {
		t.Fatalf("deduction to zero failed: %v", err)
	}
	if !res.Item.Quantity.IsZero() || !res.Entry.Delta.Equal(qty(-15)) {
		t.Errorf("expected quantity 0 and delta -15, got %s and %s", res.Item.Quantity, res.Entry.Delta)
	}
	if res.Entry.SubjectID != "worker-7" {
		t.Errorf("expected subject worker-7, got %q", res.Entry.SubjectID)
	}

	stored := mustGetItem(t, f.catalog, id)
	if stored.Version != res.Item.Version {
		t.Errorf("returned version %d does not match stored %d", res.Item.Version, stored.Version)
	}
}

func TestApplyAdjustment_InsufficientStock(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	_, err := f.ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(11), Type: domain.AdjustmentDeduction, ActorID: "user-1",
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	var stockErr *domain.StockError
	if !errors.As(err, &stockErr) || !stockErr.Available.Equal(qty(10)) || !stockErr.Requested.Equal(qty(11)) {
		t.Errorf("expected available 10 requested 11, got %+v", stockErr)
	}

	if item := mustGetItem(t, f.catalog, id); !item.Quantity.Equal(qty(10)) || item.Version != 1 {
		t.Errorf("item changed after failed deduction: %+v", item)
	}
	if countLogs(t, f.store, domain.LogFilter{}) != 0 {
		t.Error("failed deduction wrote a ledger entry")
	}
}

func TestApplyAdjustment_Validation(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	tests := []struct {
		name string
		adj  Adjustment
	}{
		{"zero amount", Adjustment{ItemID: id, Amount: qty(0), Type: domain.AdjustmentAddition, ActorID: "u"}},
		{"missing actor", Adjustment{ItemID: id, Amount: qty(3), Type: domain.AdjustmentAddition}},
		{"transfer type", Adjustment{ItemID: id, Amount: qty(3), Type: domain.AdjustmentTransfer, ActorID: "u"}},
		{"excess precision", Adjustment{ItemID: id, Amount: decimal.RequireFromString("0.00001"), Type: domain.AdjustmentAddition, ActorID: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.ApplyAdjustment(ctx, tt.adj); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestApplyAdjustment_SignFollowsType(t *testing.T) {
	f := newFixture(nil)
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	res, err := f.ledger.ApplyAdjustment(context.Background(), Adjustment{
		ItemID: id, Amount: qty(-3), Type: domain.AdjustmentDeduction, ActorID: "u",
	})
	if err != nil {
		t.Fatalf("deduction failed: %v", err)
	}
	if !res.Item.Quantity.Equal(qty(7)) || !res.Entry.Delta.Equal(qty(-3)) {
		t.Errorf("expected quantity 7 and delta -3, got %s and %s", res.Item.Quantity, res.Entry.Delta)
	}
}

func TestApplyAdjustment_UnknownItem(t *testing.T) {
	f := newFixture(nil)
	_, err := f.ledger.ApplyAdjustment(context.Background(), Adjustment{
		ItemID: "missing", Amount: qty(1), Type: domain.AdjustmentAddition, ActorID: "u",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetLogs_NewestFirstWithNames(t *testing.T) {
	dir := &mockDirectory{users: map[string]string{"user-1": "Ada"}}
	f := newFixture(dir)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	for _, actor := range []string{"user-1", "user-2"} {
		_, err := f.ledger.ApplyAdjustment(ctx, Adjustment{
			ItemID: id, Amount: qty(1), Type: domain.AdjustmentAddition, ActorID: actor,
		})
		if err != nil {
			t.Fatalf("addition failed: %v", err)
		}
	}

	logs, err := f.ledger.GetLogs(ctx, domain.LogFilter{ItemID: id})
	if err != nil {
		t.Fatalf("get logs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(logs))
	}
	if logs[0].ActorID != "user-2" || logs[0].ActorName != UnknownUser {
		t.Errorf("expected newest entry by unresolved user-2, got %s (%s)", logs[0].ActorID, logs[0].ActorName)
	}
	if logs[1].ActorName != "Ada" || logs[1].ItemName != "Cement" {
		t.Errorf("expected Ada on Cement, got %s on %s", logs[1].ActorName, logs[1].ItemName)
	}

	limited, _ := f.ledger.GetLogs(ctx, domain.LogFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit 1 to return 1 entry, got %d", len(limited))
	}
}

func TestGetLogs_DeletedItemKeepsHistory(t *testing.T) {
	f := newFixture(&mockDirectory{fail: true})
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 1, 0)

	_, err := f.ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(1), Type: domain.AdjustmentDeduction, ActorID: "user-1",
	})
	if err != nil {
		t.Fatalf("deduction failed: %v", err)
	}
	if err := f.catalog.DeleteItem(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	logs, err := f.ledger.GetLogs(ctx, domain.LogFilter{})
	if err != nil {
		t.Fatalf("get logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].ItemName != UnknownItem || logs[0].ActorName != UnknownUser {
		t.Errorf("expected placeholder names on retained entry, got %+v", logs)
	}
}

func TestInTx_RetriesConflicts(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	id := mustCreateItem(t, f.catalog, "Cement", "A", 10, 0)

	store := &conflictStore{Store: f.store, remaining: 2}
	ledger := NewLedgerService(store, nil, Options{ConflictRetries: 3}, nil)
	if _, err := ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(1), Type: domain.AdjustmentAddition, ActorID: "u",
	}); err != nil {
		t.Fatalf("expected success on third attempt, got: %v", err)
	}
	if store.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", store.calls)
	}

	store = &conflictStore{Store: f.store, remaining: 10}
	ledger = NewLedgerService(store, nil, Options{ConflictRetries: 3}, nil)
	_, err := ledger.ApplyAdjustment(ctx, Adjustment{
		ItemID: id, Amount: qty(1), Type: domain.AdjustmentAddition, ActorID: "u",
	})
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Errorf("expected ErrConcurrencyConflict, got: %v", err)
	}
	if store.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", store.calls)
	}
	if item := mustGetItem(t, f.catalog, id); !item.Quantity.Equal(qty(11)) {
		t.Errorf("expected quantity 11, got %s", item.Quantity)
	}
}
