package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignedDelta(t *testing.T) {
	five := decimal.NewFromInt(5)

	got, err := AdjustmentAddition.SignedDelta(five.Neg())
	if err != nil || !got.Equal(five) {
		t.Errorf("addition: expected 5, got %s (%v)", got, err)
	}

	got, err = AdjustmentDeduction.SignedDelta(five)
	if err != nil || !got.Equal(five.Neg()) {
		t.Errorf("deduction: expected -5, got %s (%v)", got, err)
	}

	if _, err := AdjustmentTransfer.SignedDelta(five); !errors.Is(err, ErrValidation) {
		t.Errorf("transfer: expected ErrValidation, got %v", err)
	}
}

func TestLogFilter_EffectiveLimit(t *testing.T) {
	if got := (LogFilter{}).EffectiveLimit(); got != DefaultLogLimit {
		t.Errorf("expected default %d, got %d", DefaultLogLimit, got)
	}
	if got := (LogFilter{Limit: 5000}).EffectiveLimit(); got != MaxLogLimit {
		t.Errorf("expected max %d, got %d", MaxLogLimit, got)
	}
	if got := (LogFilter{Limit: 7}).EffectiveLimit(); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestItemPatch_Apply(t *testing.T) {
	it := Item{Name: "Cement", Location: "A", LowStockThreshold: decimal.NewFromInt(1)}

	neg := decimal.NewFromInt(-1)
	if err := (ItemPatch{LowStockThreshold: &neg}).Apply(&it); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative threshold, got %v", err)
	}

	name, loc := "Portland Cement", "B"
	if err := (ItemPatch{Name: &name, Location: &loc}).Apply(&it); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Name != name || it.Location != loc {
		t.Errorf("patch not applied: %+v", it)
	}
}

func TestLogFilter_MatchesTransferDestination(t *testing.T) {
	e := LogEntry{ItemID: "src", DestinationItemID: "dst", Type: AdjustmentTransfer, Delta: decimal.NewFromInt(4)}

	for _, id := range []string{"src", "dst"} {
		if !(LogFilter{ItemID: id}).Match(e) {
			t.Errorf("expected entry to match %s", id)
		}
	}
	if (LogFilter{ItemID: "other"}).Match(e) {
		t.Error("expected entry not to match an unrelated item")
	}

	if got := e.QuantityChange("src"); !got.Equal(decimal.NewFromInt(-4)) {
		t.Errorf("source: expected -4, got %s", got)
	}
	if got := e.QuantityChange("dst"); !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("destination: expected 4, got %s", got)
	}

	deduction := LogEntry{ItemID: "src", Type: AdjustmentDeduction, Delta: decimal.NewFromInt(-2)}
	if got := deduction.QuantityChange("src"); !got.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("deduction: expected -2, got %s", got)
	}
}

func TestCheckScale(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"1", true},
		{"0.0001", true},
		{"1.50000", true},
		{"0.00001", false},
		{"2.12345", false},
	}
	for _, tt := range tests {
		err := CheckScale("amount", decimal.RequireFromString(tt.value))
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.value, err)
		}
		if !tt.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.value, err)
		}
	}

	if _, err := AdjustmentDeduction.SignedDelta(decimal.RequireFromString("0.00001")); !errors.Is(err, ErrValidation) {
		t.Errorf("expected SignedDelta to reject excess precision, got %v", err)
	}
}
