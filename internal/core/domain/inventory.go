package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID                string
	Name              string
	Quantity          decimal.Decimal
	BatchNo           string
	ExpiryDate        *time.Time
	LowStockThreshold decimal.Decimal
	Location          string
	Unit              string
	Category          string
	CreatedBy         string
	Version           int64 // optimistic locking
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ItemKey identifies the single item allowed per name, batch and location.
type ItemKey struct {
	Name     string
	BatchNo  string
	Location string
}

func (i Item) Key() ItemKey {
	return ItemKey{Name: i.Name, BatchNo: i.BatchNo, Location: i.Location}
}

func (k ItemKey) String() string {
	return k.Name + "|" + k.BatchNo + "|" + k.Location
}

// QuantityScale is the number of fractional digits a stored quantity keeps.
const QuantityScale = 4

// CheckScale rejects values the stores would have to round.
func CheckScale(field string, v decimal.Decimal) error {
	if v.Exponent() < -QuantityScale && !v.Equal(v.Round(QuantityScale)) {
		return fmt.Errorf("%w: %s %s has more than %d decimal places", ErrValidation, field, v, QuantityScale)
	}
	return nil
}

// NewItem carries everything createItem accepts.
type NewItem struct {
	Name              string
	Quantity          decimal.Decimal
	BatchNo           string
	ExpiryDate        *time.Time
	LowStockThreshold decimal.Decimal
	Location          string
	Unit              string
	Category          string
	CreatedBy         string
}

func (n NewItem) Validate() error {
	switch {
	case strings.TrimSpace(n.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case strings.TrimSpace(n.Location) == "":
		return fmt.Errorf("%w: location is required", ErrValidation)
	case n.Quantity.IsNegative():
		return fmt.Errorf("%w: quantity cannot be negative, got %s", ErrValidation, n.Quantity)
	case n.LowStockThreshold.IsNegative():
		return fmt.Errorf("%w: low stock threshold cannot be negative, got %s", ErrValidation, n.LowStockThreshold)
	}
	if err := CheckScale("quantity", n.Quantity); err != nil {
		return err
	}
	return CheckScale("low stock threshold", n.LowStockThreshold)
}

// ItemPatch lists the descriptive fields updateItem may change. Quantity and
// batch number cannot be patched.
type ItemPatch struct {
	Name              *string
	LowStockThreshold *decimal.Decimal
	Location          *string
	Unit              *string
	Category          *string
}

// Apply validates the patch against item and writes the changed fields.
func (p ItemPatch) Apply(item *Item) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		item.Name = *p.Name
	}
	if p.LowStockThreshold != nil {
		if p.LowStockThreshold.IsNegative() {
			return fmt.Errorf("%w: low stock threshold cannot be negative, got %s", ErrValidation, *p.LowStockThreshold)
		}
		if err := CheckScale("low stock threshold", *p.LowStockThreshold); err != nil {
			return err
		}
		item.LowStockThreshold = *p.LowStockThreshold
	}
	if p.Location != nil {
		if strings.TrimSpace(*p.Location) == "" {
			return fmt.Errorf("%w: location cannot be empty", ErrValidation)
		}
		item.Location = *p.Location
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	return nil
}

type ItemFilter struct {
	Location   string
	Category   string
	SearchTerm string
}

// Match reports whether item passes every non-empty filter field.
func (f ItemFilter) Match(item Item) bool {
	if f.Location != "" && item.Location != f.Location {
		return false
	}
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" {
		return strings.Contains(strings.ToLower(item.Name), term) ||
			strings.Contains(strings.ToLower(item.BatchNo), term) ||
			strings.Contains(strings.ToLower(item.Category), term)
	}
	return true
}
