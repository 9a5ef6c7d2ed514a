package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AdjustmentType int

const (
	AdjustmentAddition AdjustmentType = iota + 1
	AdjustmentDeduction
	AdjustmentTransfer
)

func (t AdjustmentType) String() string {
	switch t {
	case AdjustmentAddition:
		return "addition"
	case AdjustmentDeduction:
		return "deduction"
	case AdjustmentTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

func ParseAdjustmentType(s string) (AdjustmentType, error) {
	switch s {
	case "addition":
		return AdjustmentAddition, nil
	case "deduction":
		return AdjustmentDeduction, nil
	case "transfer":
		return AdjustmentTransfer, nil
	}
	return 0, fmt.Errorf("%w: unknown adjustment type %q", ErrValidation, s)
}

// SignedDelta turns a caller-supplied amount into the delta applied to stock.
// Only additions and deductions are direct adjustments.
func (t AdjustmentType) SignedDelta(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckScale("amount", amount); err != nil {
		return decimal.Zero, err
	}
	switch t {
	case AdjustmentAddition:
		return amount.Abs(), nil
	case AdjustmentDeduction:
		return amount.Abs().Neg(), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %s is not a direct adjustment type", ErrValidation, t)
	}
}

// LogEntry is immutable once appended. For additions and deductions Delta is
// the signed change to ItemID. A transfer entry carries the positive amount
// that left ItemID and entered DestinationItemID.
type LogEntry struct {
	ID                string
	ItemID            string
	DestinationItemID string
	Delta             decimal.Decimal
	Reason            string
	Type              AdjustmentType
	ActorID           string
	SubjectID         string
	RequestID         string
	FromLocation      string
	ToLocation        string
	CreatedBy         string
	CreatedAt         time.Time
	Seq               int64 // assigned by the store, gives causal order
}

// QuantityChange returns how much the entry moved itemID's stock.
func (e LogEntry) QuantityChange(itemID string) decimal.Decimal {
	if e.Type != AdjustmentTransfer {
		if e.ItemID == itemID {
			return e.Delta
		}
		return decimal.Zero
	}
	switch itemID {
	case e.ItemID:
		return e.Delta.Neg()
	case e.DestinationItemID:
		return e.Delta
	}
	return decimal.Zero
}

// Touches reports whether the entry changed itemID's stock.
func (e LogEntry) Touches(itemID string) bool {
	return e.ItemID == itemID || e.DestinationItemID == itemID
}

type LogFilter struct {
	ItemID string
	Type   AdjustmentType // zero means any
	Limit  int
}

const (
	DefaultLogLimit = 100
	MaxLogLimit     = 1000
)

func (f LogFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLogLimit
	case f.Limit > MaxLogLimit:
		return MaxLogLimit
	}
	return f.Limit
}

func (f LogFilter) Match(e LogEntry) bool {
	if f.ItemID != "" && !e.Touches(f.ItemID) {
		return false
	}
	if f.Type != 0 && e.Type != f.Type {
		return false
	}
	return true
}
