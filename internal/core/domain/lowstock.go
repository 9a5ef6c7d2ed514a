package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type LowStockItem struct {
	Item                Item
	PercentageRemaining int64
}

func IsLowStock(item Item) bool {
	return item.Quantity.LessThanOrEqual(item.LowStockThreshold)
}

// PercentageRemaining is quantity/threshold as a rounded percentage, or 0 when
// no threshold is configured.
func PercentageRemaining(item Item) int64 {
	if !item.LowStockThreshold.IsPositive() {
		return 0
	}
	return item.Quantity.Div(item.LowStockThreshold).Mul(hundred).Round(0).IntPart()
}

// RankLowStock keeps the low items, most critical first.
func RankLowStock(items []Item) []LowStockItem {
	out := make([]LowStockItem, 0)
	for _, item := range items {
		if !IsLowStock(item) {
			continue
		}
		out = append(out, LowStockItem{Item: item, PercentageRemaining: PercentageRemaining(item)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PercentageRemaining != out[j].PercentageRemaining {
			return out[i].PercentageRemaining < out[j].PercentageRemaining
		}
		return out[i].Item.Name < out[j].Item.Name
	})
	return out
}
