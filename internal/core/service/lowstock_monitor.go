package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

// LowStockMonitor is a read-only view; nothing is cached between calls.
type LowStockMonitor struct {
	store  port.Store
	logger *zap.Logger
}

func NewLowStockMonitor(store port.Store, logger *zap.Logger) *LowStockMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LowStockMonitor{store: store, logger: logger}
}

// Check returns items at or below their threshold, most critical first. An
// empty location means every location.
func (m *LowStockMonitor) Check(ctx context.Context, location string) ([]domain.LowStockItem, error) {
	var items []domain.Item
	err := m.store.View(ctx, func(tx port.Tx) error {
		var err error
		items, err = tx.ListItems(ctx, domain.ItemFilter{Location: location})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return domain.RankLowStock(items), nil
}

// Scan logs every low item and returns how many were found.
func (m *LowStockMonitor) Scan(ctx context.Context) (int, error) {
	low, err := m.Check(ctx, "")
	if err != nil {
		return 0, err
	}

	for _, entry := range low {
		m.logger.Warn("low stock",
			zap.String("item_id", entry.Item.ID),
			zap.String("name", entry.Item.Name),
			zap.String("location", entry.Item.Location),
			zap.Stringer("quantity", entry.Item.Quantity),
			zap.Stringer("threshold", entry.Item.LowStockThreshold),
			zap.Int64("percentage_remaining", entry.PercentageRemaining))
	}
	return len(low), nil
}
