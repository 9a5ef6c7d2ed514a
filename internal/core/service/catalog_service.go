package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

// CatalogService owns item records. Quantities only change through the
// ledger, transfer and request services.
type CatalogService struct {
	base
	monitor *LowStockMonitor
}

func NewCatalogService(store port.Store, opts Options, logger *zap.Logger) *CatalogService {
	b := newBase(store, opts, logger)
	return &CatalogService{base: b, monitor: NewLowStockMonitor(store, b.logger)}
}

func (s *CatalogService) CreateItem(ctx context.Context, spec domain.NewItem) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	item := domain.Item{
		ID:                s.newID(),
		Name:              spec.Name,
		Quantity:          spec.Quantity,
		BatchNo:           spec.BatchNo,
		ExpiryDate:        spec.ExpiryDate,
		LowStockThreshold: spec.LowStockThreshold,
		Location:          spec.Location,
		Unit:              spec.Unit,
		Category:          spec.Category,
		CreatedBy:         spec.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.inTx(ctx, "create_item", func(tx port.Tx) error {
		existing, err := tx.FindItemByKey(ctx, item.Key())
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s batch %q already exists at %s", domain.ErrValidation, item.Name, item.BatchNo, item.Location)
		}
		return tx.InsertItem(ctx, item)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("item created", zap.String("item_id", item.ID), zap.String("location", item.Location), zap.Stringer("quantity", item.Quantity))
	return item.ID, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item *domain.Item
	err := s.store.View(ctx, func(tx port.Tx) error {
		var err error
		item, err = tx.GetItem(ctx, id)
		return err
	})
	return item, err
}

func (s *CatalogService) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	var items []domain.Item
	err := s.store.View(ctx, func(tx port.Tx) error {
		var err error
		items, err = tx.ListItems(ctx, filter)
		return err
	})
	return items, err
}

// UpdateItem changes descriptive fields only.
func (s *CatalogService) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	var updated domain.Item
	err := s.inTx(ctx, "update_item", func(tx port.Tx) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		oldKey := item.Key()
		if err := patch.Apply(item); err != nil {
			return err
		}

		if item.Key() != oldKey {
			clash, err := tx.FindItemByKey(ctx, item.Key())
			if err != nil {
				return err
			}
			if clash != nil && clash.ID != item.ID {
				return fmt.Errorf("%w: %s batch %q already exists at %s", domain.ErrValidation, item.Name, item.BatchNo, item.Location)
			}
		}

		item.UpdatedAt = s.now()
		if err := tx.UpdateItem(ctx, *item); err != nil {
			return err
		}
		updated = *item
		updated.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem refuses to remove stock that still exists or that an open
// request is counting on. Ledger history for the item is kept.
func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	err := s.inTx(ctx, "delete_item", func(tx port.Tx) error {
		item, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if !item.Quantity.IsZero() {
			return fmt.Errorf("%w: item still holds %s %s", domain.ErrItemInUse, item.Quantity, item.Unit)
		}

		open := 0
		for _, status := range []domain.RequestStatus{domain.RequestPending, domain.RequestApproved} {
			reqs, err := tx.ListRequests(ctx, domain.RequestFilter{Status: status})
			if err != nil {
				return err
			}
			for _, req := range reqs {
				if req.References(id) {
					open++
				}
			}
		}
		if open > 0 {
			return fmt.Errorf("%w: referenced by %d open request(s)", domain.ErrItemInUse, open)
		}

		return tx.DeleteItem(ctx, *item)
	})
	if err != nil {
		return err
	}

	s.logger.Info("item deleted", zap.String("item_id", id))
	return nil
}

func (s *CatalogService) GetLowStock(ctx context.Context, location string) ([]domain.LowStockItem, error) {
	return s.monitor.Check(ctx, location)
}
