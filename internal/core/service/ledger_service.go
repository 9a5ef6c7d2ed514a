package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

type Adjustment struct {
	ItemID    string
	Amount    decimal.Decimal
	Reason    string
	Type      domain.AdjustmentType
	ActorID   string
	SubjectID string
}

type AdjustmentResult struct {
	Item  domain.Item
	Entry domain.LogEntry
}

// LogView is a ledger entry with display names resolved.
type LogView struct {
	domain.LogEntry
	ItemName  string
	ActorName string
}

type LedgerService struct {
	base
	dir port.Directory
}

func NewLedgerService(store port.Store, dir port.Directory, opts Options, logger *zap.Logger) *LedgerService {
	return &LedgerService{base: newBase(store, opts, logger), dir: dir}
}

// ApplyAdjustment changes one item's quantity and records the change in the
// same unit of work.
func (s *LedgerService) ApplyAdjustment(ctx context.Context, adj Adjustment) (*AdjustmentResult, error) {
	delta, err := adj.Type.SignedDelta(adj.Amount)
	if err != nil {
		return nil, err
	}
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: amount must not be zero", domain.ErrValidation)
	}
	if strings.TrimSpace(adj.ActorID) == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var result AdjustmentResult
	err = s.inTx(ctx, "apply_adjustment", func(tx port.Tx) error {
		item, err := tx.GetItem(ctx, adj.ItemID)
		if err != nil {
			return err
		}

		next := item.Quantity.Add(delta)
		if next.IsNegative() {
			return &domain.StockError{ItemID: item.ID, Available: item.Quantity, Requested: delta.Abs()}
		}

		now := s.now()
		item.Quantity = next
		item.UpdatedAt = now
		if err := tx.UpdateItem(ctx, *item); err != nil {
			return err
		}

		entry := domain.LogEntry{
			ID:        s.newID(),
			ItemID:    item.ID,
			Delta:     delta,
			Reason:    adj.Reason,
			Type:      adj.Type,
			ActorID:   adj.ActorID,
			SubjectID: adj.SubjectID,
			CreatedBy: adj.ActorID,
			CreatedAt: now,
		}
		if err := tx.AppendLog(ctx, entry); err != nil {
			return err
		}

		result.Item = *item
		result.Item.Version++
		result.Entry = entry
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.logger.Info("adjustment rejected", zap.String("item_id", adj.ItemID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("adjustment applied",
		zap.String("item_id", adj.ItemID),
		zap.Stringer("type", adj.Type),
		zap.Stringer("delta", delta),
		zap.Stringer("quantity", result.Item.Quantity))
	return &result, nil
}

// GetLogs returns entries newest first.
func (s *LedgerService) GetLogs(ctx context.Context, filter domain.LogFilter) ([]LogView, error) {
	var entries []domain.LogEntry
	itemNames := make(map[string]string)
	err := s.store.View(ctx, func(tx port.Tx) error {
		var err error
		entries, err = tx.ListLogs(ctx, filter)
		if err != nil {
			return err
		}
		return resolveItemNames(ctx, tx, entryItemIDs(entries), itemNames)
	})
	if err != nil {
		return nil, err
	}

	n := newNames(s.dir, s.logger)
	views := make([]LogView, 0, len(entries))
	for _, e := range entries {
		views = append(views, LogView{
			LogEntry:  e,
			ItemName:  itemNames[e.ItemID],
			ActorName: n.user(ctx, e.ActorID),
		})
	}
	return views, nil
}

func entryItemIDs(entries []domain.LogEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ItemID)
	}
	return ids
}

// resolveItemNames fills dst with a name per id, using the placeholder for
// items that no longer exist.
func resolveItemNames(ctx context.Context, tx port.Tx, ids []string, dst map[string]string) error {
	for _, id := range ids {
		if _, ok := dst[id]; ok {
			continue
		}
		item, err := tx.GetItem(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			dst[id] = UnknownItem
		case err != nil:
			return err
		default:
			dst[id] = item.Name
		}
	}
	return nil
}
