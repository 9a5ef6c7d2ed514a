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

type Transfer struct {
	ItemID       string
	Amount       decimal.Decimal
	FromLocation string
	ToLocation   string
	ActorID      string
}

type TransferResult struct {
	Source      domain.Item
	Destination domain.Item
	Created     bool
	Entry       domain.LogEntry
}

type TransferService struct {
	base
}

func NewTransferService(store port.Store, opts Options, logger *zap.Logger) *TransferService {
	return &TransferService{base: newBase(store, opts, logger)}
}

func (t Transfer) validate() error {
	switch {
	case !t.Amount.IsPositive():
		return fmt.Errorf("%w: transfer amount must be positive", domain.ErrValidation)
	case strings.TrimSpace(t.FromLocation) == "" || strings.TrimSpace(t.ToLocation) == "":
		return fmt.Errorf("%w: both locations are required", domain.ErrValidation)
	case t.FromLocation == t.ToLocation:
		return fmt.Errorf("%w: source and destination locations are the same", domain.ErrValidation)
	case strings.TrimSpace(t.ActorID) == "":
		return fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}
	return domain.CheckScale("amount", t.Amount)
}

// Transfer moves stock to the item with the same name and batch at the
// destination, creating it if needed. The source decrement, destination
// increment and ledger entry commit together. Two transfers racing to create
// the same destination collide on the store's identity key, and the loser
// re-runs against the winner's record.
func (s *TransferService) Transfer(ctx context.Context, req Transfer) (*TransferResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result TransferResult
	err := s.inTx(ctx, "transfer", func(tx port.Tx) error {
		result = TransferResult{}

		src, err := tx.GetItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if src.Location != req.FromLocation {
			return fmt.Errorf("%w: item is stored at %s, not %s", domain.ErrLocationMismatch, src.Location, req.FromLocation)
		}
		if src.Quantity.LessThan(req.Amount) {
			return &domain.StockError{ItemID: src.ID, Available: src.Quantity, Requested: req.Amount}
		}

		now := s.now()
		src.Quantity = src.Quantity.Sub(req.Amount)
		src.UpdatedAt = now
		if err := tx.UpdateItem(ctx, *src); err != nil {
			return err
		}
		result.Source = *src
		result.Source.Version++

		key := domain.ItemKey{Name: src.Name, BatchNo: src.BatchNo, Location: req.ToLocation}
		dst, err := tx.FindItemByKey(ctx, key)
		if err != nil {
			return err
		}
		if dst != nil {
			dst.Quantity = dst.Quantity.Add(req.Amount)
			dst.UpdatedAt = now
			if err := tx.UpdateItem(ctx, *dst); err != nil {
				return err
			}
			result.Destination = *dst
			result.Destination.Version++
		} else {
			created := domain.Item{
				ID:                s.newID(),
				Name:              src.Name,
				Quantity:          req.Amount,
				BatchNo:           src.BatchNo,
				ExpiryDate:        src.ExpiryDate,
				LowStockThreshold: src.LowStockThreshold,
				Location:          req.ToLocation,
				Unit:              src.Unit,
				Category:          src.Category,
				CreatedBy:         src.CreatedBy,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := tx.InsertItem(ctx, created); err != nil {
				return err
			}
			result.Destination = created
			result.Destination.Version = 1
			result.Created = true
		}

		result.Entry = domain.LogEntry{
			ID:                s.newID(),
			ItemID:            src.ID,
			DestinationItemID: result.Destination.ID,
			Delta:             req.Amount,
			Reason:            fmt.Sprintf("Transfer from %s to %s", req.FromLocation, req.ToLocation),
			Type:              domain.AdjustmentTransfer,
			ActorID:           req.ActorID,
			FromLocation:      req.FromLocation,
			ToLocation:        req.ToLocation,
			CreatedBy:         req.ActorID,
			CreatedAt:         now,
		}
		return tx.AppendLog(ctx, result.Entry)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrLocationMismatch) {
			s.logger.Info("transfer rejected", zap.String("item_id", req.ItemID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("transfer committed",
		zap.String("source_id", result.Source.ID),
		zap.String("destination_id", result.Destination.ID),
		zap.Bool("destination_created", result.Created),
		zap.Stringer("amount", req.Amount))
	return &result, nil
}
