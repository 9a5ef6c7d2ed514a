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

type LineView struct {
	domain.RequestLine
	ItemName string
}

type RequestView struct {
	Request            domain.Request
	RequestedByName    string
	RequestingUnitName string
	Lines              []LineView
}

type RequestService struct {
	base
	dir port.Directory
}

func NewRequestService(store port.Store, dir port.Directory, opts Options, logger *zap.Logger) *RequestService {
	return &RequestService{base: newBase(store, opts, logger), dir: dir}
}

func (s *RequestService) CreateRequest(ctx context.Context, spec domain.NewRequest) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	req := domain.Request{
		ID:             s.newID(),
		RequestingUnit: spec.RequestingUnit,
		RequestedBy:    spec.RequestedBy,
		Lines:          append([]domain.RequestLine(nil), spec.Lines...),
		Status:         domain.RequestPending,
		Notes:          spec.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.store.WithinTx(ctx, func(tx port.Tx) error {
		for _, line := range req.Lines {
			if _, err := tx.GetItem(ctx, line.ItemID); err != nil {
				return err
			}
		}
		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("request created", zap.String("request_id", req.ID), zap.String("unit", req.RequestingUnit), zap.Int("lines", len(req.Lines)))
	return req.ID, nil
}

func (s *RequestService) Approve(ctx context.Context, id, approvedBy string) (*domain.Request, error) {
	return s.transition(ctx, "approve", id, approvedBy, domain.RequestApproved)
}

func (s *RequestService) Reject(ctx context.Context, id, rejectedBy string) (*domain.Request, error) {
	return s.transition(ctx, "reject", id, rejectedBy, domain.RequestRejected)
}

func (s *RequestService) transition(ctx context.Context, op, id, actor string, to domain.RequestStatus) (*domain.Request, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var out domain.Request
	err := s.inTx(ctx, op, func(tx port.Tx) error {
		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := req.Transition(to, actor, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		out = *req
		out.Version++
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			s.logger.Info("transition refused", zap.String("request_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("request transitioned", zap.String("request_id", id), zap.Stringer("status", to), zap.String("actor", actor))
	return &out, nil
}

// Fulfill deducts every line of an approved request. All lines are checked
// before any stock moves, so a shortfall on any line leaves every item and
// the request untouched.
func (s *RequestService) Fulfill(ctx context.Context, id, fulfilledBy string) (*domain.Request, error) {
	if strings.TrimSpace(fulfilledBy) == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}

	var out domain.Request
	err := s.inTx(ctx, "fulfill", func(tx port.Tx) error {
		req, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if !req.Status.CanTransition(domain.RequestFulfilled) {
			return &domain.TransitionError{From: req.Status, To: domain.RequestFulfilled}
		}

		// validation pass, lines for the same item draw on one balance
		claimed := make(map[string]decimal.Decimal)
		for i, line := range req.Lines {
			item, err := tx.GetItem(ctx, line.ItemID)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			need := claimed[line.ItemID].Add(line.QuantityRequested)
			if item.Quantity.LessThan(need) {
				return &domain.StockError{ItemID: item.ID, Line: i + 1, Available: item.Quantity, Requested: need}
			}
			claimed[line.ItemID] = need
		}

		// apply pass
		now := s.now()
		for _, line := range req.Lines {
			item, err := tx.GetItem(ctx, line.ItemID)
			if err != nil {
				return err
			}
			item.Quantity = item.Quantity.Sub(line.QuantityRequested)
			item.UpdatedAt = now
			if err := tx.UpdateItem(ctx, *item); err != nil {
				return err
			}

			entry := domain.LogEntry{
				ID:        s.newID(),
				ItemID:    item.ID,
				Delta:     line.QuantityRequested.Neg(),
				Reason:    fmt.Sprintf("Fulfilled request %s for %s", req.ID, req.RequestingUnit),
				Type:      domain.AdjustmentDeduction,
				ActorID:   fulfilledBy,
				RequestID: req.ID,
				CreatedBy: fulfilledBy,
				CreatedAt: now,
			}
			if err := tx.AppendLog(ctx, entry); err != nil {
				return err
			}
		}

		if err := req.Transition(domain.RequestFulfilled, fulfilledBy, now); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		out = *req
		out.Version++
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrInvalidStateTransition) {
			s.logger.Info("fulfillment refused", zap.String("request_id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("request fulfilled", zap.String("request_id", id), zap.Int("lines", len(out.Lines)), zap.String("actor", fulfilledBy))
	return &out, nil
}

func (s *RequestService) GetRequest(ctx context.Context, id string) (*RequestView, error) {
	var req *domain.Request
	itemNames := make(map[string]string)
	err := s.store.View(ctx, func(tx port.Tx) error {
		var err error
		req, err = tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		return resolveItemNames(ctx, tx, lineItemIDs(req.Lines), itemNames)
	})
	if err != nil {
		return nil, err
	}

	view := s.view(ctx, newNames(s.dir, s.logger), *req, itemNames)
	return &view, nil
}

func (s *RequestService) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]RequestView, error) {
	var reqs []domain.Request
	itemNames := make(map[string]string)
	err := s.store.View(ctx, func(tx port.Tx) error {
		var err error
		reqs, err = tx.ListRequests(ctx, filter)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			if err := resolveItemNames(ctx, tx, lineItemIDs(req.Lines), itemNames); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n := newNames(s.dir, s.logger)
	views := make([]RequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, s.view(ctx, n, req, itemNames))
	}
	return views, nil
}

func (s *RequestService) view(ctx context.Context, n *names, req domain.Request, itemNames map[string]string) RequestView {
	lines := make([]LineView, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, LineView{RequestLine: line, ItemName: itemNames[line.ItemID]})
	}
	return RequestView{
		Request:            req,
		RequestedByName:    n.user(ctx, req.RequestedBy),
		RequestingUnitName: n.unit(ctx, req.RequestingUnit),
		Lines:              lines,
	}
}

func lineItemIDs(lines []domain.RequestLine) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	return ids
}
