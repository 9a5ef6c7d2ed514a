package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

const (
	UnknownItem = "Unknown item"
	UnknownUser = "Unknown user"
	UnknownUnit = "Unknown unit"
)

// Options tune how services react to concurrent writers.
type Options struct {
	ConflictRetries int
	RetryBackoff    time.Duration
}

func DefaultOptions() Options {
	return Options{ConflictRetries: 3, RetryBackoff: 10 * time.Millisecond}
}

type base struct {
	store  port.Store
	opts   Options
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func newBase(store port.Store, opts Options, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConflictRetries < 1 {
		opts.ConflictRetries = 1
	}
	return base{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// inTx runs fn as one unit of work and re-runs the whole unit when a
// concurrent writer invalidated what it read.
func (b *base) inTx(ctx context.Context, op string, fn func(tx port.Tx) error) error {
	var err error
	for attempt := 1; attempt <= b.opts.ConflictRetries; attempt++ {
		err = b.store.WithinTx(ctx, fn)
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt == b.opts.ConflictRetries {
			break
		}

		b.logger.Debug("retrying after conflict", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * b.opts.RetryBackoff):
		}
	}

	b.logger.Warn("giving up after conflicts", zap.String("op", op), zap.Int("attempts", b.opts.ConflictRetries), zap.Error(err))
	return err
}

// names resolves display labels best-effort; a failed lookup yields a placeholder.
type names struct {
	dir    port.Directory
	logger *zap.Logger
	users  map[string]string
	units  map[string]string
}

func newNames(dir port.Directory, logger *zap.Logger) *names {
	return &names{dir: dir, logger: logger, users: map[string]string{}, units: map[string]string{}}
}

func (n *names) user(ctx context.Context, id string) string {
	return n.resolve(ctx, id, n.users, UnknownUser, func(ctx context.Context, id string) (string, error) {
		return n.dir.UserName(ctx, id)
	})
}

func (n *names) unit(ctx context.Context, id string) string {
	return n.resolve(ctx, id, n.units, UnknownUnit, func(ctx context.Context, id string) (string, error) {
		return n.dir.UnitName(ctx, id)
	})
}

func (n *names) resolve(ctx context.Context, id string, seen map[string]string, placeholder string, lookup func(context.Context, string) (string, error)) string {
	if id == "" || n.dir == nil {
		return placeholder
	}
	if name, ok := seen[id]; ok {
		return name
	}

	name, err := lookup(ctx, id)
	if err != nil || name == "" {
		n.logger.Debug("name lookup failed", zap.String("id", id), zap.Error(err))
		name = placeholder
	}
	seen[id] = name
	return name
}
