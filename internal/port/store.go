package port

import (
	"context"

	"github.com/rl1809/stock-ledger/internal/core/domain"
)

// Store runs units of work. Everything fn writes through tx commits together
// or not at all; a non-nil error from fn rolls the unit back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against a consistent read-only snapshot
	View(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	// GetItem returns domain.ErrNotFound when the item is absent
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// FindItemByKey returns nil, nil when no item has the key
	FindItemByKey(ctx context.Context, key domain.ItemKey) (*domain.Item, error)

	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)

	// InsertItem fails with domain.ErrConcurrencyConflict if the key is taken
	InsertItem(ctx context.Context, item domain.Item) error

	// UpdateItem writes item if its Version still matches the stored one,
	// otherwise domain.ErrConcurrencyConflict
	UpdateItem(ctx context.Context, item domain.Item) error

	DeleteItem(ctx context.Context, item domain.Item) error

	AppendLog(ctx context.Context, entry domain.LogEntry) error

	// ListLogs returns entries newest first
	ListLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error)

	InsertRequest(ctx context.Context, req domain.Request) error

	// GetRequest returns domain.ErrNotFound when the request is absent
	GetRequest(ctx context.Context, id string) (*domain.Request, error)

	// UpdateRequest writes status fields with the same version check as UpdateItem
	UpdateRequest(ctx context.Context, req domain.Request) error

	ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.Request, error)
}
