package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

var errReadOnly = errors.New("write in read-only transaction")

// MemoryStore keeps the whole ledger in process. A unit of work holds the
// write lock and stages changes in an overlay that is merged on commit and
// dropped on rollback.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]domain.Item
	keys     map[domain.ItemKey]string
	logs     []domain.LogEntry
	requests map[string]domain.Request
	seq      int64
}

var _ port.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]domain.Item),
		keys:     make(map[domain.ItemKey]string),
		requests: make(map[string]domain.Request),
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemTx(s, false)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx.commit()
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx port.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(newMemTx(s, true))
}

type memTx struct {
	store    *MemoryStore
	readOnly bool
	items    map[string]*domain.Item // nil marks a deleted item
	keys     map[domain.ItemKey]string
	logs     []domain.LogEntry
	requests map[string]domain.Request
}

func newMemTx(s *MemoryStore, readOnly bool) *memTx {
	return &memTx{
		store:    s,
		readOnly: readOnly,
		items:    make(map[string]*domain.Item),
		keys:     make(map[domain.ItemKey]string),
		requests: make(map[string]domain.Request),
	}
}

func (t *memTx) commit() {
	s := t.store
	for id, item := range t.items {
		if item == nil {
			delete(s.items, id)
			continue
		}
		s.items[id] = *item
	}
	for key, id := range t.keys {
		if id == "" {
			delete(s.keys, key)
			continue
		}
		s.keys[key] = id
	}
	for _, entry := range t.logs {
		s.seq++
		entry.Seq = s.seq
		s.logs = append(s.logs, entry)
	}
	for id, req := range t.requests {
		s.requests[id] = req
	}
}

func (t *memTx) lookupItem(id string) (domain.Item, bool) {
	if staged, ok := t.items[id]; ok {
		if staged == nil {
			return domain.Item{}, false
		}
		return *staged, true
	}
	item, ok := t.store.items[id]
	return item, ok
}

func (t *memTx) lookupKey(key domain.ItemKey) (string, bool) {
	if id, ok := t.keys[key]; ok {
		return id, id != ""
	}
	id, ok := t.store.keys[key]
	return id, ok
}

func (t *memTx) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, ok := t.lookupItem(id)
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

func (t *memTx) FindItemByKey(ctx context.Context, key domain.ItemKey) (*domain.Item, error) {
	id, ok := t.lookupKey(key)
	if !ok {
		return nil, nil
	}
	item, ok := t.lookupItem(id)
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (t *memTx) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	seen := make(map[string]bool)
	var out []domain.Item
	collect := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if item, ok := t.lookupItem(id); ok && filter.Match(item) {
			out = append(out, item)
		}
	}
	for id := range t.items {
		collect(id)
	}
	for id := range t.store.items {
		collect(id)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) InsertItem(ctx context.Context, item domain.Item) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, ok := t.lookupItem(item.ID); ok {
		return fmt.Errorf("insert item %s: %w", item.ID, domain.ErrConcurrencyConflict)
	}
	if _, ok := t.lookupKey(item.Key()); ok {
		return fmt.Errorf("insert item %s: %w", item.Key(), domain.ErrConcurrencyConflict)
	}

	item.Version = 1
	t.items[item.ID] = &item
	t.keys[item.Key()] = item.ID
	return nil
}

func (t *memTx) UpdateItem(ctx context.Context, item domain.Item) error {
	if t.readOnly {
		return errReadOnly
	}
	current, ok := t.lookupItem(item.ID)
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrNotFound)
	}
	if current.Version != item.Version {
		return fmt.Errorf("update item %s: %w", item.ID, domain.ErrConcurrencyConflict)
	}
	if current.Key() != item.Key() {
		if id, taken := t.lookupKey(item.Key()); taken && id != item.ID {
			return fmt.Errorf("update item %s: %w", item.Key(), domain.ErrConcurrencyConflict)
		}
		t.keys[current.Key()] = ""
		t.keys[item.Key()] = item.ID
	}

	item.Version++
	item.UpdatedAt = time.Now().UTC()
	t.items[item.ID] = &item
	return nil
}

func (t *memTx) DeleteItem(ctx context.Context, item domain.Item) error {
	if t.readOnly {
		return errReadOnly
	}
	current, ok := t.lookupItem(item.ID)
	if !ok {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrNotFound)
	}
	if current.Version != item.Version {
		return fmt.Errorf("delete item %s: %w", item.ID, domain.ErrConcurrencyConflict)
	}

	t.items[item.ID] = nil
	t.keys[current.Key()] = ""
	return nil
}

func (t *memTx) AppendLog(ctx context.Context, entry domain.LogEntry) error {
	if t.readOnly {
		return errReadOnly
	}
	t.logs = append(t.logs, entry)
	return nil
}

func (t *memTx) ListLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	limit := filter.EffectiveLimit()
	out := make([]domain.LogEntry, 0)

	// staged entries are newer than anything committed
	for i := len(t.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.Match(t.logs[i]) {
			out = append(out, t.logs[i])
		}
	}
	for i := len(t.store.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if filter.Match(t.store.logs[i]) {
			out = append(out, t.store.logs[i])
		}
	}
	return out, nil
}

func (t *memTx) lookupRequest(id string) (domain.Request, bool) {
	if req, ok := t.requests[id]; ok {
		return req, true
	}
	req, ok := t.store.requests[id]
	return req, ok
}

func (t *memTx) InsertRequest(ctx context.Context, req domain.Request) error {
	if t.readOnly {
		return errReadOnly
	}
	if _, ok := t.lookupRequest(req.ID); ok {
		return fmt.Errorf("insert request %s: %w", req.ID, domain.ErrConcurrencyConflict)
	}

	req.Version = 1
	req.Lines = cloneLines(req.Lines)
	t.requests[req.ID] = req
	return nil
}

func (t *memTx) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	req, ok := t.lookupRequest(id)
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}
	req.Lines = cloneLines(req.Lines)
	return &req, nil
}

func (t *memTx) UpdateRequest(ctx context.Context, req domain.Request) error {
	if t.readOnly {
		return errReadOnly
	}
	current, ok := t.lookupRequest(req.ID)
	if !ok {
		return fmt.Errorf("request %s: %w", req.ID, domain.ErrNotFound)
	}
	if current.Version != req.Version {
		return fmt.Errorf("update request %s: %w", req.ID, domain.ErrConcurrencyConflict)
	}

	// lines are frozen at creation
	current.Status = req.Status
	current.ApprovedBy = req.ApprovedBy
	current.RejectedBy = req.RejectedBy
	current.FulfilledBy = req.FulfilledBy
	current.UpdatedAt = req.UpdatedAt
	current.Version++
	t.requests[req.ID] = current
	return nil
}

func (t *memTx) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.Request, error) {
	seen := make(map[string]bool)
	var out []domain.Request
	collect := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if req, ok := t.lookupRequest(id); ok && filter.Match(req) {
			req.Lines = cloneLines(req.Lines)
			out = append(out, req)
		}
	}
	for id := range t.requests {
		collect(id)
	}
	for id := range t.store.requests {
		collect(id)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneLines(lines []domain.RequestLine) []domain.RequestLine {
	if lines == nil {
		return nil
	}
	out := make([]domain.RequestLine, len(lines))
	copy(out, lines)
	return out
}
