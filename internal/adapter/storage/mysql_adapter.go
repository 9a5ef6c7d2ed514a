package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/stock-ledger/internal/core/domain"
	"github.com/rl1809/stock-ledger/internal/port"
)

const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrLockTimeout    = 1205
	mysqlErrDeadlock       = 1213
)

type MySQLAdapter struct {
	db *sql.DB
}

var _ port.Store = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", translate(err))
	}
	return nil
}

func (m *MySQLAdapter) View(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx, readOnly: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// translate maps lock and uniqueness failures onto the retryable conflict.
func translate(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrLockTimeout, mysqlErrDeadlock:
			return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, myErr.Message)
		}
	}
	return err
}

type mysqlTx struct {
	tx       *sql.Tx
	readOnly bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = `id, name, quantity, batch_no, expiry_date, low_stock_threshold,
	location, unit, category, created_by, version, created_at, updated_at`

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var expiry sql.NullTime
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.BatchNo, &expiry,
		&item.LowStockThreshold, &item.Location, &item.Unit, &item.Category,
		&item.CreatedBy, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		t := expiry.Time
		item.ExpiryDate = &t
	}
	return &item, nil
}

func (t *mysqlTx) lockClause() string {
	if t.readOnly {
		return ""
	}
	return " FOR UPDATE"
}

func (t *mysqlTx) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`+t.lockClause(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", translate(err))
	}
	return item, nil
}

func (t *mysqlTx) FindItemByKey(ctx context.Context, key domain.ItemKey) (*domain.Item, error) {
	item, err := scanItem(t.tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE name = ? AND batch_no = ? AND location = ?`+t.lockClause(),
		key.Name, key.BatchNo, key.Location))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item by key: %w", translate(err))
	}
	return item, nil
}

func (t *mysqlTx) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	var where []string
	var args []any
	if filter.Location != "" {
		where = append(where, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(batch_no) LIKE ? OR LOWER(category) LIKE ?)")
		args = append(args, like, like, like)
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, location, id"

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (t *mysqlTx) InsertItem(ctx context.Context, item domain.Item) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO items (id, name, quantity, batch_no, expiry_date, low_stock_threshold,
			location, unit, category, created_by, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.BatchNo, nullTime(item.ExpiryDate),
		item.LowStockThreshold, item.Location, item.Unit, item.Category, item.CreatedBy,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", translate(err))
	}
	return nil
}

func (t *mysqlTx) UpdateItem(ctx context.Context, item domain.Item) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE items
		SET name = ?, quantity = ?, low_stock_threshold = ?, location = ?, unit = ?,
			category = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		item.Name, item.Quantity, item.LowStockThreshold, item.Location, item.Unit,
		item.Category, time.Now().UTC(), item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", translate(err))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, domain.ErrConcurrencyConflict)
	}
	return nil
}

func (t *mysqlTx) DeleteItem(ctx context.Context, item domain.Item) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND version = ?`, item.ID, item.Version)
	if err != nil {
		return fmt.Errorf("delete item: %w", translate(err))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("delete item %s: %w", item.ID, domain.ErrConcurrencyConflict)
	}
	return nil
}

func (t *mysqlTx) AppendLog(ctx context.Context, e domain.LogEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO adjustment_logs (id, item_id, destination_item_id, delta, reason, type,
			actor_id, subject_id, request_id, from_location, to_location, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ItemID, e.DestinationItemID, e.Delta, e.Reason, e.Type.String(), e.ActorID, e.SubjectID,
		e.RequestID, e.FromLocation, e.ToLocation, e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", translate(err))
	}
	return nil
}

func (t *mysqlTx) ListLogs(ctx context.Context, filter domain.LogFilter) ([]domain.LogEntry, error) {
	var where []string
	var args []any
	if filter.ItemID != "" {
		where = append(where, "(item_id = ? OR destination_item_id = ?)")
		args = append(args, filter.ItemID, filter.ItemID)
	}
	if filter.Type != 0 {
		where = append(where, "type = ?")
		args = append(args, filter.Type.String())
	}

	query := `SELECT seq, id, item_id, destination_item_id, delta, reason, type, actor_id,
		subject_id, request_id, from_location, to_location, created_by, created_at
		FROM adjustment_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0)
	for rows.Next() {
		var e domain.LogEntry
		var typ string
		if err := rows.Scan(&e.Seq, &e.ID, &e.ItemID, &e.DestinationItemID, &e.Delta, &e.Reason,
			&typ, &e.ActorID, &e.SubjectID, &e.RequestID, &e.FromLocation, &e.ToLocation, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if e.Type, err = domain.ParseAdjustmentType(typ); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (t *mysqlTx) InsertRequest(ctx context.Context, req domain.Request) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory_requests (id, requesting_unit, requested_by, status, notes,
			version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		req.ID, req.RequestingUnit, req.RequestedBy, req.Status.String(), req.Notes,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", translate(err))
	}

	for i, line := range req.Lines {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO request_lines (request_id, line_no, item_id, quantity, unit)
			VALUES (?, ?, ?, ?, ?)`,
			req.ID, i+1, line.ItemID, line.QuantityRequested, line.UnitOfMeasure,
		)
		if err != nil {
			return fmt.Errorf("insert request line: %w", translate(err))
		}
	}
	return nil
}

const requestColumns = `id, requesting_unit, requested_by, status, approved_by, rejected_by,
	fulfilled_by, notes, version, created_at, updated_at`

func scanRequest(row rowScanner) (*domain.Request, error) {
	var req domain.Request
	var status string
	err := row.Scan(&req.ID, &req.RequestingUnit, &req.RequestedBy, &status, &req.ApprovedBy,
		&req.RejectedBy, &req.FulfilledBy, &req.Notes, &req.Version, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if req.Status, err = domain.ParseRequestStatus(status); err != nil {
		return nil, err
	}
	return &req, nil
}

func (t *mysqlTx) loadLines(ctx context.Context, req *domain.Request) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT item_id, quantity, unit FROM request_lines
		WHERE request_id = ? ORDER BY line_no`, req.ID)
	if err != nil {
		return fmt.Errorf("query request lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.RequestLine
		if err := rows.Scan(&line.ItemID, &line.QuantityRequested, &line.UnitOfMeasure); err != nil {
			return fmt.Errorf("scan request line: %w", err)
		}
		req.Lines = append(req.Lines, line)
	}
	return rows.Err()
}

func (t *mysqlTx) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	req, err := scanRequest(t.tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM inventory_requests WHERE id = ?`+t.lockClause(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query request: %w", translate(err))
	}

	if err := t.loadLines(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (t *mysqlTx) UpdateRequest(ctx context.Context, req domain.Request) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory_requests
		SET status = ?, approved_by = ?, rejected_by = ?, fulfilled_by = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		req.Status.String(), req.ApprovedBy, req.RejectedBy, req.FulfilledBy,
		req.UpdatedAt, req.ID, req.Version,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", translate(err))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update request %s: %w", req.ID, domain.ErrConcurrencyConflict)
	}
	return nil
}

func (t *mysqlTx) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.Request, error) {
	var where []string
	var args []any
	if filter.Status != 0 {
		where = append(where, "status = ?")
		args = append(args, filter.Status.String())
	}
	if filter.RequestingUnit != "" {
		where = append(where, "requesting_unit = ?")
		args = append(args, filter.RequestingUnit)
	}

	query := `SELECT ` + requestColumns + ` FROM inventory_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	var reqs []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	// lines are read after the cursor is closed; one connection per tx
	for i := range reqs {
		if err := t.loadLines(ctx, &reqs[i]); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
