package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const errDuplicateEntry = 1062

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_key  VARCHAR(64) NOT NULL PRIMARY KEY,
		value      MEDIUMBLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id            CHAR(36) NOT NULL PRIMARY KEY,
		request_id    VARCHAR(128) NOT NULL DEFAULT '',
		order_lines   JSON NOT NULL,
		subtotal      DECIMAL(20,4) NOT NULL,
		discount      DECIMAL(20,4) NOT NULL,
		total         DECIMAL(20,4) NOT NULL,
		balance_after DECIMAL(20,4) NOT NULL,
		coupon_code   VARCHAR(32) NOT NULL DEFAULT '',
		status        VARCHAR(16) NOT NULL,
		created_at    DATETIME(6) NOT NULL
	)`,
}

// MySQLAdapter serves both the ledger key-value store and the order
// archive.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM ledger_entries WHERE entry_key = ?`, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger entry: %w", err)
	}
	return value, nil
}

func (m *MySQLAdapter) Put(ctx context.Context, entries ...port.Entry) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (entry_key, value) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value)`,
			e.Key, e.Value,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// CreateOrder inserts the order. Re-archiving an order that already exists
// is not an error.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode lines: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO orders (id, request_id, order_lines, subtotal, discount, total, balance_after, coupon_code, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.RequestID, string(lines), order.Subtotal, order.Discount, order.Total,
		order.BalanceAfter, order.CouponCode, order.Status, order.CreatedAt,
	)

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var (
		order domain.Order
		lines []byte
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, request_id, order_lines, subtotal, discount, total, balance_after, coupon_code, status, created_at
		FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &order.RequestID, &lines, &order.Subtotal, &order.Discount, &order.Total,
		&order.BalanceAfter, &order.CouponCode, &order.Status, &order.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if err := json.Unmarshal(lines, &order.Lines); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}
	return &order, nil
}
