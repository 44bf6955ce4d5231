package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
)

const orderGetByID = `
SELECT id, amount::text, currency, status, stock_reduced, session_id, transaction_id
FROM orders
WHERE id = $1;
`

const orderSetSession = `
UPDATE orders
SET session_id = $2,
    status = CASE WHEN status = 'failed' THEN 'pending' ELSE status END,
    updated_at = now()
WHERE id = $1;
`

const orderMarkPaid = `
UPDATE orders
SET status = 'paid', transaction_id = $2, updated_at = now()
WHERE id = $1 AND status <> 'paid';
`

const orderMarkFailed = `
UPDATE orders
SET status = 'failed', updated_at = now()
WHERE id = $1 AND status = 'pending';
`

const orderSetStockReduced = `
UPDATE orders
SET stock_reduced = TRUE, updated_at = now()
WHERE id = $1 AND stock_reduced = FALSE;
`

const orderReduceStock = `
UPDATE products p
SET stock = p.stock - i.quantity
FROM order_items i
WHERE i.order_id = $1 AND p.id = i.product_id;
`

func (s *Store) OrderGetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	o := &models.Order{}
	var amount string
	err := s.conn.QueryRow(ctx, orderGetByID, orderID).Scan(
		&o.ID,
		&amount,
		&o.Currency,
		&o.Status,
		&o.StockReduced,
		&o.SessionID,
		&o.TransactionID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rows.Scan: %w", err)
	}
	o.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decimal.NewFromString(%q): %w", amount, err)
	}
	return o, nil
}

func (s *Store) OrderSetSession(ctx context.Context, orderID int64, sessionID string) error {
	result, err := s.conn.Exec(ctx, orderSetSession, orderID, sessionID)
	if err != nil {
		return fmt.Errorf("conn.Exec: %w", err)
	}
	if result.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) OrderMarkPaid(ctx context.Context, orderID int64, transactionID, note string) (bool, error) {
	return s.transition(ctx, orderID, note, orderMarkPaid, orderID, transactionID)
}

func (s *Store) OrderMarkFailed(ctx context.Context, orderID int64, note string) (bool, error) {
	return s.transition(ctx, orderID, note, orderMarkFailed, orderID)
}

// transition runs a conditional status update and, only when it applied,
// inserts the note in the same transaction.
func (s *Store) transition(ctx context.Context, orderID int64, note, query string, args ...interface{}) (bool, error) {
	applied := false
	err := s.conn.BeginFunc(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("tx.Exec(status): %w", err)
		}
		if result.RowsAffected() != 1 {
			return nil
		}
		if err = insertNote(ctx, tx, orderID, note); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("conn.BeginFunc: %w", err)
	}
	return applied, nil
}

// OrderReduceStockOnce flips the flag and decrements stock in one
// transaction, so the decrement can never run twice for the same order.
func (s *Store) OrderReduceStockOnce(ctx context.Context, orderID int64) (bool, error) {
	reduced := false
	err := s.conn.BeginFunc(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, orderSetStockReduced, orderID)
		if err != nil {
			return fmt.Errorf("tx.Exec(flag): %w", err)
		}
		if result.RowsAffected() != 1 {
			return nil
		}
		if _, err = tx.Exec(ctx, orderReduceStock, orderID); err != nil {
			return fmt.Errorf("tx.Exec(stock): %w", err)
		}
		reduced = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("conn.BeginFunc: %w", err)
	}
	return reduced, nil
}
