package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("not found")

// Ledger is the order store the checkout and webhook flows work against.
//
// The Mark*/Reduce* methods are conditional updates: they report whether the
// transition was applied, so concurrent callers racing on the same order see
// exactly one winner. A Mark* note is written together with its transition
// and never without it.
type Ledger interface {
	OrderGetByID(ctx context.Context, orderID int64) (*models.Order, error)
	OrderSetSession(ctx context.Context, orderID int64, sessionID string) error
	// OrderMarkPaid moves a not-yet-paid order to paid.
	OrderMarkPaid(ctx context.Context, orderID int64, transactionID, note string) (bool, error)
	// OrderMarkFailed moves a pending order to failed.
	OrderMarkFailed(ctx context.Context, orderID int64, note string) (bool, error)
	// OrderReduceStockOnce sets the stock-reduced flag if absent and, only
	// then, decrements stock for the order's items.
	OrderReduceStockOnce(ctx context.Context, orderID int64) (bool, error)
}

type Store struct {
	conn   *pgxpool.Pool
	logger *zap.SugaredLogger
}

func New(ctx context.Context, databaseURL string, logger *zap.SugaredLogger) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.Connect: %w", err)
	}
	return &Store{conn: pool, logger: logger}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("conn.Exec(schema): %w", err)
	}
	s.logger.Info("Schema applied")
	return nil
}

func (s *Store) Close() {
	s.conn.Close()
}
