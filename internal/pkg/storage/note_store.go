package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

const orderInsertNote = `
INSERT INTO order_notes (id, order_id, note) VALUES ($1, $2, $3);
`

func insertNote(ctx context.Context, tx pgx.Tx, orderID int64, note string) error {
	_, err := tx.Exec(ctx, orderInsertNote, uuid.New(), orderID, note)
	if err != nil {
		return fmt.Errorf("tx.Exec(note): %w", err)
	}
	return nil
}
