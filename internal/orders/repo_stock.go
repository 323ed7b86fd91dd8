package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// DecrementStock reduces product stock by the order's quantities once payment
// is confirmed, and reports the new levels for realtime fan-out. All lines
// commit together; stock never goes below zero.
func (r *Repo) DecrementStock(ctx context.Context, orderID string) ([]StockUpdatedPayload, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT product_id, qty FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	type line struct {
		pid string
		qty int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.pid, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]StockUpdatedPayload, 0, len(lines))
	for _, l := range lines {
		var stock int
		err := tx.QueryRow(ctx, `
			UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = now()
			WHERE id = $1 RETURNING stock`, l.pid, l.qty).Scan(&stock)
		if err != nil {
			return nil, err
		}
		out = append(out, StockUpdatedPayload{ProductID: l.pid, Stock: stock})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
