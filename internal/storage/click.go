package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// ClickStore implements domain.ClickStore on SQL. Clicks are appended
// raw and periodically folded into products.click_count.
type ClickStore struct {
	db *DB
}

func NewClickStore(db *DB) *ClickStore {
	return &ClickStore{db: db}
}

func (s *ClickStore) RecordClick(ctx context.Context, c *domain.Click) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.exec(ctx,
		`INSERT INTO clicks (id, product_id, referrer, user_agent, rolled_up, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProductID, c.Referrer, c.UserAgent, c.RolledUp, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

func (s *ClickStore) ClickStats(ctx context.Context, productID string) (*domain.ClickStats, error) {
	st := &domain.ClickStats{ProductID: productID}
	var rolled int64
	err := s.db.queryRow(ctx, `SELECT click_count FROM products WHERE id = ?`, productID).Scan(&rolled)
	if err != nil {
		return nil, notFound(err, "product", productID)
	}
	err = s.db.queryRow(ctx,
		`SELECT COUNT(*) FROM clicks WHERE product_id = ? AND rolled_up = ?`, productID, false,
	).Scan(&st.Pending)
	if err != nil {
		return nil, fmt.Errorf("count pending clicks: %w", err)
	}
	st.Total = rolled + st.Pending
	return st, nil
}

// RollupClicks folds every pending click recorded up to now into its
// product's click_count. Clicks arriving mid-rollup wait for the next run.
func (s *ClickStore) RollupClicks(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC()
	d := s.db.dialect
	var total int64
	err := s.db.tx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, d.Rebind(
			`SELECT product_id, COUNT(*) FROM clicks WHERE rolled_up = ? AND created_at <= ? GROUP BY product_id`),
			false, cutoff,
		)
		if err != nil {
			return fmt.Errorf("select pending clicks: %w", err)
		}
		counts := map[string]int64{}
		for rows.Next() {
			var id string
			var n int64
			if err := rows.Scan(&id, &n); err != nil {
				rows.Close()
				return fmt.Errorf("scan pending clicks: %w", err)
			}
			counts[id] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		update := d.Rebind(`UPDATE products SET click_count = click_count + ? WHERE id = ?`)
		for id, n := range counts {
			if _, err := tx.ExecContext(ctx, update, n, id); err != nil {
				return fmt.Errorf("fold clicks into %s: %w", id, err)
			}
			total += n
		}
		_, err = tx.ExecContext(ctx, d.Rebind(
			`UPDATE clicks SET rolled_up = ? WHERE rolled_up = ? AND created_at <= ?`),
			true, false, cutoff,
		)
		if err != nil {
			return fmt.Errorf("mark clicks rolled up: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *ClickStore) PruneClicks(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.exec(ctx,
		`DELETE FROM clicks WHERE rolled_up = ? AND created_at < ?`, true, before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune clicks: %w", err)
	}
	return res.RowsAffected()
}
