package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
)

// HistoryStore persists page-builder undo/redo buffers, one row per
// snapshot, plus the cursor and dirty flag per page. Rows of a page have
// contiguous seq numbers and cursor_pos holds the seq of the current one.
type HistoryStore struct {
	db         *DB
	maxEntries int
}

// NewHistoryStore keeps at most maxEntries snapshots per page; the oldest
// are dropped first. maxEntries <= 0 disables the cap.
func NewHistoryStore(db *DB, maxEntries int) *HistoryStore {
	return &HistoryStore{db: db, maxEntries: maxEntries}
}

// LoadHistory returns the saved buffer for a page, or nil when the page
// has no history yet.
func (s *HistoryStore) LoadHistory(ctx context.Context, pageID string) (*domain.HistoryState, error) {
	rows, err := s.db.query(ctx,
		`SELECT seq, snapshot_json FROM page_history WHERE page_id = ? ORDER BY seq ASC`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var (
		entries []domain.PageContent
		seqs    []int
	)
	for rows.Next() {
		var (
			seq int
			raw string
		)
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		var c domain.PageContent
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, c)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	state := &domain.HistoryState{Entries: entries, Cursor: len(entries) - 1}
	var cursorSeq int
	err = s.db.queryRow(ctx,
		`SELECT cursor_pos, dirty FROM page_history_state WHERE page_id = ?`, pageID,
	).Scan(&cursorSeq, &state.Dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return state, nil
	case err != nil:
		return nil, fmt.Errorf("load history cursor: %w", err)
	}
	state.Cursor = 0
	for i, seq := range seqs {
		if seq <= cursorSeq {
			state.Cursor = i
		}
	}
	return state, nil
}

// SaveHistory replaces the stored buffer of a page with state.
func (s *HistoryStore) SaveHistory(ctx context.Context, pageID string, state domain.HistoryState) error {
	entries, cursor := state.Entries, state.Cursor
	if s.maxEntries > 0 && len(entries) > s.maxEntries {
		drop := len(entries) - s.maxEntries
		entries = entries[drop:]
		cursor -= drop
	}
	if cursor < 0 {
		cursor = 0
	}

	d := s.db.dialect
	now := time.Now().UTC()
	return s.db.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, d.Rebind(`DELETE FROM page_history WHERE page_id = ?`), pageID); err != nil {
			return fmt.Errorf("clear history entries: %w", err)
		}
		insert := d.Rebind(`INSERT INTO page_history (page_id, seq, snapshot_json, created_at) VALUES (?, ?, ?, ?)`)
		for i, c := range entries {
			raw, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("encode history entry: %w", err)
			}
			if _, err := tx.ExecContext(ctx, insert, pageID, i, string(raw), now); err != nil {
				return fmt.Errorf("insert history entry: %w", err)
			}
		}
		return s.setCursor(ctx, tx, pageID, cursor, state.Dirty)
	})
}

// RecordHistory appends one entry after the cursor. Redo entries are
// dropped and the buffer is trimmed to maxEntries from the front.
func (s *HistoryStore) RecordHistory(ctx context.Context, pageID string, entry domain.PageContent, dirty bool) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	d := s.db.dialect
	return s.db.tx(ctx, func(tx *sql.Tx) error {
		cursor, err := s.cursor(ctx, tx, pageID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			d.Rebind(`DELETE FROM page_history WHERE page_id = ? AND seq > ?`), pageID, cursor,
		); err != nil {
			return fmt.Errorf("drop redo entries: %w", err)
		}
		next := cursor + 1
		if _, err := tx.ExecContext(ctx,
			d.Rebind(`INSERT INTO page_history (page_id, seq, snapshot_json, created_at) VALUES (?, ?, ?, ?)`),
			pageID, next, string(raw), time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
		if s.maxEntries > 0 {
			if _, err := tx.ExecContext(ctx,
				d.Rebind(`DELETE FROM page_history WHERE page_id = ? AND seq <= ?`), pageID, next-s.maxEntries,
			); err != nil {
				return fmt.Errorf("trim history: %w", err)
			}
		}
		return s.setCursor(ctx, tx, pageID, next, dirty)
	})
}

// MoveHistoryCursor moves the cursor of a page delta entries, clamped to
// the stored buffer. It does nothing when the page has no history.
func (s *HistoryStore) MoveHistoryCursor(ctx context.Context, pageID string, delta int, dirty bool) error {
	d := s.db.dialect
	return s.db.tx(ctx, func(tx *sql.Tx) error {
		var lo, hi sql.NullInt64
		err := tx.QueryRowContext(ctx,
			d.Rebind(`SELECT MIN(seq), MAX(seq) FROM page_history WHERE page_id = ?`), pageID,
		).Scan(&lo, &hi)
		if err != nil {
			return fmt.Errorf("load history bounds: %w", err)
		}
		if !lo.Valid {
			return nil
		}
		cursor, err := s.cursor(ctx, tx, pageID)
		if err != nil {
			return err
		}
		next := min(max(cursor+delta, int(lo.Int64)), int(hi.Int64))
		return s.setCursor(ctx, tx, pageID, next, dirty)
	})
}

// cursor returns the seq of the current entry; without a state row the
// newest entry is current.
func (s *HistoryStore) cursor(ctx context.Context, tx *sql.Tx, pageID string) (int, error) {
	d := s.db.dialect
	var cursor int
	err := tx.QueryRowContext(ctx,
		d.Rebind(`SELECT cursor_pos FROM page_history_state WHERE page_id = ?`), pageID,
	).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowContext(ctx,
			d.Rebind(`SELECT COALESCE(MAX(seq), -1) FROM page_history WHERE page_id = ?`), pageID,
		).Scan(&cursor)
	}
	if err != nil {
		return 0, fmt.Errorf("load history cursor: %w", err)
	}
	return cursor, nil
}

func (s *HistoryStore) setCursor(ctx context.Context, tx *sql.Tx, pageID string, cursor int, dirty bool) error {
	d := s.db.dialect
	_, err := tx.ExecContext(ctx,
		d.Rebind(`INSERT INTO page_history_state (page_id, cursor_pos, dirty) VALUES (?, ?, ?)`+
			d.Upsert([]string{"page_id"}, []string{"cursor_pos", "dirty"})),
		pageID, cursor, dirty,
	)
	if err != nil {
		return fmt.Errorf("update history cursor: %w", err)
	}
	return nil
}

// ClearHistory removes all history data for a page.
func (s *HistoryStore) ClearHistory(ctx context.Context, pageID string) error {
	return s.db.tx(ctx, func(tx *sql.Tx) error {
		d := s.db.dialect
		if _, err := tx.ExecContext(ctx, d.Rebind(`DELETE FROM page_history_state WHERE page_id = ?`), pageID); err != nil {
			return fmt.Errorf("clear history cursor: %w", err)
		}
		if _, err := tx.ExecContext(ctx, d.Rebind(`DELETE FROM page_history WHERE page_id = ?`), pageID); err != nil {
			return fmt.Errorf("clear history entries: %w", err)
		}
		return nil
	})
}
