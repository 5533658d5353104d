package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

// notFound maps sql.ErrNoRows onto domain.ErrNotFound.
func notFound(err error, what, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, key, domain.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// affected reports domain.ErrNotFound when a write touched no rows.
func affected(res sql.Result, what, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, key, domain.ErrNotFound)
	}
	return nil
}
