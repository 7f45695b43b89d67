package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

// dbError maps a pgx error onto the domain error taxonomy.
func dbError(action string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", action, models.ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w: %w", action, models.ErrPersistence, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
