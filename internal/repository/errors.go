package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Storage-agnostic sentinels returned by every adapter in this package.
var (
	ErrNotFound     = errors.New("repository: record not found")
	ErrStaleVersion = errors.New("repository: record was modified concurrently")
	ErrDuplicate    = errors.New("repository: duplicate record")
)

const pqUniqueViolation = "23505"

// translatePostgres maps driver errors onto the package sentinels.
func translatePostgres(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
