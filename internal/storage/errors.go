package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlotConflict is returned when the appointments exclusion constraint
// rejects an insert or status change: somebody else holds the interval.
var ErrSlotConflict = errors.New("time slot already booked")

// ErrStatusChanged is returned when a status transition loses a race: the
// appointment no longer holds the status the transition started from.
var ErrStatusChanged = errors.New("appointment status changed concurrently")

// errNoRows lets update paths report "nothing matched" through the same
// predicate callers already use for missing rows.
var errNoRows = pgx.ErrNoRows

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
