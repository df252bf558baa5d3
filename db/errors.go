package db

import (
	"strings"

	"github.com/teranos/kgraph/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// This handles both:
// - Wrapped ErrDatabaseClosed errors from this package
// - Raw SQLite/sql driver errors that contain "database is closed" in their message
//
// The driver returns its own error values, which cannot be marked at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// Classify marks driver errors that mean the store is unreachable as
// Unavailable and wraps everything else with msg. Errors that already carry a
// kind keep it.
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) != errors.Unknown {
		return errors.Wrap(err, msg)
	}
	if IsDatabaseClosed(err) || isUnreachable(err) {
		return errors.WithKind(errors.Wrap(err, msg), errors.Unavailable)
	}
	return errors.Wrap(err, msg)
}

func isUnreachable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to open database file") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "disk I/O error")
}
