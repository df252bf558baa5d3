package db

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/teranos/kgraph/errors"
)

// SQLiteBusyTimeoutMS is how long a connection waits on a locked database.
const SQLiteBusyTimeoutMS = 5000

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// dsn builds the go-sqlite3 connection string. Pragmas go into the DSN so that
// every pooled connection gets them, not only the first one. Transactions
// begin IMMEDIATE so a read-then-write transaction never fails on lock upgrade.
func dsn(path string, busyTimeoutMS int) string {
	if path == MemoryPath {
		return fmt.Sprintf("file::memory:?_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", busyTimeoutMS)
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d&_txlock=immediate",
		path, busyTimeoutMS)
}

// Open opens a SQLite database at the specified path.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	return OpenWithTimeout(path, SQLiteBusyTimeoutMS, logger)
}

// OpenWithTimeout is Open with an explicit busy timeout. Non-positive values
// select SQLiteBusyTimeoutMS.
func OpenWithTimeout(path string, busyTimeoutMS int, logger *zap.SugaredLogger) (*sql.DB, error) {
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = SQLiteBusyTimeoutMS
	}
	if logger != nil {
		logger.Debugw("Opening database", "path", path, "busy_timeout_ms", busyTimeoutMS)
	}
	db, err := sql.Open(DriverName, dsn(path, busyTimeoutMS))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Each connection to :memory: is its own database
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WithKind(errors.Wrapf(err, "failed to connect to database %s", path), errors.Unavailable)
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"path", path,
			"wal_mode", path != MemoryPath,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens the database and applies all pending migrations.
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	return OpenWithMigrationsTimeout(path, SQLiteBusyTimeoutMS, logger)
}

// OpenWithMigrationsTimeout is OpenWithMigrations with an explicit busy
// timeout.
func OpenWithMigrationsTimeout(path string, busyTimeoutMS int, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := OpenWithTimeout(path, busyTimeoutMS, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to migrate database %s", path)
	}
	return db, nil
}
