package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/kgraph/errors"
)

func TestOpen(t *testing.T) {
	t.Run("opens database successfully", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		var journalMode string
		require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
		assert.Equal(t, "wal", journalMode)

		var foreignKeys int
		require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
		assert.Equal(t, 1, foreignKeys)

		var busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, SQLiteBusyTimeoutMS, busyTimeout)
	})

	t.Run("pragmas apply to every pooled connection", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "pool.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		// Hold one connection so the next query must use another
		held, err := db.Begin()
		require.NoError(t, err)
		defer held.Rollback()

		var foreignKeys int
		require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
		assert.Equal(t, 1, foreignKeys)
	})

	t.Run("custom busy timeout", func(t *testing.T) {
		db, err := OpenWithTimeout(filepath.Join(t.TempDir(), "timeout.db"), 250, nil)
		require.NoError(t, err)
		defer db.Close()

		var busyTimeout int
		require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
		assert.Equal(t, 250, busyTimeout)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		db, err := Open("/invalid/nonexistent/path/db.sqlite", nil)
		if err == nil && db != nil {
			err = db.Ping()
			db.Close()
		}
		require.Error(t, err)
		assert.Equal(t, errors.Unavailable, errors.KindOf(err))
		assert.NotNil(t, errors.GetReportableStackTrace(err), "error should have stack trace from errors.Wrap")
	})

	t.Run("creates database file if it doesn't exist", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "new.db")

		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("in-memory database", func(t *testing.T) {
		db, err := Open(MemoryPath, nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec("CREATE TABLE t (x INTEGER)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO t VALUES (1)")
		require.NoError(t, err)

		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("closed database is classified unavailable", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		db.Close()

		_, err = db.Exec("PRAGMA journal_mode")
		require.Error(t, err)
		assert.True(t, IsDatabaseClosed(err))
		assert.Equal(t, errors.Unavailable, errors.KindOf(Classify(err, "exec")))
	})
}

func TestOpen_WithLogger(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil, "x"))

	plain := Classify(errors.New("syntax error"), "query")
	assert.Equal(t, errors.Unknown, errors.KindOf(plain))
	assert.Contains(t, plain.Error(), "query: syntax error")

	locked := Classify(errors.New("database is locked"), "insert")
	assert.Equal(t, errors.Unavailable, errors.KindOf(locked))

	kept := Classify(errors.NotFoundf("term 7"), "resolve")
	assert.Equal(t, errors.NotFound, errors.KindOf(kept))

	wrapped := Classify(errors.Wrap(ErrDatabaseClosed, "scan"), "query")
	assert.Equal(t, errors.Unavailable, errors.KindOf(wrapped))
}

func TestFoldFunction(t *testing.T) {
	db, err := Open(MemoryPath, nil)
	require.NoError(t, err)
	defer db.Close()

	tests := []struct {
		in   string
		want string
	}{
		{"Acme", "acme"},
		{"ZÜRICH Ärzte", "zürich ärzte"},
		{"МОСКВА", "москва"},
		{"50%_x", "50%_x"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, db.QueryRow("SELECT "+FoldFunc+"(?)", tt.in).Scan(&got))
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, Fold(tt.in))
	}
}
