package db

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

// DriverName is the go-sqlite3 driver with kgraph's SQL functions attached to
// every connection.
const DriverName = "sqlite3_kgraph"

// FoldFunc is the SQL name of Fold.
const FoldFunc = "kg_fold"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(FoldFunc, Fold, true)
		},
	})
}

// Fold applies Unicode case folding to s. Free-text matching compares folded
// forms on both sides.
func Fold(s string) string {
	return cases.Fold().String(s)
}
