// Package store is the term-interned quad store: a TermStore mapping RDF terms
// to surrogate keys, a QuadIndex over key quads, and a Querier translating
// filter requests into index scans.
package store

import (
	"context"
	"database/sql"
	"strings"
)

// Key is the surrogate key of an interned term. Keys start at 1; the zero Key
// is a wildcard in a Pattern.
type Key int64

// Quad is a statement at key level.
type Quad struct {
	Subject   Key
	Predicate Key
	Object    Key
	Graph     Key
}

// Pattern selects quads. Zero positions match anything.
type Pattern struct {
	Subject   Key
	Predicate Key
	Object    Key
	Graph     Key
}

// maxInParams bounds the number of placeholders in one IN (...) list.
const maxInParams = 500

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// chunkKeys splits keys into slices of at most size elements.
func chunkKeys(keys []Key, size int) [][]Key {
	var chunks [][]Key
	for len(keys) > size {
		chunks = append(chunks, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}
