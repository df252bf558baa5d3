package store

import (
	"context"
	"database/sql"

	"github.com/teranos/kgraph/db"
)

// Stats summarizes a store.
type Stats struct {
	Terms  int `json:"terms"`
	Quads  int `json:"quads"`
	Graphs int `json:"graphs"`
}

// ReadStats counts terms, quads and distinct graphs.
func ReadStats(ctx context.Context, conn *sql.DB) (Stats, error) {
	var st Stats
	for _, c := range []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM terms", &st.Terms},
		{"SELECT COUNT(*) FROM quads", &st.Quads},
		{"SELECT COUNT(DISTINCT graph_id) FROM quads", &st.Graphs},
	} {
		if err := conn.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return Stats{}, db.Classify(err, "read stats")
		}
	}
	return st, nil
}

// GraphNames lists the distinct graphs holding at least one quad.
func GraphNames(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT t.lexical FROM terms t WHERE t.id IN (SELECT DISTINCT graph_id FROM quads) ORDER BY t.lexical`)
	if err != nil {
		return nil, db.Classify(err, "list graphs")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, db.Classify(err, "scan graph")
		}
		names = append(names, name)
	}
	return names, db.Classify(rows.Err(), "iterate graphs")
}
