// Package space manages named, isolated quad stores. Each space is one SQLite
// database with its own term dictionary, quad index, query engine and
// lifecycle manager.
package space

import (
	"context"
	"database/sql"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/lifecycle"
	"github.com/teranos/kgraph/store"
)

// Space is an open space and every component built over its database.
type Space struct {
	Name string
	Path string

	DB         *sql.DB
	Terms      *store.TermStore
	Index      *store.QuadIndex
	Querier    *store.Querier
	Manager    *lifecycle.Manager
	Maintainer *lifecycle.Maintainer
	Events     *lifecycle.EventLog
}

// Stats reports term, quad and graph counts.
func (s *Space) Stats(ctx context.Context) (store.Stats, error) {
	return store.ReadStats(ctx, s.DB)
}

// Graphs lists the named graphs holding at least one quad.
func (s *Space) Graphs(ctx context.Context) ([]string, error) {
	return store.GraphNames(ctx, s.DB)
}

func (s *Space) close() error {
	if err := s.DB.Close(); err != nil {
		return errors.Wrapf(err, "close space %s", s.Name)
	}
	return nil
}
