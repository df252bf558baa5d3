package store

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// Default paging limits used when a Querier is built with non-positive values.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 10000
)

// Filter is the listing vocabulary. Empty fields do not constrain.
//
// Subject and Predicate match exactly; a subject written "_:id" is a blank
// node. Object is matched as an IRI when it parses as an absolute IRI and
// otherwise against the lexical form of any literal, whatever its datatype or
// language. The IRI test is syntactic only: a literal such as "urn:x" is
// treated as an IRI. Set ObjectTerm to match one exact term instead.
//
// Text is split on whitespace; every keyword must occur, ignoring case under
// Unicode case folding, in the subject, predicate or object lexical form of a
// statement.
type Filter struct {
	Graph      string    `json:"graph,omitempty" yaml:"graph,omitempty"`
	Subject    string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Predicate  string    `json:"predicate,omitempty" yaml:"predicate,omitempty"`
	Object     string    `json:"object,omitempty" yaml:"object,omitempty"`
	ObjectTerm *rdf.Term `json:"object_term,omitempty" yaml:"object_term,omitempty"`
	Text       string    `json:"text,omitempty" yaml:"text,omitempty"`
	Limit      int       `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset     int       `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// onlyPaging reports whether f constrains nothing but graph and pagination.
func (f Filter) onlyPaging() bool {
	return f.Subject == "" && f.Predicate == "" && f.Object == "" && f.ObjectTerm == nil &&
		strings.TrimSpace(f.Text) == ""
}

// Page is one page of a filtered listing. Total counts all matches.
type Page struct {
	Statements []rdf.Statement `json:"statements"`
	Total      int             `json:"total"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// QueryPath names the plan a query ran with.
type QueryPath string

const (
	PathFast     QueryPath = "fast"
	PathFiltered QueryPath = "filtered"
	PathEmpty    QueryPath = "empty"
)

// Querier translates filters into index scans.
type Querier struct {
	index        *QuadIndex
	defaultLimit int
	maxLimit     int
	logger       *zap.SugaredLogger

	// OnQuery, when set, is called after every successful query.
	OnQuery func(path QueryPath)
}

// NewQuerier creates a querier. Non-positive limits select the defaults.
func NewQuerier(index *QuadIndex, defaultLimit, maxLimit int, logger *zap.SugaredLogger) *Querier {
	if maxLimit <= 0 {
		maxLimit = MaxQueryLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultQueryLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Querier{index: index, defaultLimit: defaultLimit, maxLimit: maxLimit, logger: logger.Named("query")}
}

// Query returns one page of statements matching f ordered by subject,
// predicate, object and graph key. Terms the store has never seen match
// nothing, so such filters return an empty page without scanning.
func (q *Querier) Query(ctx context.Context, f Filter) (*Page, error) {
	if f.Limit < 0 {
		return nil, errors.InvalidStatementf("negative limit %d", f.Limit)
	}
	if f.Offset < 0 {
		return nil, errors.InvalidStatementf("negative offset %d", f.Offset)
	}
	limit := f.Limit
	if limit == 0 {
		limit = q.defaultLimit
	}
	if limit > q.maxLimit {
		limit = q.maxLimit
	}
	page := &Page{Statements: []rdf.Statement{}, Limit: limit, Offset: f.Offset}

	qb := &queryBuilder{}
	ok, err := q.exactClauses(ctx, f, qb)
	if err != nil {
		return nil, err
	}
	if !ok {
		q.done(PathEmpty)
		return page, nil
	}

	var quads []Quad
	path := PathFiltered
	if f.onlyPaging() {
		path = PathFast
		quads, page.Total, err = q.fastPath(ctx, qb, limit, f.Offset)
	} else {
		qb.addCondition(keywordsCondition(f.Text))
		quads, page.Total, err = q.filteredPath(ctx, qb, limit, f.Offset)
	}
	if err != nil {
		return nil, err
	}

	stmts, err := q.index.Statements(ctx, quads)
	if err != nil {
		return nil, err
	}
	if stmts != nil {
		page.Statements = stmts
	}

	q.logger.Debugw("Query complete",
		"path", path,
		"graph", f.Graph,
		"returned", len(page.Statements),
		"total", page.Total,
	)
	q.done(path)
	return page, nil
}

func (q *Querier) done(path QueryPath) {
	if q.OnQuery != nil {
		q.OnQuery(path)
	}
}

type exactMatch struct {
	pos  Position
	term rdf.Term
}

// exactClauses adds the key-equality clauses for graph, subject, predicate and
// object. ok is false when one of them names an unknown term.
func (q *Querier) exactClauses(ctx context.Context, f Filter, qb *queryBuilder) (bool, error) {
	if f.Graph != "" {
		k, ok, err := q.lookup(ctx, resourceTerm(f.Graph))
		if err != nil || !ok {
			return false, err
		}
		qb.addClause("q.graph_id = ?", int64(k))
	}

	var exact []exactMatch
	if f.Subject != "" {
		exact = append(exact, exactMatch{PositionSubject, resourceTerm(f.Subject)})
	}
	if f.Predicate != "" {
		exact = append(exact, exactMatch{PositionPredicate, rdf.IRI(f.Predicate)})
	}
	switch {
	case f.ObjectTerm != nil:
		exact = append(exact, exactMatch{PositionObject, *f.ObjectTerm})
	case f.Object != "" && rdf.LooksLikeIRI(f.Object):
		exact = append(exact, exactMatch{PositionObject, rdf.IRI(f.Object)})
	case f.Object != "":
		qb.addCondition(literalLexical{PositionObject, f.Object})
	}

	for _, e := range exact {
		k, ok, err := q.lookup(ctx, e.term)
		if err != nil || !ok {
			return false, err
		}
		qb.addCondition(keyEquals{e.pos, k})
	}
	return true, nil
}

// lookup resolves t to a key. A term that cannot be canonicalized can never
// have been stored, so it is reported as unknown rather than as an error.
func (q *Querier) lookup(ctx context.Context, t rdf.Term) (Key, bool, error) {
	k, ok, err := q.index.terms.Lookup(ctx, t)
	if errors.KindOf(err) == errors.InvalidStatement {
		return 0, false, nil
	}
	return k, ok, err
}

// fastPath lists a graph (or everything) in one pass. The window count rides
// along with the page rows, so no second query is needed unless the page is
// empty.
func (q *Querier) fastPath(ctx context.Context, qb *queryBuilder, limit, offset int) ([]Quad, int, error) {
	query := "SELECT " + quadColumns + ", COUNT(*) OVER () FROM quads q" + qb.where() + quadOrder + " LIMIT ? OFFSET ?"
	args := append(append([]interface{}{}, qb.args...), limit, offset)

	rows, err := q.index.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Classify(err, "list quads")
	}
	defer rows.Close()

	var (
		quads []Quad
		total int
	)
	for rows.Next() {
		var s, p, o, g int64
		if err := rows.Scan(&s, &p, &o, &g, &total); err != nil {
			return nil, 0, errors.Wrap(err, "scan quad")
		}
		quads = append(quads, Quad{Subject: Key(s), Predicate: Key(p), Object: Key(o), Graph: Key(g)})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(err, "iterate quads")
	}

	if len(quads) == 0 && offset > 0 {
		total, err = q.count(ctx, qb)
		if err != nil {
			return nil, 0, err
		}
	}
	return quads, total, nil
}

func (q *Querier) filteredPath(ctx context.Context, qb *queryBuilder, limit, offset int) ([]Quad, int, error) {
	total, err := q.count(ctx, qb)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= total {
		return nil, total, nil
	}

	query := "SELECT " + quadColumns + qb.from() + qb.where() + quadOrder + " LIMIT ? OFFSET ?"
	args := append(append([]interface{}{}, qb.args...), limit, offset)

	rows, err := q.index.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Classify(err, "filter quads")
	}
	defer rows.Close()

	quads, err := scanQuads(rows)
	if err != nil {
		return nil, 0, err
	}
	return quads, total, nil
}

func (q *Querier) count(ctx context.Context, qb *queryBuilder) (int, error) {
	var n int
	err := q.index.db.QueryRowContext(ctx, "SELECT COUNT(*)"+qb.from()+qb.where(), qb.args...).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, db.Classify(err, "count quads")
	}
	return n, nil
}

// resourceTerm reads "_:id" as a blank node and anything else as an IRI.
func resourceTerm(s string) rdf.Term {
	if strings.HasPrefix(s, "_:") {
		return rdf.BlankNode(s)
	}
	return rdf.IRI(s)
}
