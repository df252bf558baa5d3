package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// QuadIndex stores the quad set. Insert and Remove are idempotent and each
// call commits as one transaction.
type QuadIndex struct {
	db     *sql.DB
	terms  *TermStore
	logger *zap.SugaredLogger
}

// NewQuadIndex creates a quad index resolving terms through terms.
func NewQuadIndex(conn *sql.DB, terms *TermStore, logger *zap.SugaredLogger) *QuadIndex {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &QuadIndex{db: conn, terms: terms, logger: logger.Named("index")}
}

// Terms returns the term store the index resolves through.
func (x *QuadIndex) Terms() *TermStore { return x.terms }

const (
	insertQuadSQL = `INSERT INTO quads (subject_id, predicate_id, object_id, graph_id) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`
	deleteQuadSQL = `DELETE FROM quads WHERE subject_id = ? AND predicate_id = ? AND object_id = ? AND graph_id = ?`
	quadColumns   = "q.subject_id, q.predicate_id, q.object_id, q.graph_id"
	quadOrder     = " ORDER BY q.subject_id, q.predicate_id, q.object_id, q.graph_id"
)

// Insert adds quads and returns how many were not already present.
func (x *QuadIndex) Insert(ctx context.Context, quads []Quad) (int, error) {
	return x.execEach(ctx, insertQuadSQL, "insert", quads)
}

// Remove deletes quads and returns how many were present.
func (x *QuadIndex) Remove(ctx context.Context, quads []Quad) (int, error) {
	return x.execEach(ctx, deleteQuadSQL, "remove", quads)
}

func (x *QuadIndex) execEach(ctx context.Context, query, op string, quads []Quad) (int, error) {
	if len(quads) == 0 {
		return 0, nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, db.Classify(err, "begin "+op)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, db.Classify(err, "prepare "+op)
	}
	defer stmt.Close()

	changed := 0
	for _, q := range quads {
		res, err := stmt.ExecContext(ctx, int64(q.Subject), int64(q.Predicate), int64(q.Object), int64(q.Graph))
		if err != nil {
			return 0, db.Classify(err, fmt.Sprintf("%s quad %v", op, q))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "rows affected")
		}
		changed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, db.Classify(err, "commit "+op)
	}
	x.logger.Debugw("Quads "+op, "requested", len(quads), "changed", changed)
	return changed, nil
}

func patternClauses(p Pattern) *queryBuilder {
	qb := &queryBuilder{}
	if p.Subject != 0 {
		qb.addClause("q.subject_id = ?", int64(p.Subject))
	}
	if p.Predicate != 0 {
		qb.addClause("q.predicate_id = ?", int64(p.Predicate))
	}
	if p.Object != 0 {
		qb.addClause("q.object_id = ?", int64(p.Object))
	}
	if p.Graph != 0 {
		qb.addClause("q.graph_id = ?", int64(p.Graph))
	}
	return qb
}

// Scan returns quads matching p ordered by subject, predicate, object and
// graph key. limit <= 0 means no limit.
func (x *QuadIndex) Scan(ctx context.Context, p Pattern, limit, offset int) ([]Quad, error) {
	qb := patternClauses(p)
	query := "SELECT " + quadColumns + " FROM quads q" + qb.where() + quadOrder + " LIMIT ? OFFSET ?"
	args := append(qb.args, sqlLimit(limit), offset)

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err, "scan quads")
	}
	defer rows.Close()
	return scanQuads(rows)
}

// Count returns the number of quads matching p.
func (x *QuadIndex) Count(ctx context.Context, p Pattern) (int, error) {
	qb := patternClauses(p)
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM quads q"+qb.where(), qb.args...).Scan(&n); err != nil {
		return 0, db.Classify(err, "count quads")
	}
	return n, nil
}

// ScanSubjects returns every quad in graph whose subject is one of subjects.
// A zero graph matches all graphs.
func (x *QuadIndex) ScanSubjects(ctx context.Context, graph Key, subjects []Key) ([]Quad, error) {
	var out []Quad
	for _, chunk := range chunkKeys(subjects, maxInParams) {
		qb := &queryBuilder{}
		args := make([]interface{}, len(chunk))
		for i, k := range chunk {
			args[i] = int64(k)
		}
		qb.addClause("q.subject_id IN ("+placeholders(len(chunk))+")", args...)
		if graph != 0 {
			qb.addClause("q.graph_id = ?", int64(graph))
		}

		rows, err := x.db.QueryContext(ctx, "SELECT "+quadColumns+" FROM quads q"+qb.where()+quadOrder, qb.args...)
		if err != nil {
			return nil, db.Classify(err, "scan subjects")
		}
		quads, err := scanQuads(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, quads...)
	}
	if len(subjects) > maxInParams {
		sortQuads(out)
	}
	return out, nil
}

func sortQuads(quads []Quad) {
	sort.Slice(quads, func(i, j int) bool {
		a, b := quads[i], quads[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Graph < b.Graph
	})
}

func scanQuads(rows *sql.Rows) ([]Quad, error) {
	var out []Quad
	for rows.Next() {
		var s, p, o, g int64
		if err := rows.Scan(&s, &p, &o, &g); err != nil {
			return nil, errors.Wrap(err, "scan quad")
		}
		out = append(out, Quad{Subject: Key(s), Predicate: Key(p), Object: Key(o), Graph: Key(g)})
	}
	return out, db.Classify(rows.Err(), "iterate quads")
}

// sqlLimit maps "no limit" to SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// Statements resolves quads to term-level statements, preserving order.
func (x *QuadIndex) Statements(ctx context.Context, quads []Quad) ([]rdf.Statement, error) {
	if len(quads) == 0 {
		return nil, nil
	}
	keys := make([]Key, 0, len(quads)*4)
	for _, q := range quads {
		keys = append(keys, q.Subject, q.Predicate, q.Object, q.Graph)
	}
	terms, err := x.terms.ResolveAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]rdf.Statement, len(quads))
	for i, q := range quads {
		out[i] = rdf.NewStatement(terms[q.Subject], terms[q.Predicate], terms[q.Object], terms[q.Graph])
	}
	return out, nil
}

// InsertStatements interns the terms of stmts and inserts their quads. The
// statements are canonicalized first; any invalid statement fails the call
// with InvalidStatement before anything is written.
func (x *QuadIndex) InsertStatements(ctx context.Context, stmts []rdf.Statement) (int, error) {
	canon, err := rdf.Canonicalize(stmts)
	if err != nil {
		return 0, err
	}
	terms := make([]rdf.Term, 0, len(canon)*4)
	for _, s := range canon {
		terms = append(terms, s.Subject, s.Predicate, s.Object, s.Graph)
	}
	keys, err := x.terms.InternAll(ctx, terms)
	if err != nil {
		return 0, err
	}
	quads := make([]Quad, len(canon))
	for i, s := range canon {
		quads[i] = Quad{
			Subject:   keys[s.Subject.Key()],
			Predicate: keys[s.Predicate.Key()],
			Object:    keys[s.Object.Key()],
			Graph:     keys[s.Graph.Key()],
		}
	}
	return x.Insert(ctx, quads)
}

// RemoveStatements removes the quads of stmts. Statements using a term that
// was never interned cannot be stored and are skipped.
func (x *QuadIndex) RemoveStatements(ctx context.Context, stmts []rdf.Statement) (int, error) {
	canon, err := rdf.Canonicalize(stmts)
	if err != nil {
		return 0, err
	}
	quads := make([]Quad, 0, len(canon))
	for _, s := range canon {
		q, ok, err := x.lookupQuad(ctx, s)
		if err != nil {
			return 0, err
		}
		if ok {
			quads = append(quads, q)
		}
	}
	return x.Remove(ctx, quads)
}

func (x *QuadIndex) lookupQuad(ctx context.Context, s rdf.Statement) (Quad, bool, error) {
	var q Quad
	for _, pos := range []struct {
		term rdf.Term
		dst  *Key
	}{
		{s.Subject, &q.Subject},
		{s.Predicate, &q.Predicate},
		{s.Object, &q.Object},
		{s.Graph, &q.Graph},
	} {
		k, ok, err := x.terms.Lookup(ctx, pos.term)
		if err != nil || !ok {
			return Quad{}, false, err
		}
		*pos.dst = k
	}
	return q, true, nil
}

// StatementPattern selects statements at term level. Zero terms match
// anything.
type StatementPattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Graph     rdf.Term
}

// pattern translates p to key level. ok is false when a fixed term was never
// interned, in which case nothing can match.
func (x *QuadIndex) pattern(ctx context.Context, p StatementPattern) (Pattern, bool, error) {
	var kp Pattern
	for _, pos := range []struct {
		term rdf.Term
		dst  *Key
	}{
		{p.Subject, &kp.Subject},
		{p.Predicate, &kp.Predicate},
		{p.Object, &kp.Object},
		{p.Graph, &kp.Graph},
	} {
		if pos.term.IsZero() {
			continue
		}
		k, ok, err := x.terms.Lookup(ctx, pos.term)
		if err != nil || !ok {
			return Pattern{}, false, err
		}
		*pos.dst = k
	}
	return kp, true, nil
}

// Match returns every statement matching p in index order.
func (x *QuadIndex) Match(ctx context.Context, p StatementPattern) ([]rdf.Statement, error) {
	kp, ok, err := x.pattern(ctx, p)
	if err != nil || !ok {
		return nil, err
	}
	quads, err := x.Scan(ctx, kp, 0, 0)
	if err != nil {
		return nil, err
	}
	return x.Statements(ctx, quads)
}

// HasSubject reports whether subject has at least one quad in graph.
func (x *QuadIndex) HasSubject(ctx context.Context, graph, subject rdf.Term) (bool, error) {
	kp, ok, err := x.pattern(ctx, StatementPattern{Subject: subject, Graph: graph})
	if err != nil || !ok {
		return false, err
	}
	quads, err := x.Scan(ctx, kp, 1, 0)
	if err != nil {
		return false, err
	}
	return len(quads) > 0, nil
}

// SubjectStatements returns every statement in graph whose subject is one of
// subjects, in index order.
func (x *QuadIndex) SubjectStatements(ctx context.Context, graph rdf.Term, subjects []rdf.Term) ([]rdf.Statement, error) {
	var gk Key
	if !graph.IsZero() {
		k, ok, err := x.terms.Lookup(ctx, graph)
		if err != nil || !ok {
			return nil, err
		}
		gk = k
	}
	keys := make([]Key, 0, len(subjects))
	for _, s := range subjects {
		k, ok, err := x.terms.Lookup(ctx, s)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	quads, err := x.ScanSubjects(ctx, gk, keys)
	if err != nil {
		return nil, err
	}
	return x.Statements(ctx, quads)
}
