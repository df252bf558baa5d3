package store

import (
	"context"
	"database/sql"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// DefaultTermCacheSize is used when NewTermStore is given a non-positive size.
const DefaultTermCacheSize = 4096

// TermStore interns canonical terms and resolves keys back to terms.
//
// A term is persisted once and its key never changes. Both directions are
// cached; the caches are filled only after the row is known to be durable, so a
// failed transaction can never leave a key in the cache that the table lacks.
type TermStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	byTerm *lru.Cache // term key string -> Key
	byKey  *lru.Cache // Key -> rdf.Term
}

// NewTermStore creates a term store over a migrated database.
func NewTermStore(conn *sql.DB, cacheSize int, logger *zap.SugaredLogger) (*TermStore, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultTermCacheSize
	}
	byTerm, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create term cache")
	}
	byKey, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create key cache")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TermStore{db: conn, logger: logger.Named("terms"), byTerm: byTerm, byKey: byKey}, nil
}

const (
	insertTermSQL = `INSERT INTO terms (kind, lexical, datatype, language) VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, lexical, datatype, language) DO NOTHING`
	selectTermIDSQL = `SELECT id FROM terms WHERE kind = ? AND lexical = ? AND datatype = ? AND language = ?`
)

// Intern returns the key of t, persisting t first if it is new. t is
// canonicalized; an invalid term fails with InvalidStatement.
func (s *TermStore) Intern(ctx context.Context, t rdf.Term) (Key, error) {
	keys, err := s.InternAll(ctx, []rdf.Term{t})
	if err != nil {
		return 0, err
	}
	c, _ := t.Canonical()
	return keys[c.Key()], nil
}

// InternAll interns every term in one transaction and returns their keys
// indexed by the canonical term's Key().
func (s *TermStore) InternAll(ctx context.Context, terms []rdf.Term) (map[string]Key, error) {
	out := make(map[string]Key, len(terms))
	var missing []rdf.Term
	for _, t := range terms {
		c, err := t.Canonical()
		if err != nil {
			return nil, err
		}
		tk := c.Key()
		if _, done := out[tk]; done {
			continue
		}
		if v, ok := s.byTerm.Get(tk); ok {
			out[tk] = v.(Key)
			continue
		}
		out[tk] = 0
		missing = append(missing, c)
	}
	if len(missing) == 0 {
		return out, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, db.Classify(err, "begin term transaction")
	}
	defer tx.Rollback()

	for _, c := range missing {
		key, err := internTx(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		out[c.Key()] = key
	}
	if err := tx.Commit(); err != nil {
		return nil, db.Classify(err, "commit terms")
	}

	for _, c := range missing {
		s.remember(c, out[c.Key()])
	}
	s.logger.Debugw("Interned terms", "requested", len(terms), "new_or_uncached", len(missing))
	return out, nil
}

func internTx(ctx context.Context, ex execer, c rdf.Term) (Key, error) {
	if _, err := ex.ExecContext(ctx, insertTermSQL, int(c.Kind), c.Value, c.Datatype, c.Language); err != nil {
		return 0, db.Classify(err, "insert term "+c.String())
	}
	var id int64
	if err := ex.QueryRowContext(ctx, selectTermIDSQL, int(c.Kind), c.Value, c.Datatype, c.Language).Scan(&id); err != nil {
		return 0, db.Classify(err, "select term "+c.String())
	}
	return Key(id), nil
}

// Lookup returns the key of t without inserting it. ok is false when t has
// never been interned.
func (s *TermStore) Lookup(ctx context.Context, t rdf.Term) (key Key, ok bool, err error) {
	c, err := t.Canonical()
	if err != nil {
		return 0, false, err
	}
	if v, hit := s.byTerm.Get(c.Key()); hit {
		return v.(Key), true, nil
	}

	var id int64
	err = s.db.QueryRowContext(ctx, selectTermIDSQL, int(c.Kind), c.Value, c.Datatype, c.Language).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, db.Classify(err, "lookup term "+c.String())
	}
	s.remember(c, Key(id))
	return Key(id), true, nil
}

// Resolve returns the term with key k, or a NotFound error.
func (s *TermStore) Resolve(ctx context.Context, k Key) (rdf.Term, error) {
	terms, err := s.ResolveAll(ctx, []Key{k})
	if err != nil {
		return rdf.Term{}, err
	}
	return terms[k], nil
}

// ResolveAll resolves every key. Any unknown key fails the whole call with
// NotFound.
func (s *TermStore) ResolveAll(ctx context.Context, keys []Key) (map[Key]rdf.Term, error) {
	out := make(map[Key]rdf.Term, len(keys))
	var missing []Key
	for _, k := range keys {
		if _, done := out[k]; done {
			continue
		}
		if v, ok := s.byKey.Get(k); ok {
			out[k] = v.(rdf.Term)
			continue
		}
		out[k] = rdf.Term{}
		missing = append(missing, k)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	for _, chunk := range chunkKeys(missing, maxInParams) {
		if err := s.resolveChunk(ctx, chunk, out); err != nil {
			return nil, err
		}
	}
	for _, k := range missing {
		if out[k].IsZero() {
			return nil, errors.NotFoundf("term key %d", k)
		}
	}
	return out, nil
}

func (s *TermStore) resolveChunk(ctx context.Context, chunk []Key, out map[Key]rdf.Term) error {
	args := make([]interface{}, len(chunk))
	for i, k := range chunk {
		args[i] = int64(k)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, lexical, datatype, language FROM terms WHERE id IN ("+placeholders(len(chunk))+")", args...)
	if err != nil {
		return db.Classify(err, "resolve terms")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			kind int
			t    rdf.Term
		)
		if err := rows.Scan(&id, &kind, &t.Value, &t.Datatype, &t.Language); err != nil {
			return errors.Wrap(err, "scan term")
		}
		t.Kind = rdf.Kind(kind)
		out[Key(id)] = t
		s.remember(t, Key(id))
	}
	return db.Classify(rows.Err(), "iterate terms")
}

func (s *TermStore) remember(t rdf.Term, k Key) {
	s.byTerm.Add(t.Key(), k)
	s.byKey.Add(k, t)
}
