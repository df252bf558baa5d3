package lifecycle

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/kgraph/errors"
	kgtest "github.com/teranos/kgraph/internal/testing"
	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/store"
)

const testGraphURI = "urn:kg:graph:test"

var (
	vocab     = rdf.NewVocabulary("")
	testGraph = rdf.IRI(testGraphURI)
	hasName   = rdf.IRI("http://example.org/name")
)

type fixture struct {
	conn    *sql.DB
	index   *store.QuadIndex
	manager *Manager
	events  *EventLog
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil, 0)
}

// newFixtureWith builds a manager over wrap(index) when wrap is given.
func newFixtureWith(t *testing.T, wrap func(*store.QuadIndex) Index, batch int) *fixture {
	t.Helper()
	conn := kgtest.CreateTestDB(t)
	terms, err := store.NewTermStore(conn, 256, nil)
	require.NoError(t, err)
	index := store.NewQuadIndex(conn, terms, nil)

	var idx Index = index
	if wrap != nil {
		idx = wrap(index)
	}
	events := NewEventLog(conn, nil)
	m := NewManager(idx, Options{
		Vocabulary: vocab,
		BatchSize:  batch,
		Events:     events,
		Logger:     zaptest.NewLogger(t).Sugar(),
	})
	return &fixture{conn: conn, index: index, manager: m, events: events}
}

func typed(uri, class string) rdf.Statement {
	return rdf.NewStatement(rdf.IRI(uri), rdf.IRI(rdf.RDFType), rdf.IRI(class), testGraph)
}

func link(parent, pred, child string) rdf.Statement {
	return rdf.NewStatement(rdf.IRI(parent), rdf.IRI(pred), rdf.IRI(child), testGraph)
}

func entity(uri, name string) []rdf.Statement {
	return []rdf.Statement{
		typed(uri, vocab.Entity),
		rdf.NewStatement(rdf.IRI(uri), hasName, rdf.Literal(name), rdf.Term{}),
	}
}

func frame(uri string) []rdf.Statement {
	return []rdf.Statement{typed(uri, vocab.Frame)}
}

func slot(t *testing.T, uri string, v rdf.SlotValue) []rdf.Statement {
	t.Helper()
	value, err := v.Statement(vocab, rdf.IRI(uri), testGraph)
	require.NoError(t, err)
	return []rdf.Statement{typed(uri, vocab.Slots[v.Type]), value}
}

func edge(uri, class, source, dest string) []rdf.Statement {
	return []rdf.Statement{
		typed(uri, class),
		link(uri, vocab.EdgeSource, source),
		link(uri, vocab.EdgeDestination, dest),
	}
}

// company builds entity e with frame f holding slot s.
func company(t *testing.T, e, f, s string, v rdf.SlotValue) []rdf.Statement {
	t.Helper()
	var stmts []rdf.Statement
	stmts = append(stmts, entity(e, "Acme Corp")...)
	stmts = append(stmts, link(e, vocab.HasFrame, f))
	stmts = append(stmts, frame(f)...)
	stmts = append(stmts, link(f, vocab.HasSlot, s))
	stmts = append(stmts, slot(t, s, v)...)
	return stmts
}

func createReq(target string, payload []rdf.Statement) Request {
	return Request{Mode: ModeCreate, Graph: testGraphURI, TargetURI: target, Payload: payload}
}

// snapshot returns every statement in the test graph in index order.
func (f *fixture) snapshot(t *testing.T) []rdf.Statement {
	t.Helper()
	stmts, err := f.index.Match(context.Background(), store.StatementPattern{Graph: testGraph})
	require.NoError(t, err)
	return stmts
}

func (f *fixture) subject(t *testing.T, uri string) []rdf.Statement {
	t.Helper()
	stmts, err := f.index.Match(context.Background(), store.StatementPattern{Subject: rdf.IRI(uri), Graph: testGraph})
	require.NoError(t, err)
	return stmts
}

// grouped returns the statements of every subject tagged with value under
// grouping predicate pred.
func (f *fixture) grouped(t *testing.T, pred, value string) []rdf.Statement {
	t.Helper()
	ctx := context.Background()
	tags, err := f.index.Match(ctx, store.StatementPattern{Predicate: rdf.IRI(pred), Object: rdf.IRI(value), Graph: testGraph})
	require.NoError(t, err)
	stmts, err := f.index.SubjectStatements(ctx, testGraph, rdf.Subjects(tags))
	require.NoError(t, err)
	return stmts
}

func withPredicate(stmts []rdf.Statement, pred string) []rdf.Statement {
	var out []rdf.Statement
	for _, s := range stmts {
		if s.Predicate.Value == pred {
			out = append(out, s)
		}
	}
	return out
}

func withoutGrouping(stmts []rdf.Statement) []rdf.Statement {
	var out []rdf.Statement
	for _, s := range stmts {
		if !vocab.IsGrouping(s.Predicate.Value) {
			out = append(out, s)
		}
	}
	return out
}

var errInjected = errors.New("injected insert failure")

// faultyIndex fails InsertStatements once allowed calls have been used. With
// failRollback every later insert fails too.
type faultyIndex struct {
	*store.QuadIndex

	mu           sync.Mutex
	allowed      int
	calls        int
	tripped      bool
	failRollback bool
}

func (f *faultyIndex) InsertStatements(ctx context.Context, stmts []rdf.Statement) (int, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls > f.allowed && (!f.tripped || f.failRollback)
	if fail {
		f.tripped = true
	}
	f.mu.Unlock()

	if fail {
		return 0, errInjected
	}
	return f.QuadIndex.InsertStatements(ctx, stmts)
}
