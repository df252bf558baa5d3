package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kgtest "github.com/teranos/kgraph/internal/testing"
	"github.com/teranos/kgraph/rdf"
)

func newTestIndex(t *testing.T) *QuadIndex {
	t.Helper()
	conn := kgtest.CreateTestDB(t)
	terms, err := NewTermStore(conn, 64, nil)
	require.NoError(t, err)
	return NewQuadIndex(conn, terms, nil)
}

var testGraph = rdf.IRI("urn:graph:test")

func stmt(s, p string, o rdf.Term) rdf.Statement {
	return rdf.NewStatement(rdf.IRI(s), rdf.IRI(p), o, testGraph)
}

func TestInsertAndRemoveAreIdempotent(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	stmts := []rdf.Statement{
		stmt("urn:e1", "urn:name", rdf.Literal("Acme")),
		stmt("urn:e1", "urn:size", rdf.TypedLiteral("42", rdf.XSDInteger)),
	}

	n, err := x.InsertStatements(ctx, stmts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = x.InsertStatements(ctx, stmts)
	require.NoError(t, err)
	assert.Zero(t, n, "second insert is a no-op")

	total, err := x.Count(ctx, Pattern{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	n, err = x.RemoveStatements(ctx, stmts[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = x.RemoveStatements(ctx, stmts[:1])
	require.NoError(t, err)
	assert.Zero(t, n, "second remove is a no-op")

	n, err = x.RemoveStatements(ctx, []rdf.Statement{stmt("urn:never", "urn:seen", rdf.Literal("x"))})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoveIsDatatypeAware(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	typed := stmt("urn:s", "urn:v", rdf.TypedLiteral("42", rdf.XSDInteger))
	_, err := x.InsertStatements(ctx, []rdf.Statement{typed})
	require.NoError(t, err)

	n, err := x.RemoveStatements(ctx, []rdf.Statement{stmt("urn:s", "urn:v", rdf.Literal("42"))})
	require.NoError(t, err)
	assert.Zero(t, n, "a plain literal is a different statement")

	n, err = x.RemoveStatements(ctx, []rdf.Statement{typed})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanPatternsAndOrder(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	other := rdf.IRI("urn:graph:other")
	_, err := x.InsertStatements(ctx, []rdf.Statement{
		stmt("urn:b", "urn:p", rdf.Literal("3")),
		stmt("urn:a", "urn:p", rdf.Literal("1")),
		stmt("urn:a", "urn:q", rdf.Literal("2")),
		rdf.NewStatement(rdf.IRI("urn:a"), rdf.IRI("urn:p"), rdf.Literal("1"), other),
	})
	require.NoError(t, err)

	gk, ok, err := x.terms.Lookup(ctx, testGraph)
	require.NoError(t, err)
	require.True(t, ok)

	quads, err := x.Scan(ctx, Pattern{Graph: gk}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, quads, 3)
	for i := 1; i < len(quads); i++ {
		assert.LessOrEqual(t, quads[i-1].Subject, quads[i].Subject)
	}

	page1, err := x.Scan(ctx, Pattern{Graph: gk}, 2, 0)
	require.NoError(t, err)
	page2, err := x.Scan(ctx, Pattern{Graph: gk}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, quads, append(page1, page2...), "pagination is stable")

	matched, err := x.Match(ctx, StatementPattern{Subject: rdf.IRI("urn:a"), Predicate: rdf.IRI("urn:p")})
	require.NoError(t, err)
	assert.Len(t, matched, 2, "both graphs")

	matched, err = x.Match(ctx, StatementPattern{Subject: rdf.IRI("urn:unknown")})
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestSubjectStatements(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	_, err := x.InsertStatements(ctx, []rdf.Statement{
		stmt("urn:a", "urn:p", rdf.Literal("1")),
		stmt("urn:b", "urn:p", rdf.Literal("2")),
		stmt("urn:c", "urn:p", rdf.Literal("3")),
	})
	require.NoError(t, err)

	got, err := x.SubjectStatements(ctx, testGraph, []rdf.Term{rdf.IRI("urn:a"), rdf.IRI("urn:c"), rdf.IRI("urn:zzz")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "urn:a", got[0].Subject.Value)
	assert.Equal(t, "urn:c", got[1].Subject.Value)

	has, err := x.HasSubject(ctx, testGraph, rdf.IRI("urn:b"))
	require.NoError(t, err)
	assert.True(t, has)

	has, err = x.HasSubject(ctx, rdf.IRI("urn:graph:none"), rdf.IRI("urn:b"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRoundTripFidelity(t *testing.T) {
	ctx := context.Background()
	x := newTestIndex(t)

	in := []rdf.Statement{
		stmt("urn:s", "urn:plain", rdf.Literal("Acme")),
		stmt("urn:s", "urn:string", rdf.TypedLiteral("Acme", rdf.XSDString)),
		stmt("urn:s", "urn:int", rdf.TypedLiteral("007", rdf.XSDInteger)),
		stmt("urn:s", "urn:when", rdf.TypedLiteral("2024-03-01T10:00:00.5+02:00", rdf.XSDDateTime)),
		stmt("urn:s", "urn:label", rdf.LangLiteral("Acme", "en")),
	}
	_, err := x.InsertStatements(ctx, in)
	require.NoError(t, err)

	out, err := x.SubjectStatements(ctx, testGraph, []rdf.Term{rdf.IRI("urn:s")})
	require.NoError(t, err)

	want := append([]rdf.Statement(nil), in...)
	rdf.SortStatements(want)
	rdf.SortStatements(out)
	assert.Equal(t, want, out)
}

func TestChunkKeys(t *testing.T) {
	keys := make([]Key, 1201)
	chunks := chunkKeys(keys, maxInParams)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 201)
	assert.Nil(t, chunkKeys(nil, maxInParams))
	assert.Equal(t, "?,?,?", placeholders(3))
}
