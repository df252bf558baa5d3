package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kgraph/errors"
	kgtest "github.com/teranos/kgraph/internal/testing"
	"github.com/teranos/kgraph/rdf"
)

func newTestTermStore(t *testing.T, cacheSize int) *TermStore {
	t.Helper()
	terms, err := NewTermStore(kgtest.CreateTestDB(t), cacheSize, nil)
	require.NoError(t, err)
	return terms
}

func TestInternIsIdempotent(t *testing.T) {
	ctx := context.Background()
	terms := newTestTermStore(t, 16)

	for _, term := range []rdf.Term{
		rdf.IRI("http://example.org/e1"),
		rdf.Literal("Acme"),
		rdf.TypedLiteral("Acme", rdf.XSDString),
		rdf.LangLiteral("Acme", "en"),
		rdf.TypedLiteral("42", rdf.XSDInteger),
		rdf.BlankNode("b0"),
	} {
		k1, err := terms.Intern(ctx, term)
		require.NoError(t, err)
		k2, err := terms.Intern(ctx, term)
		require.NoError(t, err)
		assert.Equal(t, k1, k2, "interning %s twice", term)
		assert.NotZero(t, k1)
	}
}

func TestInternDistinguishesDatatypeAndLanguage(t *testing.T) {
	ctx := context.Background()
	terms := newTestTermStore(t, 16)

	keys := map[Key]rdf.Term{}
	for _, term := range []rdf.Term{
		rdf.Literal("42"),
		rdf.TypedLiteral("42", rdf.XSDInteger),
		rdf.TypedLiteral("42", rdf.XSDString),
		rdf.LangLiteral("42", "en"),
		rdf.IRI("urn:42"),
	} {
		k, err := terms.Intern(ctx, term)
		require.NoError(t, err)
		_, dup := keys[k]
		assert.False(t, dup, "%s shares a key", term)
		keys[k] = term
	}
}

func TestInternFoldsExplicitLangString(t *testing.T) {
	ctx := context.Background()
	terms := newTestTermStore(t, 16)

	k1, err := terms.Intern(ctx, rdf.LangLiteral("bonjour", "fr"))
	require.NoError(t, err)
	k2, err := terms.Intern(ctx, rdf.Term{Kind: rdf.KindLiteral, Value: "bonjour", Language: "fr", Datatype: rdf.RDFLangString})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestInternRejectsInvalidTerms(t *testing.T) {
	ctx := context.Background()
	terms := newTestTermStore(t, 16)

	_, err := terms.Intern(ctx, rdf.TypedLiteral("forty-two", rdf.XSDInteger))
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))

	_, err = terms.InternAll(ctx, []rdf.Term{rdf.Literal("ok"), rdf.IRI("no scheme")})
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))

	_, ok, err := terms.Lookup(ctx, rdf.Literal("ok"))
	require.NoError(t, err)
	assert.False(t, ok, "a failed InternAll must not persist earlier terms")
}

func TestLookupNeverInserts(t *testing.T) {
	ctx := context.Background()
	terms := newTestTermStore(t, 16)

	_, ok, err := terms.Lookup(ctx, rdf.IRI("urn:unknown"))
	require.NoError(t, err)
	assert.False(t, ok)

	var n int
	require.NoError(t, terms.db.QueryRow("SELECT COUNT(*) FROM terms").Scan(&n))
	assert.Zero(t, n)
}

func TestResolveRoundTrip(t *testing.T) {
	ctx := context.Background()
	// A cache of one forces most lookups to the database
	terms := newTestTermStore(t, 1)

	in := []rdf.Term{
		rdf.TypedLiteral("2024-03-01T10:00:00Z", rdf.XSDDateTime),
		rdf.LangLiteral("hello", "en-GB"),
		rdf.Literal(""),
		rdf.IRI("http://example.org/x"),
	}
	keys, err := terms.InternAll(ctx, in)
	require.NoError(t, err)

	var all []Key
	for _, term := range in {
		all = append(all, keys[term.Key()])
	}
	resolved, err := terms.ResolveAll(ctx, all)
	require.NoError(t, err)
	for _, term := range in {
		assert.Equal(t, term, resolved[keys[term.Key()]])
	}

	got, err := terms.Resolve(ctx, keys[in[1].Key()])
	require.NoError(t, err)
	assert.Equal(t, in[1], got)
}

func TestResolveUnknownKey(t *testing.T) {
	terms := newTestTermStore(t, 16)
	_, err := terms.Resolve(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestInternConcurrent(t *testing.T) {
	ctx := context.Background()
	terms := newTestTermStore(t, 16)

	const workers = 8
	keys := make([]Key, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i], errs[i] = terms.Intern(ctx, rdf.TypedLiteral("7", rdf.XSDInteger))
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, keys[0], keys[i])
	}
}
