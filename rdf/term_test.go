package rdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kgraph/errors"
)

func TestCanonicalLiteral(t *testing.T) {
	tests := []struct {
		name    string
		in      Term
		want    Term
		wantErr bool
	}{
		{
			name: "plain literal unchanged",
			in:   Literal("Acme"),
			want: Literal("Acme"),
		},
		{
			name: "explicit langString folded into language literal",
			in:   Term{Kind: KindLiteral, Value: "bonjour", Datatype: RDFLangString, Language: "fr"},
			want: LangLiteral("bonjour", "fr"),
		},
		{
			name:    "language with foreign datatype rejected",
			in:      Term{Kind: KindLiteral, Value: "hi", Datatype: XSDString, Language: "en"},
			wantErr: true,
		},
		{
			name:    "langString without language rejected",
			in:      TypedLiteral("hi", RDFLangString),
			wantErr: true,
		},
		{
			name: "integer lexical form kept verbatim",
			in:   TypedLiteral("+042", XSDInteger),
			want: TypedLiteral("+042", XSDInteger),
		},
		{
			name:    "malformed integer rejected",
			in:      TypedLiteral("4x2", XSDInteger),
			wantErr: true,
		},
		{
			name:    "malformed boolean rejected",
			in:      TypedLiteral("yes", XSDBoolean),
			wantErr: true,
		},
		{
			name: "dateTime with offset",
			in:   TypedLiteral("2024-03-01T10:00:00+02:00", XSDDateTime),
			want: TypedLiteral("2024-03-01T10:00:00+02:00", XSDDateTime),
		},
		{
			name:    "malformed dateTime rejected",
			in:      TypedLiteral("yesterday", XSDDateTime),
			wantErr: true,
		},
		{
			name: "unknown datatype is opaque",
			in:   TypedLiteral("anything", "http://example.org/dt"),
			want: TypedLiteral("anything", "http://example.org/dt"),
		},
		{
			name:    "invalid language tag rejected",
			in:      LangLiteral("x", "en_US"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Canonical()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlainAndStringTypedAreDistinct(t *testing.T) {
	plain, err := Literal("Acme").Canonical()
	require.NoError(t, err)
	typed, err := TypedLiteral("Acme", XSDString).Canonical()
	require.NoError(t, err)
	lang, err := LangLiteral("Acme", "en").Canonical()
	require.NoError(t, err)

	assert.NotEqual(t, plain.Key(), typed.Key())
	assert.NotEqual(t, plain.Key(), lang.Key())
	assert.NotEqual(t, typed.Key(), lang.Key())
	assert.NotEqual(t, plain.Key(), IRI("Acme").Key())
}

func TestCanonicalResources(t *testing.T) {
	b, err := BlankNode("_:b1").Canonical()
	require.NoError(t, err)
	assert.Equal(t, BlankNode("b1"), b)

	_, err = BlankNode("_:").Canonical()
	assert.Error(t, err)

	_, err = IRI("not an iri").Canonical()
	assert.Error(t, err)

	_, err = Term{Kind: KindIRI, Value: "urn:x", Language: "en"}.Canonical()
	assert.Error(t, err)

	_, err = Term{}.Canonical()
	assert.Error(t, err)
}

func TestLooksLikeIRI(t *testing.T) {
	assert.True(t, LooksLikeIRI("http://example.org/e1"))
	assert.True(t, LooksLikeIRI("urn:kg:entity:1"))
	assert.True(t, LooksLikeIRI("mailto:ops@example.org"))
	assert.False(t, LooksLikeIRI("Acme"))
	assert.False(t, LooksLikeIRI("Acme Corp"))
	assert.False(t, LooksLikeIRI("12:30"))
	assert.False(t, LooksLikeIRI(""))
	assert.False(t, LooksLikeIRI("http://example.org/a b"))
}

func TestTermString(t *testing.T) {
	assert.Equal(t, "<urn:a>", IRI("urn:a").String())
	assert.Equal(t, `"42"^^<`+XSDInteger+`>`, TypedLiteral("42", XSDInteger).String())
	assert.Equal(t, `"hi"@en`, LangLiteral("hi", "en").String())
	assert.Equal(t, "_:b", BlankNode("b").String())
}

func TestStatementCanonical(t *testing.T) {
	g := IRI("urn:graph")

	_, err := NewStatement(Literal("s"), IRI("urn:p"), Literal("o"), g).Canonical()
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))

	_, err = NewStatement(IRI("urn:s"), BlankNode("p"), Literal("o"), g).Canonical()
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))

	_, err = NewStatement(IRI("urn:s"), IRI("urn:p"), Literal("o"), Literal("g")).Canonical()
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))

	s, err := NewStatement(BlankNode("_:x"), IRI("urn:p"), LangLiteral("o", "en"), g).Canonical()
	require.NoError(t, err)
	assert.Equal(t, BlankNode("x"), s.Subject)
}

func TestCanonicalizeDeduplicates(t *testing.T) {
	g := IRI("urn:graph")
	in := []Statement{
		NewStatement(IRI("urn:s"), IRI("urn:p"), LangLiteral("o", "en"), g),
		NewStatement(IRI("urn:s"), IRI("urn:p"), Term{Kind: KindLiteral, Value: "o", Language: "en", Datatype: RDFLangString}, g),
		NewStatement(IRI("urn:s"), IRI("urn:p"), Literal("o"), g),
	}

	out, err := Canonicalize(in)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, RDFLangString, in[1].Object.Datatype, "input must not be modified")
}

func TestSortStatements(t *testing.T) {
	g := IRI("urn:g")
	stmts := []Statement{
		NewStatement(IRI("urn:b"), IRI("urn:p"), Literal("1"), g),
		NewStatement(IRI("urn:a"), IRI("urn:q"), Literal("1"), g),
		NewStatement(IRI("urn:a"), IRI("urn:p"), Literal("2"), g),
	}
	SortStatements(stmts)
	assert.Equal(t, "urn:a", stmts[0].Subject.Value)
	assert.Equal(t, "urn:p", stmts[0].Predicate.Value)
	assert.Equal(t, "urn:q", stmts[1].Predicate.Value)
	assert.Equal(t, "urn:b", stmts[2].Subject.Value)
}

func TestSlotValueRoundTrip(t *testing.T) {
	vocab := NewVocabulary("")
	slot := IRI("urn:slot:1")
	g := IRI("urn:graph")
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("", 3600))

	values := []SlotValue{
		TextValue("Acme"),
		IntegerValue(-42),
		BooleanValue(true),
		DateTimeValue(ts),
		EntityValue("urn:entity:2"),
	}

	for _, v := range values {
		t.Run(v.Type.String(), func(t *testing.T) {
			stmt, err := v.Statement(vocab, slot, g)
			require.NoError(t, err)
			_, err = stmt.Canonical()
			require.NoError(t, err)

			back, err := SlotValueFromStatement(vocab, stmt)
			require.NoError(t, err)
			assert.Equal(t, v.Type, back.Type)
			if v.Type == SlotDateTime {
				assert.True(t, v.DateTime.Equal(back.DateTime))
			} else {
				assert.Equal(t, v, back)
			}
		})
	}
}

func TestSlotValueFromStatementRejectsMismatch(t *testing.T) {
	vocab := NewVocabulary("")
	g := IRI("urn:graph")

	_, err := SlotValueFromStatement(vocab, NewStatement(IRI("urn:s"), IRI(vocab.SlotValues[SlotInteger]), Literal("abc"), g))
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))

	_, err = SlotValueFromStatement(vocab, NewStatement(IRI("urn:s"), IRI("urn:other"), Literal("1"), g))
	assert.Equal(t, errors.InvalidStatement, errors.KindOf(err))
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary("http://example.org/kg#")
	assert.Equal(t, ObjectEntity, v.KindOfClass("http://example.org/kg#KGEntity"))
	assert.Equal(t, ObjectSlot, v.KindOfClass("http://example.org/kg#KGIntegerSlot"))
	assert.Equal(t, ObjectEdge, v.KindOfClass("http://example.org/kg#Edge_hasKGSlot"))
	assert.Equal(t, ObjectUnknown, v.KindOfClass("http://example.org/kg#Other"))
	assert.True(t, v.IsGrouping(v.EntityGroup))
	assert.True(t, v.IsContainment(v.HasSlot))
	assert.Equal(t, v.HasSubFrame, v.LinkPredicate(ObjectFrame, ObjectFrame))
	assert.Empty(t, v.LinkPredicate(ObjectSlot, ObjectFrame))
	assert.Equal(t, ObjectFrame, v.ContainedKind(v.HasSubFrame))
	assert.Equal(t, ObjectRelation, v.ContainedKind(v.HasRelation))
	assert.Equal(t, ObjectUnknown, v.ContainedKind(v.EdgeSource))
}

func TestKindText(t *testing.T) {
	b, err := KindBlankNode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "bnode", string(b))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("literal")))
	assert.Equal(t, KindLiteral, k)
	assert.Error(t, k.UnmarshalText([]byte("uri")))
}
