// Package rdf defines the term-level data model: IRIs, literals, blank nodes,
// statements, the structured-object vocabulary and typed slot values.
//
// Terms are plain comparable values. Two terms denote the same RDF value iff
// their canonical forms are ==; Key() is the map key form of that identity.
package rdf

import (
	"strconv"
	"strings"

	"github.com/teranos/kgraph/errors"
)

// Kind discriminates the three term variants. Values are persisted.
type Kind uint8

const (
	KindIRI       Kind = 1
	KindLiteral   Kind = 2
	KindBlankNode Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindLiteral:
		return "literal"
	case KindBlankNode:
		return "bnode"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MarshalText renders the kind name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses "iri", "literal" or "bnode".
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "iri":
		*k = KindIRI
	case "literal":
		*k = KindLiteral
	case "bnode":
		*k = KindBlankNode
	default:
		return errors.InvalidStatementf("unknown term kind %q", b)
	}
	return nil
}

// Term is an RDF value. Value holds the IRI, the literal's lexical form, or the
// blank node label. Datatype and Language are only meaningful for literals; a
// plain literal has neither.
type Term struct {
	Kind     Kind   `json:"kind" yaml:"kind"`
	Value    string `json:"value" yaml:"value"`
	Datatype string `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// IRI builds an IRI term.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Literal builds a plain literal (no datatype, no language).
func Literal(lexical string) Term {
	return Term{Kind: KindLiteral, Value: lexical}
}

// TypedLiteral builds a literal with an explicit datatype IRI.
func TypedLiteral(lexical, datatype string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype}
}

// LangLiteral builds a language-tagged literal.
func LangLiteral(lexical, language string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Language: language}
}

// BlankNode builds a blank node term. A leading "_:" is accepted and stripped
// by Canonical.
func BlankNode(id string) Term {
	return Term{Kind: KindBlankNode, Value: id}
}

// IsZero reports whether t is the zero Term.
func (t Term) IsZero() bool {
	return t == Term{}
}

// IsIRI reports whether t is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsBlankNode reports whether t is a blank node.
func (t Term) IsBlankNode() bool { return t.Kind == KindBlankNode }

// IsResource reports whether t may stand in subject or graph position.
func (t Term) IsResource() bool {
	return t.Kind == KindIRI || t.Kind == KindBlankNode
}

// Canonical validates t and returns its canonical form.
//
// The only folding performed is the datatype/language exclusivity rule: a
// literal carrying a language tag has the implicit datatype rdf:langString, so
// an explicit rdf:langString datatype next to a language is dropped. Lexical
// forms are never rewritten.
func (t Term) Canonical() (Term, error) {
	switch t.Kind {
	case KindIRI:
		if t.Datatype != "" || t.Language != "" {
			return Term{}, errors.InvalidStatementf("IRI %q carries literal metadata", t.Value)
		}
		if err := ValidateIRI(t.Value); err != nil {
			return Term{}, err
		}
		return t, nil

	case KindBlankNode:
		if t.Datatype != "" || t.Language != "" {
			return Term{}, errors.InvalidStatementf("blank node %q carries literal metadata", t.Value)
		}
		id := strings.TrimPrefix(t.Value, "_:")
		if id == "" || strings.ContainsAny(id, " \t\r\n") {
			return Term{}, errors.InvalidStatementf("invalid blank node label %q", t.Value)
		}
		return BlankNode(id), nil

	case KindLiteral:
		return canonicalLiteral(t)

	default:
		return Term{}, errors.InvalidStatementf("unknown term kind %d", t.Kind)
	}
}

func canonicalLiteral(t Term) (Term, error) {
	if t.Language != "" {
		if !validLanguageTag(t.Language) {
			return Term{}, errors.InvalidStatementf("invalid language tag %q", t.Language)
		}
		switch t.Datatype {
		case "", RDFLangString:
			return LangLiteral(t.Value, t.Language), nil
		default:
			return Term{}, errors.InvalidStatementf(
				"literal %q has both language %q and datatype %s", t.Value, t.Language, t.Datatype)
		}
	}

	if t.Datatype == "" {
		return Literal(t.Value), nil
	}
	if t.Datatype == RDFLangString {
		return Term{}, errors.InvalidStatementf("literal %q has datatype rdf:langString but no language", t.Value)
	}
	if err := ValidateIRI(t.Datatype); err != nil {
		return Term{}, errors.Wrapf(err, "datatype of literal %q", t.Value)
	}
	if err := validateLexical(t.Value, t.Datatype); err != nil {
		return Term{}, err
	}
	return TypedLiteral(t.Value, t.Datatype), nil
}

// Key returns the identity of t as a string usable as a map key. Callers must
// pass canonical terms for Key equality to mean term equality.
func (t Term) Key() string {
	var b strings.Builder
	b.Grow(len(t.Value) + len(t.Datatype) + len(t.Language) + 4)
	b.WriteByte(byte('0' + t.Kind))
	b.WriteByte(0)
	b.WriteString(t.Value)
	b.WriteByte(0)
	b.WriteString(t.Datatype)
	b.WriteByte(0)
	b.WriteString(t.Language)
	return b.String()
}

// String renders t in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlankNode:
		return "_:" + strings.TrimPrefix(t.Value, "_:")
	case KindLiteral:
		s := strconv.Quote(t.Value)
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	default:
		return "<invalid>"
	}
}

// Compare orders terms by kind, value, datatype, then language.
func Compare(a, b Term) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	if c := strings.Compare(a.Datatype, b.Datatype); c != 0 {
		return c
	}
	return strings.Compare(a.Language, b.Language)
}

func validLanguageTag(tag string) bool {
	parts := strings.Split(tag, "-")
	for i, p := range parts {
		if len(p) == 0 || len(p) > 8 {
			return false
		}
		for _, r := range p {
			isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			isDigit := r >= '0' && r <= '9'
			if !isAlpha && !(isDigit && i > 0) {
				return false
			}
		}
	}
	return true
}
