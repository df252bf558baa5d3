package rdf

import (
	"sort"

	"github.com/teranos/kgraph/errors"
)

// Statement is a quad at term level: subject, predicate, object and named
// graph, each with full datatype/language metadata.
type Statement struct {
	Subject   Term `json:"subject" yaml:"subject"`
	Predicate Term `json:"predicate" yaml:"predicate"`
	Object    Term `json:"object" yaml:"object"`
	Graph     Term `json:"graph" yaml:"graph"`
}

// NewStatement builds a statement.
func NewStatement(subject, predicate, object, graph Term) Statement {
	return Statement{Subject: subject, Predicate: predicate, Object: object, Graph: graph}
}

// Canonical canonicalizes every term and enforces position rules: subject and
// graph are IRIs or blank nodes, the predicate is an IRI.
func (s Statement) Canonical() (Statement, error) {
	var out Statement
	var err error

	if out.Subject, err = s.Subject.Canonical(); err != nil {
		return Statement{}, errors.Wrap(err, "subject")
	}
	if !out.Subject.IsResource() {
		return Statement{}, errors.InvalidStatementf("subject %s must be an IRI or blank node", s.Subject)
	}
	if out.Predicate, err = s.Predicate.Canonical(); err != nil {
		return Statement{}, errors.Wrap(err, "predicate")
	}
	if !out.Predicate.IsIRI() {
		return Statement{}, errors.InvalidStatementf("predicate %s must be an IRI", s.Predicate)
	}
	if out.Object, err = s.Object.Canonical(); err != nil {
		return Statement{}, errors.Wrapf(err, "object of %s %s", s.Subject, s.Predicate)
	}
	if out.Graph, err = s.Graph.Canonical(); err != nil {
		return Statement{}, errors.Wrap(err, "graph")
	}
	if !out.Graph.IsResource() {
		return Statement{}, errors.InvalidStatementf("graph %s must be an IRI or blank node", s.Graph)
	}
	return out, nil
}

// Key returns the identity of s as a map key. Only meaningful on canonical
// statements.
func (s Statement) Key() string {
	return s.Subject.Key() + "\x01" + s.Predicate.Key() + "\x01" + s.Object.Key() + "\x01" + s.Graph.Key()
}

func (s Statement) String() string {
	return s.Subject.String() + " " + s.Predicate.String() + " " + s.Object.String() + " " + s.Graph.String() + " ."
}

// CompareStatements orders by subject, predicate, object, then graph.
func CompareStatements(a, b Statement) int {
	if c := Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	if c := Compare(a.Object, b.Object); c != 0 {
		return c
	}
	return Compare(a.Graph, b.Graph)
}

// SortStatements sorts in place with CompareStatements.
func SortStatements(stmts []Statement) {
	sort.Slice(stmts, func(i, j int) bool {
		return CompareStatements(stmts[i], stmts[j]) < 0
	})
}

// Canonicalize canonicalizes every statement and removes duplicates. The input
// is not modified. The first invalid statement aborts with InvalidStatement.
func Canonicalize(stmts []Statement) ([]Statement, error) {
	out := make([]Statement, 0, len(stmts))
	seen := make(map[string]struct{}, len(stmts))
	for i, s := range stmts {
		c, err := s.Canonical()
		if err != nil {
			return nil, errors.Wrapf(err, "statement %d", i)
		}
		k := c.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Subjects returns the distinct subjects of stmts in first-seen order.
func Subjects(stmts []Statement) []Term {
	var out []Term
	seen := make(map[string]struct{})
	for _, s := range stmts {
		k := s.Subject.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s.Subject)
	}
	return out
}
