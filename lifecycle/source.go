package lifecycle

import (
	"context"

	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/store"
)

// storeSource serves a walk from the index, caching each subject's statements
// so the walk's reads can be reused to build the existing set.
type storeSource struct {
	ctx   context.Context
	index Index
	vocab rdf.Vocabulary
	graph rdf.Term
	cache map[string][]rdf.Statement
}

func newStoreSource(ctx context.Context, index Index, vocab rdf.Vocabulary, graph rdf.Term) *storeSource {
	return &storeSource{ctx: ctx, index: index, vocab: vocab, graph: graph, cache: make(map[string][]rdf.Statement)}
}

func (s *storeSource) outgoing(node rdf.Term) ([]rdf.Statement, error) {
	if stmts, ok := s.cache[node.Key()]; ok {
		return stmts, nil
	}
	stmts, err := s.index.SubjectStatements(s.ctx, s.graph, []rdf.Term{node})
	if err != nil {
		return nil, err
	}
	s.cache[node.Key()] = stmts
	return stmts, nil
}

// load fetches the statements of every uncached subject in one call.
func (s *storeSource) load(subjects []rdf.Term) error {
	var missing []rdf.Term
	for _, t := range subjects {
		if _, ok := s.cache[t.Key()]; !ok {
			missing = append(missing, t)
			s.cache[t.Key()] = nil
		}
	}
	if len(missing) == 0 {
		return nil
	}
	stmts, err := s.index.SubjectStatements(s.ctx, s.graph, missing)
	if err != nil {
		for _, t := range missing {
			delete(s.cache, t.Key())
		}
		return err
	}
	for _, st := range stmts {
		s.cache[st.Subject.Key()] = append(s.cache[st.Subject.Key()], st)
	}
	return nil
}

// statementsOf returns the cached statements of subjects, loading any that
// are missing.
func (s *storeSource) statementsOf(subjects []rdf.Term) ([]rdf.Statement, error) {
	if err := s.load(subjects); err != nil {
		return nil, err
	}
	var out []rdf.Statement
	seen := make(map[string]struct{}, len(subjects))
	for _, t := range subjects {
		if _, dup := seen[t.Key()]; dup {
			continue
		}
		seen[t.Key()] = struct{}{}
		out = append(out, s.cache[t.Key()]...)
	}
	return out, nil
}

func (s *storeSource) edgesFrom(node rdf.Term) ([]rdf.Term, error) {
	return s.subjectsWith(s.vocab.EdgeSource, node)
}

func (s *storeSource) edgesTo(node rdf.Term) ([]rdf.Term, error) {
	return s.subjectsWith(s.vocab.EdgeDestination, node)
}

// subjectsWith returns the distinct subjects of statements (?, pred, object).
func (s *storeSource) subjectsWith(pred string, object rdf.Term) ([]rdf.Term, error) {
	stmts, err := s.index.Match(s.ctx, store.StatementPattern{
		Predicate: rdf.IRI(pred),
		Object:    object,
		Graph:     s.graph,
	})
	if err != nil {
		return nil, err
	}
	return rdf.Subjects(stmts), nil
}

// incoming returns the containment statements pointing at node.
func (s *storeSource) incoming(node rdf.Term) ([]rdf.Statement, error) {
	stmts, err := s.index.Match(s.ctx, store.StatementPattern{Object: node, Graph: s.graph})
	if err != nil {
		return nil, err
	}
	var out []rdf.Statement
	for _, st := range stmts {
		if s.vocab.IsContainment(st.Predicate.Value) {
			out = append(out, st)
		}
	}
	return out, nil
}
