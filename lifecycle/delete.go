package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/kgraph/diff"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// Delete removes an object. ScopeSubjectOnly removes the target's statements,
// the containment statements pointing at it and the edge objects whose
// destination it is. ScopeSubgraph also removes everything the target
// contains and everything tagged with its grouping value. A target without
// statements is NotFound.
func (m *Manager) Delete(ctx context.Context, req DeleteRequest) (res *Result, err error) {
	op := operation{id: uuid.NewString(), start: time.Now(), mode: "delete"}
	log := m.logger.With("op_id", op.id, "mode", op.mode, "target", req.TargetURI, "graph", req.Graph,
		"scope", req.Scope.String())
	defer func() { m.finish(log, op, res, err) }()

	if err := rdf.ValidateIRI(req.Graph); err != nil {
		return nil, errors.Wrap(err, "graph")
	}
	if err := rdf.ValidateIRI(req.TargetURI); err != nil {
		return nil, errors.Wrap(err, "target")
	}
	graph, target := rdf.IRI(req.Graph), rdf.IRI(req.TargetURI)

	own, err := m.index.SubjectStatements(ctx, graph, []rdf.Term{target})
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, errors.NotFoundf("object %s does not exist in %s", req.TargetURI, req.Graph)
	}
	// Untagged legacy objects lock on themselves
	entity := objectOf(own, m.vocab.EntityGroup)
	if !entity.IsResource() {
		entity = target
	}

	unlock := m.locks.Lock(lockKey(graph, entity))
	defer unlock()

	src := newStoreSource(ctx, m.index, m.vocab, graph)
	if own, err = src.outgoing(target); err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, errors.NotFoundf("object %s does not exist in %s", req.TargetURI, req.Graph)
	}

	doomed, err := m.deletionSet(src, target, own, entity, req.Scope)
	if err != nil {
		return nil, err
	}
	d, err := diff.Compute(nil, doomed)
	if err != nil {
		return nil, err
	}
	op.graph, op.entity, op.target = graph.Value, entity.Value, target.Value

	added, removed, err := m.commit(ctx, op, d)
	if err != nil {
		return nil, err
	}
	return newResult(op.id, d, added, removed), nil
}

func (m *Manager) deletionSet(src *storeSource, target rdf.Term, own []rdf.Statement, entity rdf.Term, scope Scope) ([]rdf.Statement, error) {
	subjects := []rdf.Term{target}

	incoming, err := src.incoming(target)
	if err != nil {
		return nil, err
	}
	edges, err := src.edgesTo(target)
	if err != nil {
		return nil, err
	}
	subjects = append(subjects, edges...)

	if scope == ScopeSubgraph {
		frame := objectOf(own, m.vocab.FrameGroup)
		members, err := walk(m.vocab, target, frame, src)
		if err != nil {
			return nil, err
		}
		for _, mem := range members {
			subjects = append(subjects, mem.URI)
		}

		var tagPred string
		switch {
		case kindOf(m.vocab, own) == rdf.ObjectEntity:
			tagPred = m.vocab.EntityGroup
		case frame == target:
			tagPred = m.vocab.FrameGroup
		}
		if tagPred != "" {
			tagged, err := src.subjectsWith(tagPred, target)
			if err != nil {
				return nil, err
			}
			subjects = append(subjects, tagged...)
		}
	}

	stmts, err := src.statementsOf(subjects)
	if err != nil {
		return nil, err
	}
	stmts = m.withoutForeign(stmts, entity)
	return append(stmts, incoming...), nil
}
