package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/kgraph/diff"
	"github.com/teranos/kgraph/errors"
	kgutil "github.com/teranos/kgraph/internal/util"
	"github.com/teranos/kgraph/metrics"
	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/store"
)

// AuditOptions controls an audit.
type AuditOptions struct {
	// Prune removes orphans and wrong frame tags and adds missing tags.
	Prune bool
}

// AuditReport describes how an entity's stored grouping differs from its live
// containment structure.
type AuditReport struct {
	Entity string `json:"entity"`
	// Orphans are the statements of subjects tagged with the entity but no
	// longer reachable from it.
	Orphans []rdf.Statement `json:"orphans,omitempty"`
	// Mismatched are grouping statements whose value disagrees with the live
	// structure.
	Mismatched []rdf.Statement `json:"mismatched,omitempty"`
	// Missing are grouping statements the live structure requires but storage
	// lacks.
	Missing []rdf.Statement `json:"missing,omitempty"`
	Removed int             `json:"removed"`
	Added   int             `json:"added"`
}

// Clean reports whether the audit found nothing.
func (r *AuditReport) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Mismatched) == 0 && len(r.Missing) == 0
}

// Maintainer detects and repairs data left behind by writers that did not go
// through the lifecycle manager, or by interrupted ones.
type Maintainer struct {
	manager *Manager
	limiter *kgutil.Limiter
	logger  *zap.SugaredLogger
}

// NewMaintainer creates a maintainer sharing the manager's locks. AuditAll
// audits at most entitiesPerSecond entities per second; zero disables the
// limit.
func NewMaintainer(manager *Manager, entitiesPerSecond float64, burst int) *Maintainer {
	return &Maintainer{
		manager: manager,
		limiter: kgutil.NewLimiter(entitiesPerSecond, burst),
		logger:  manager.logger.Named("audit"),
	}
}

// Audit compares the statements tagged with entityURI against the structure
// reachable from it. With Prune the differences are repaired under the entity
// lock, with the same rollback guarantees as a write.
func (mt *Maintainer) Audit(ctx context.Context, graphURI, entityURI string, opts AuditOptions) (*AuditReport, error) {
	m := mt.manager
	if err := rdf.ValidateIRI(graphURI); err != nil {
		return nil, errors.Wrap(err, "graph")
	}
	if err := rdf.ValidateIRI(entityURI); err != nil {
		return nil, errors.Wrap(err, "entity")
	}
	graph, entity := rdf.IRI(graphURI), rdf.IRI(entityURI)

	unlock := m.locks.Lock(lockKey(graph, entity))
	defer unlock()

	src := newStoreSource(ctx, m.index, m.vocab, graph)
	tagged, err := src.subjectsWith(m.vocab.EntityGroup, entity)
	if err != nil {
		return nil, err
	}
	own, err := src.outgoing(entity)
	if err != nil {
		return nil, err
	}
	if len(own) == 0 && len(tagged) == 0 {
		return nil, errors.NotFoundf("entity %s does not exist in %s", entityURI, graphURI)
	}

	report := &AuditReport{Entity: entityURI}
	live := make(map[string]Member)
	if len(own) > 0 {
		members, err := walk(m.vocab, entity, rdf.Term{}, src)
		if err != nil {
			return nil, err
		}
		for _, mem := range members {
			live[mem.URI.Key()] = mem
		}
	}

	// Orphans: tagged, unreachable
	for _, subj := range tagged {
		if _, ok := live[subj.Key()]; ok {
			continue
		}
		stmts, err := src.outgoing(subj)
		if err != nil {
			return nil, err
		}
		report.Orphans = append(report.Orphans, stmts...)
	}

	// Tags of live members
	entityGroup, frameGroup := rdf.IRI(m.vocab.EntityGroup), rdf.IRI(m.vocab.FrameGroup)
	for _, mem := range sortedMembers(live) {
		stmts, err := src.outgoing(mem.URI)
		if err != nil {
			return nil, err
		}
		if len(stmts) == 0 {
			// Dangling containment target, nothing to tag
			continue
		}
		if owner := objectOf(stmts, m.vocab.EntityGroup); owner.IsResource() && owner != entity && mem.URI != entity {
			if !hasObject(stmts, m.vocab.EntityGroup, entity) {
				// Owned by another entity
				continue
			}
		}
		var haveEntity, haveFrame bool
		for _, s := range stmts {
			switch s.Predicate.Value {
			case m.vocab.EntityGroup:
				if s.Object == entity {
					haveEntity = true
				} else {
					report.Mismatched = append(report.Mismatched, s)
				}
			case m.vocab.FrameGroup:
				if s.Object == mem.Frame {
					haveFrame = true
				} else {
					report.Mismatched = append(report.Mismatched, s)
				}
			}
		}
		if !haveEntity {
			report.Missing = append(report.Missing, rdf.NewStatement(mem.URI, entityGroup, entity, graph))
		}
		if !haveFrame && !mem.Frame.IsZero() {
			report.Missing = append(report.Missing, rdf.NewStatement(mem.URI, frameGroup, mem.Frame, graph))
		}
	}

	found := len(report.Orphans) + len(report.Mismatched) + len(report.Missing)
	metrics.OrphansFound.Add(float64(found))
	log := mt.logger.With("entity", entityURI, "graph", graphURI)
	if found > 0 {
		log.Infow("Audit found drift",
			"orphans", len(report.Orphans),
			"mismatched", len(report.Mismatched),
			"missing", len(report.Missing),
		)
	}
	if !opts.Prune || found == 0 {
		return report, nil
	}

	d, err := diff.Compute(report.Missing, append(append([]rdf.Statement(nil), report.Orphans...), report.Mismatched...))
	if err != nil {
		return nil, err
	}
	op := operation{id: uuid.NewString(), start: time.Now(), mode: "audit",
		graph: graphURI, entity: entityURI, target: entityURI}
	report.Added, report.Removed, err = m.commit(ctx, op, d)
	if err != nil {
		return nil, err
	}

	metrics.OrphansPruned.Add(float64(report.Removed))
	m.events.Record(ctx, Event{
		Type:        EventAuditPrune,
		OperationID: op.id,
		Graph:       graphURI,
		Entity:      entityURI,
		Target:      entityURI,
		Count:       report.Removed + report.Added,
	})
	log.Infow("Audit repaired entity", "removed", report.Removed, "added", report.Added)
	return report, nil
}

// AuditAll audits every entity with at least one grouping statement in the
// graph, in URI order, rate-limited. It stops at the first error.
func (mt *Maintainer) AuditAll(ctx context.Context, graphURI string, opts AuditOptions) ([]*AuditReport, error) {
	entities, err := mt.Entities(ctx, graphURI)
	if err != nil {
		return nil, err
	}

	reports := make([]*AuditReport, 0, len(entities))
	for _, e := range entities {
		if err := mt.limiter.Wait(ctx, 1); err != nil {
			return reports, errors.Wrap(err, "audit interrupted")
		}
		r, err := mt.Audit(ctx, graphURI, e, opts)
		if err != nil {
			return reports, errors.Wrapf(err, "audit %s", e)
		}
		reports = append(reports, r)
	}
	mt.logger.Infow("Audited graph", "graph", graphURI, "entities", len(entities))
	return reports, nil
}

// Entities lists the distinct entity grouping values in the graph.
func (mt *Maintainer) Entities(ctx context.Context, graphURI string) ([]string, error) {
	m := mt.manager
	if err := rdf.ValidateIRI(graphURI); err != nil {
		return nil, errors.Wrap(err, "graph")
	}
	stmts, err := m.index.Match(ctx, store.StatementPattern{
		Predicate: rdf.IRI(m.vocab.EntityGroup),
		Graph:     rdf.IRI(graphURI),
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var objects []rdf.Term
	for _, s := range stmts {
		if !s.Object.IsIRI() {
			continue
		}
		if _, ok := seen[s.Object.Value]; ok {
			continue
		}
		seen[s.Object.Value] = struct{}{}
		objects = append(objects, s.Object)
	}
	sortTerms(objects)
	out := make([]string, len(objects))
	for i, o := range objects {
		out[i] = o.Value
	}
	return out, nil
}

func sortedMembers(live map[string]Member) []Member {
	out := make([]Member, 0, len(live))
	for _, m := range live {
		out = append(out, m)
	}
	sortMembers(out)
	return out
}

func sortMembers(members []Member) {
	terms := make([]rdf.Term, len(members))
	byKey := make(map[string]Member, len(members))
	for i, m := range members {
		terms[i] = m.URI
		byKey[m.URI.Key()] = m
	}
	sortTerms(terms)
	for i, t := range terms {
		members[i] = byKey[t.Key()]
	}
}

func hasObject(stmts []rdf.Statement, pred string, object rdf.Term) bool {
	for _, s := range stmts {
		if s.Predicate.Value == pred && s.Object == object {
			return true
		}
	}
	return false
}
