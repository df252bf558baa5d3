// Package lifecycle writes and deletes structured objects (entities, frames,
// slots, relations and edge objects) as single logical units over the quad
// index.
//
// Every write runs the same steps: validate the request, compute the
// authoritative grouping of the payload, diff it against the stored state of
// the grouping key, snapshot what will be removed, then apply the diff under a
// per-entity lock. A failed apply is rolled back so the stored state is either
// the old or the new one. A rollback that cannot complete is reported as
// Fatal.
package lifecycle

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/kgraph/diff"
	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/logger"
	"github.com/teranos/kgraph/metrics"
	"github.com/teranos/kgraph/rdf"
	"github.com/teranos/kgraph/store"
)

// DefaultBatchSize is the insert batch size used when Options.BatchSize is
// not positive.
const DefaultBatchSize = 500

// Index is the quad storage the manager writes through. *store.QuadIndex
// implements it.
type Index interface {
	InsertStatements(ctx context.Context, stmts []rdf.Statement) (int, error)
	RemoveStatements(ctx context.Context, stmts []rdf.Statement) (int, error)
	Match(ctx context.Context, p store.StatementPattern) ([]rdf.Statement, error)
	SubjectStatements(ctx context.Context, graph rdf.Term, subjects []rdf.Term) ([]rdf.Statement, error)
	HasSubject(ctx context.Context, graph, subject rdf.Term) (bool, error)
}

var _ Index = (*store.QuadIndex)(nil)

// Options configures a Manager.
type Options struct {
	Vocabulary rdf.Vocabulary
	BatchSize  int
	Events     EventRecorder
	Logger     *zap.SugaredLogger
}

// Manager orchestrates structured-object writes. It owns no storage.
type Manager struct {
	index  Index
	vocab  rdf.Vocabulary
	batch  int
	locks  *keyedLocker
	events EventRecorder
	logger *zap.SugaredLogger
}

// NewManager creates a manager writing through index.
func NewManager(index Index, opts Options) *Manager {
	if opts.Vocabulary.Namespace == "" {
		opts.Vocabulary = rdf.NewVocabulary("")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Events == nil {
		opts.Events = nopRecorder{}
	}
	opts.Logger = logger.OrNop(opts.Logger)
	return &Manager{
		index:  index,
		vocab:  opts.Vocabulary,
		batch:  opts.BatchSize,
		locks:  newKeyedLocker(),
		events: opts.Events,
		logger: opts.Logger.Named("lifecycle"),
	}
}

// Vocabulary returns the vocabulary the manager interprets.
func (m *Manager) Vocabulary() rdf.Vocabulary { return m.vocab }

// Create writes a new object. It fails with AlreadyExists when the target
// already has quads.
func (m *Manager) Create(ctx context.Context, req Request) (*Result, error) {
	req.Mode = ModeCreate
	return m.Apply(ctx, req)
}

// Update replaces an existing object. It fails with NotFound when the target
// has no quads.
func (m *Manager) Update(ctx context.Context, req Request) (*Result, error) {
	req.Mode = ModeUpdate
	return m.Apply(ctx, req)
}

// Upsert writes an object whether or not it exists.
func (m *Manager) Upsert(ctx context.Context, req Request) (*Result, error) {
	req.Mode = ModeUpsert
	return m.Apply(ctx, req)
}

// Apply runs a write request. Errors carry a kind obtainable with
// errors.KindOf.
func (m *Manager) Apply(ctx context.Context, req Request) (res *Result, err error) {
	op := operation{id: uuid.NewString(), start: time.Now(), mode: req.Mode.String()}
	log := m.logger.With("op_id", op.id, "mode", op.mode, "target", req.TargetURI, "graph", req.Graph)
	defer func() { m.finish(log, op, res, err) }()

	graph, target, payload, err := m.validate(req)
	if err != nil {
		return nil, err
	}

	anchor, unlock, err := m.lockEntity(ctx, graph, target, req.ParentURI)
	if err != nil {
		return nil, err
	}
	defer unlock()

	src := newStoreSource(ctx, m.index, m.vocab, graph)
	grouping, err := computeGrouping(m.vocab, graph, target, anchor, payload, src)
	if err != nil {
		return nil, err
	}
	if grouping.Dropped > 0 {
		log.Debugw("Discarded caller grouping statements", "count", grouping.Dropped)
	}
	if grouping.Carried > 0 {
		log.Debugw("Kept stored members linked by the payload", "count", grouping.Carried)
	}

	exists, err := m.index.HasSubject(ctx, graph, target)
	if err != nil {
		return nil, err
	}
	switch {
	case req.Mode == ModeCreate && exists:
		return nil, errors.AlreadyExistsf("object %s already exists in %s", target.Value, graph.Value)
	case req.Mode == ModeUpdate && !exists:
		return nil, errors.NotFoundf("object %s does not exist in %s", target.Value, graph.Value)
	}

	if err := m.checkOwnership(src, grouping); err != nil {
		return nil, err
	}
	existing, err := m.existing(src, grouping, anchor)
	if err != nil {
		return nil, err
	}

	d, err := diff.Compute(grouping.Desired, existing)
	if err != nil {
		return nil, err
	}
	op.graph, op.entity, op.target = graph.Value, grouping.Entity.Value, target.Value

	added, removed, err := m.commit(ctx, op, d)
	if err != nil {
		return nil, err
	}
	return newResult(op.id, d, added, removed), nil
}

func (m *Manager) validate(req Request) (graph, target rdf.Term, payload []rdf.Statement, err error) {
	switch req.Mode {
	case ModeCreate, ModeUpdate, ModeUpsert:
	default:
		return graph, target, nil, errors.InvalidStatementf("invalid operation mode %d", req.Mode)
	}
	if err := rdf.ValidateIRI(req.Graph); err != nil {
		return graph, target, nil, errors.Wrap(err, "graph")
	}
	if err := rdf.ValidateIRI(req.TargetURI); err != nil {
		return graph, target, nil, errors.Wrap(err, "target")
	}
	if req.ParentURI != "" {
		if err := rdf.ValidateIRI(req.ParentURI); err != nil {
			return graph, target, nil, errors.WithKind(errors.Wrap(err, "parent"), errors.InvalidReference)
		}
		if req.ParentURI == req.TargetURI {
			return graph, target, nil, errors.InvalidReferencef("object %s cannot be its own parent", req.TargetURI)
		}
	}
	if len(req.Payload) == 0 {
		return graph, target, nil, errors.InvalidStatementf("empty payload for %s", req.TargetURI)
	}

	graph, target = rdf.IRI(req.Graph), rdf.IRI(req.TargetURI)
	payload = make([]rdf.Statement, len(req.Payload))
	for i, s := range req.Payload {
		if s.Graph.IsZero() {
			s.Graph = graph
		} else if c, err := s.Graph.Canonical(); err != nil || c != graph {
			return graph, target, nil, errors.InvalidStatementf(
				"statement %d is in graph %s, not %s", i, s.Graph, graph)
		}
		payload[i] = s
	}
	return graph, target, payload, nil
}

// maxAnchorAttempts bounds how often lockEntity follows a parent that moves
// to another entity while it waits for the lock.
const maxAnchorAttempts = 3

// lockEntity takes the lock of the entity a write lands in and returns the
// write's anchor. In frame scope the parent is resolved again once the lock is
// held, so a parent deleted or moved by a concurrent write is never linked to.
func (m *Manager) lockEntity(ctx context.Context, graph, target rdf.Term, parentURI string) (Anchor, func(), error) {
	if parentURI == "" {
		return Anchor{}, m.locks.Lock(lockKey(graph, target)), nil
	}
	anchor, err := m.resolveAnchor(ctx, graph, parentURI)
	if err != nil {
		return Anchor{}, nil, err
	}
	for attempt := 1; ; attempt++ {
		unlock := m.locks.Lock(lockKey(graph, anchor.Entity))
		current, err := m.resolveAnchor(ctx, graph, parentURI)
		if err != nil {
			unlock()
			return Anchor{}, nil, err
		}
		if current.Entity == anchor.Entity {
			return current, unlock, nil
		}
		unlock()
		if attempt == maxAnchorAttempts {
			return Anchor{}, nil, errors.InvalidReferencef(
				"parent %s kept moving between entities; retry the write", parentURI)
		}
		anchor = current
	}
}

// resolveAnchor reads the parent's kind and grouping values from storage.
func (m *Manager) resolveAnchor(ctx context.Context, graph rdf.Term, parentURI string) (Anchor, error) {
	parent := rdf.IRI(parentURI)
	stmts, err := m.index.SubjectStatements(ctx, graph, []rdf.Term{parent})
	if err != nil {
		return Anchor{}, err
	}
	if len(stmts) == 0 {
		return Anchor{}, errors.InvalidReferencef("parent %s does not exist in %s", parentURI, graph.Value)
	}

	a := Anchor{Parent: parent, ParentKind: kindOf(m.vocab, stmts)}
	switch a.ParentKind {
	case rdf.ObjectEntity:
		a.Entity = parent
	case rdf.ObjectFrame:
		a.Entity = objectOf(stmts, m.vocab.EntityGroup)
		a.Frame = objectOf(stmts, m.vocab.FrameGroup)
		if !a.Entity.IsResource() || !a.Frame.IsResource() {
			return Anchor{}, errors.InvalidReferencef("parent frame %s has no grouping values; audit its entity", parentURI)
		}
	default:
		return Anchor{}, errors.InvalidReferencef("parent %s is a %s, not an entity or frame", parentURI, a.ParentKind)
	}
	return a, nil
}

// existing collects the stored statements the write replaces: everything
// tagged with the grouping key, the live subtree of the target, every payload
// subject, and in frame scope the links into the target.
func (m *Manager) existing(src *storeSource, g *Grouping, anchor Anchor) ([]rdf.Statement, error) {
	subjects := append([]rdf.Term{g.Target}, g.Subjects()...)

	var tagPred string
	var tagValue rdf.Term
	switch {
	case anchor.IsEntityScope():
		tagPred, tagValue = m.vocab.EntityGroup, g.Target
	case g.TargetFrame() == g.Target:
		tagPred, tagValue = m.vocab.FrameGroup, g.Target
	}
	if tagPred != "" {
		tagged, err := src.subjectsWith(tagPred, tagValue)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, tagged...)
	}

	live, err := walk(m.vocab, g.Target, g.TargetFrame(), src)
	if err != nil {
		return nil, err
	}
	for _, mem := range live {
		subjects = append(subjects, mem.URI)
	}

	stmts, err := src.statementsOf(subjects)
	if err != nil {
		return nil, err
	}
	stmts = m.withoutForeign(stmts, g.Entity)
	if !anchor.IsEntityScope() {
		links, err := src.incoming(g.Target)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			if l.Subject == anchor.Parent {
				stmts = append(stmts, l)
			}
		}
	}
	return stmts, nil
}

// withoutForeign drops the statements of subjects tagged with an entity other
// than entity. A stale containment link must not pull another entity's data
// into the set a write replaces.
func (m *Manager) withoutForeign(stmts []rdf.Statement, entity rdf.Term) []rdf.Statement {
	foreign := make(map[string]bool)
	for _, s := range stmts {
		if s.Predicate.Value == m.vocab.EntityGroup && s.Object != entity {
			foreign[s.Subject.Key()] = true
		}
	}
	if len(foreign) == 0 {
		return stmts
	}
	out := stmts[:0:0]
	for _, s := range stmts {
		if !foreign[s.Subject.Key()] {
			out = append(out, s)
		}
	}
	return out
}

// checkOwnership rejects payload members already owned by another entity.
func (m *Manager) checkOwnership(src *storeSource, g *Grouping) error {
	stmts, err := src.statementsOf(g.Subjects())
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if s.Predicate.Value == m.vocab.EntityGroup && s.Object != g.Entity {
			return errors.InvalidReferencef("%s belongs to entity %s, not %s",
				s.Subject.Value, s.Object.Value, g.Entity.Value)
		}
	}
	return nil
}

// Get returns the stored statements of uri: its own statements, or with
// ScopeSubgraph those of everything it contains.
func (m *Manager) Get(ctx context.Context, graph, uri string, scope Scope) ([]rdf.Statement, error) {
	g, target := rdf.IRI(graph), rdf.IRI(uri)
	src := newStoreSource(ctx, m.index, m.vocab, g)
	own, err := src.outgoing(target)
	if err != nil {
		return nil, err
	}
	if len(own) == 0 {
		return nil, errors.NotFoundf("object %s does not exist in %s", uri, graph)
	}
	if scope == ScopeSubjectOnly {
		return own, nil
	}

	members, err := walk(m.vocab, target, objectOf(own, m.vocab.FrameGroup), src)
	if err != nil {
		return nil, err
	}
	subjects := make([]rdf.Term, len(members))
	for i, mem := range members {
		subjects[i] = mem.URI
	}
	stmts, err := src.statementsOf(subjects)
	if err != nil {
		return nil, err
	}
	rdf.SortStatements(stmts)
	return stmts, nil
}

func lockKey(graph, entity rdf.Term) string {
	return graph.Key() + "\x02" + entity.Key()
}

func newResult(opID string, d *diff.Diff, added, removed int) *Result {
	seen := make(map[string]struct{})
	var uris []string
	for _, c := range d.Changes() {
		v := c.Statement.Subject.Value
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uris = append(uris, v)
	}
	sort.Strings(uris)
	if uris == nil {
		uris = []string{}
	}
	return &Result{OperationID: opID, MutatedURIs: uris, Count: len(uris), Added: added, Removed: removed}
}

// operation carries the identity of one write through apply and rollback.
type operation struct {
	id     string
	start  time.Time
	mode   string
	graph  string
	entity string
	target string
}

func (m *Manager) finish(log *zap.SugaredLogger, op operation, res *Result, err error) {
	metrics.ApplyDuration.WithLabelValues(op.mode).Observe(time.Since(op.start).Seconds())
	if err != nil {
		kind := errors.KindOf(err)
		metrics.MutationsTotal.WithLabelValues(op.mode, kind.String()).Inc()
		switch kind {
		case errors.Fatal:
			log.Errorw("Operation failed, rollback incomplete", "kind", kind, "error", err)
		case errors.TransactionFailed, errors.Unavailable, errors.Unknown:
			log.Warnw("Operation failed", "kind", kind, "error", err)
		default:
			log.Debugw("Operation rejected", "kind", kind, "error", err)
		}
		return
	}
	metrics.MutationsTotal.WithLabelValues(op.mode, metrics.OutcomeOK).Inc()
	metrics.StatementsChanged.WithLabelValues("added").Add(float64(res.Added))
	metrics.StatementsChanged.WithLabelValues("removed").Add(float64(res.Removed))
	log.Infow("Operation complete",
		"added", res.Added,
		"removed", res.Removed,
		"count", res.Count,
		"duration_ms", time.Since(op.start).Milliseconds(),
	)
}
