package lifecycle

import (
	"sort"
	"strings"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// Anchor places a write in the containment tree. The zero Anchor is entity
// scope: the target is itself an entity.
type Anchor struct {
	Parent     rdf.Term
	ParentKind rdf.ObjectKind
	// Entity owns the parent; it is the parent when the parent is an entity.
	Entity rdf.Term
	// Frame is the top-level frame the parent sits in, zero when the parent
	// is an entity.
	Frame rdf.Term
}

// IsEntityScope reports whether a has no parent.
func (a Anchor) IsEntityScope() bool { return a.Parent.IsZero() }

// Member is one subject of an object's subgraph.
type Member struct {
	URI  rdf.Term
	Kind rdf.ObjectKind
	// Frame is the member's frame grouping value, zero for entities,
	// relations and anything outside a frame.
	Frame rdf.Term

	// via is the containment predicate the member was reached through, ""
	// for the root and edge objects.
	via string
}

// Grouping is the authoritative grouping of one write.
type Grouping struct {
	Graph   rdf.Term
	Target  rdf.Term
	Entity  rdf.Term
	Members []Member // target first, then breadth-first containment order
	// Link is the parent-to-target containment statement, nil in entity scope
	// or when the payload links the target through an edge object.
	Link *rdf.Statement
	// Desired is the payload without caller grouping statements, plus the
	// computed grouping statements and Link. Canonical and sorted.
	Desired []rdf.Statement
	// Dropped counts discarded caller grouping statements.
	Dropped int
	// Carried counts members the payload links to without describing them.
	// Their stored statements are kept as they are.
	Carried int
}

// TargetFrame returns the frame grouping value of the target.
func (g *Grouping) TargetFrame() rdf.Term {
	if len(g.Members) == 0 {
		return rdf.Term{}
	}
	return g.Members[0].Frame
}

// Subjects returns the member URIs in member order.
func (g *Grouping) Subjects() []rdf.Term {
	out := make([]rdf.Term, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.URI
	}
	return out
}

// ComputeGrouping derives the grouping of payload written at target under
// anchor. It walks containment from the target over both encodings, direct
// containment statements and edge objects, and tags every reachable subject
// with the entity and, inside a frame, the top-level frame.
//
// Every payload subject must be reachable from the target; anything else is
// InvalidStatement. A target whose kind cannot sit under the anchor's parent,
// or a containment link to an object the payload does not describe, is
// InvalidReference. payload is not modified.
func ComputeGrouping(vocab rdf.Vocabulary, graph, target rdf.Term, anchor Anchor, payload []rdf.Statement) (*Grouping, error) {
	return computeGrouping(vocab, graph, target, anchor, payload, nil)
}

// computeGrouping is ComputeGrouping with stored objects: a member the
// payload links to without describing is resolved through stored and must be
// an existing object of the kind its link expects. Its stored statements,
// and those of everything below it, are carried into the desired state.
func computeGrouping(vocab rdf.Vocabulary, graph, target rdf.Term, anchor Anchor, payload []rdf.Statement, stored source) (*Grouping, error) {
	canon, err := rdf.Canonicalize(payload)
	if err != nil {
		return nil, err
	}
	if target, err = target.Canonical(); err != nil {
		return nil, errors.Wrap(err, "target")
	}
	if graph, err = graph.Canonical(); err != nil {
		return nil, errors.Wrap(err, "graph")
	}

	g := &Grouping{Graph: graph, Target: target}
	body := make([]rdf.Statement, 0, len(canon))
	for _, s := range canon {
		if vocab.IsGrouping(s.Predicate.Value) {
			g.Dropped++
			continue
		}
		// The parent link is owned by the manager, like grouping values
		if !anchor.IsEntityScope() && s.Subject == anchor.Parent && s.Object == target &&
			vocab.IsContainment(s.Predicate.Value) {
			continue
		}
		body = append(body, s)
	}
	rdf.SortStatements(body)

	mem := newMemSource(vocab, body)
	if len(mem.bySubject[target.Key()]) == 0 {
		return nil, errors.InvalidStatementf("payload has no statements about target %s", target)
	}
	targetKind := kindOf(vocab, mem.bySubject[target.Key()])

	var rootFrame rdf.Term
	if anchor.IsEntityScope() {
		if targetKind != rdf.ObjectEntity {
			return nil, errors.InvalidStatementf(
				"target %s is a %s; only entities are written without a parent", target, targetKind)
		}
		g.Entity = target
	} else {
		pred := vocab.LinkPredicate(anchor.ParentKind, targetKind)
		if pred == "" {
			return nil, errors.InvalidReferencef("%s %s cannot contain %s %s",
				anchor.ParentKind, anchor.Parent, targetKind, target)
		}
		g.Entity = anchor.Entity
		rootFrame = childFrame(vocab, pred, target, anchor.Frame)
		if !linkedByEdge(vocab, body, anchor.Parent, target) {
			link := rdf.NewStatement(anchor.Parent, rdf.IRI(pred), target, graph)
			g.Link = &link
		}
	}

	members, err := walk(vocab, target, rootFrame, overlaySource{payload: mem, stored: stored})
	if err != nil {
		return nil, err
	}
	g.Members = members

	var carried []rdf.Statement
	reachable := make(map[string]struct{}, len(members))
	for _, m := range members {
		reachable[m.URI.Key()] = struct{}{}
		if len(mem.bySubject[m.URI.Key()]) > 0 {
			continue
		}
		stmts, err := resolveMember(vocab, m, anchor, stored)
		if err != nil {
			return nil, err
		}
		carried = append(carried, stmts...)
		g.Carried++
	}
	var stray []string
	for _, s := range rdf.Subjects(body) {
		if _, ok := reachable[s.Key()]; !ok {
			stray = append(stray, s.String())
		}
	}
	if len(stray) > 0 {
		return nil, errors.InvalidStatementf("payload subjects not reachable from %s: %s",
			target, strings.Join(stray, ", "))
	}

	desired := make([]rdf.Statement, 0, len(body)+len(carried)+2*len(members)+1)
	desired = append(desired, body...)
	desired = append(desired, carried...)
	entityGroup := rdf.IRI(vocab.EntityGroup)
	frameGroup := rdf.IRI(vocab.FrameGroup)
	for _, m := range members {
		desired = append(desired, rdf.NewStatement(m.URI, entityGroup, g.Entity, graph))
		if !m.Frame.IsZero() {
			desired = append(desired, rdf.NewStatement(m.URI, frameGroup, m.Frame, graph))
		}
	}
	if g.Link != nil {
		desired = append(desired, *g.Link)
	}
	rdf.SortStatements(desired)
	g.Desired = desired
	return g, nil
}

// resolveMember returns the stored statements, less grouping statements, of a
// member the payload links to without describing it.
func resolveMember(vocab rdf.Vocabulary, m Member, anchor Anchor, stored source) ([]rdf.Statement, error) {
	if stored == nil {
		return nil, errors.InvalidReferencef("payload links %s but has no statements about it", m.URI)
	}
	if m.URI == anchor.Parent || m.URI == anchor.Entity {
		return nil, errors.InvalidReferencef("%s contains its own parent %s", anchor.Parent, m.URI)
	}
	stmts, err := stored.outgoing(m.URI)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, errors.InvalidReferencef("%s is linked through %s but does not exist", m.URI, m.via)
	}
	if want := vocab.ContainedKind(m.via); want != rdf.ObjectUnknown && m.Kind != want {
		return nil, errors.InvalidReferencef("%s is linked through %s but is a %s, not a %s",
			m.URI, m.via, m.Kind, want)
	}
	out := make([]rdf.Statement, 0, len(stmts))
	for _, s := range stmts {
		if !vocab.IsGrouping(s.Predicate.Value) {
			out = append(out, s)
		}
	}
	return out, nil
}

// childFrame returns the frame grouping value of child reached from a node in
// parentFrame through pred. A frame hung directly off an entity starts its own
// frame group; relations sit outside frames.
func childFrame(vocab rdf.Vocabulary, pred string, child, parentFrame rdf.Term) rdf.Term {
	switch pred {
	case vocab.HasFrame:
		return child
	case vocab.HasRelation:
		return rdf.Term{}
	default:
		return parentFrame
	}
}

// kindOf returns the object kind declared by the rdf:type statements of one
// subject. The smallest recognized kind wins so the result does not depend on
// statement order.
func kindOf(vocab rdf.Vocabulary, stmts []rdf.Statement) rdf.ObjectKind {
	kind := rdf.ObjectUnknown
	for _, s := range stmts {
		if s.Predicate.Value != rdf.RDFType || !s.Object.IsIRI() {
			continue
		}
		k := vocab.KindOfClass(s.Object.Value)
		if k != rdf.ObjectUnknown && (kind == rdf.ObjectUnknown || k < kind) {
			kind = k
		}
	}
	return kind
}

// objectOf returns the object of the first statement with predicate pred.
func objectOf(stmts []rdf.Statement, pred string) rdf.Term {
	for _, s := range stmts {
		if s.Predicate.Value == pred {
			return s.Object
		}
	}
	return rdf.Term{}
}

// edgeInfo reads an edge object: the containment predicate its class encodes
// and its source and destination. pred is "" when stmts do not describe an
// edge object.
func edgeInfo(vocab rdf.Vocabulary, stmts []rdf.Statement) (pred string, source, dest rdf.Term) {
	for _, s := range stmts {
		if s.Predicate.Value != rdf.RDFType || !s.Object.IsIRI() {
			continue
		}
		if p, ok := vocab.EdgeClasses[s.Object.Value]; ok {
			pred = p
			break
		}
	}
	if pred == "" {
		return "", rdf.Term{}, rdf.Term{}
	}
	source = objectOf(stmts, vocab.EdgeSource)
	dest = objectOf(stmts, vocab.EdgeDestination)
	if !source.IsResource() || !dest.IsResource() {
		return "", rdf.Term{}, rdf.Term{}
	}
	return pred, source, dest
}

func linkedByEdge(vocab rdf.Vocabulary, body []rdf.Statement, parent, target rdf.Term) bool {
	src := newMemSource(vocab, body)
	edges, _ := src.edgesTo(target)
	for _, e := range edges {
		if _, source, _ := edgeInfo(vocab, src.bySubject[e.Key()]); source == parent {
			return true
		}
	}
	return false
}

// source is the statement graph a walk runs over.
type source interface {
	// outgoing returns the statements whose subject is node.
	outgoing(node rdf.Term) ([]rdf.Statement, error)
	// edgesFrom returns edge objects whose source is node.
	edgesFrom(node rdf.Term) ([]rdf.Term, error)
	// edgesTo returns edge objects whose destination is node.
	edgesTo(node rdf.Term) ([]rdf.Term, error)
}

// walk visits the containment tree below root breadth-first. Edge objects
// belong to their destination: they share its frame and are found both from
// their source and from their destination.
func walk(vocab rdf.Vocabulary, root, rootFrame rdf.Term, src source) ([]Member, error) {
	index := map[string]int{root.Key(): 0}
	members := []Member{{URI: root, Frame: rootFrame}}
	queue := []rdf.Term{root}

	visit := func(parent, child rdf.Term, pred string) bool {
		if _, seen := index[child.Key()]; seen {
			return false
		}
		frame := childFrame(vocab, pred, child, members[index[parent.Key()]].Frame)
		index[child.Key()] = len(members)
		members = append(members, Member{URI: child, Frame: frame, via: pred})
		queue = append(queue, child)
		return true
	}
	addEdge := func(edge, dest rdf.Term) {
		if _, seen := index[edge.Key()]; seen {
			return
		}
		index[edge.Key()] = len(members)
		members = append(members, Member{URI: edge, Kind: rdf.ObjectEdge, Frame: members[index[dest.Key()]].Frame})
	}

	for i := 0; i < len(queue); i++ {
		node := queue[i]
		out, err := src.outgoing(node)
		if err != nil {
			return nil, err
		}
		members[index[node.Key()]].Kind = kindOf(vocab, out)

		for _, s := range out {
			if vocab.IsContainment(s.Predicate.Value) && s.Object.IsResource() {
				visit(node, s.Object, s.Predicate.Value)
			}
		}

		from, err := src.edgesFrom(node)
		if err != nil {
			return nil, err
		}
		for _, e := range from {
			if _, seen := index[e.Key()]; seen {
				continue
			}
			eout, err := src.outgoing(e)
			if err != nil {
				return nil, err
			}
			pred, source, dest := edgeInfo(vocab, eout)
			if pred == "" || source != node {
				continue
			}
			visit(node, dest, pred)
			addEdge(e, dest)
		}

		to, err := src.edgesTo(node)
		if err != nil {
			return nil, err
		}
		for _, e := range to {
			if _, seen := index[e.Key()]; seen {
				continue
			}
			eout, err := src.outgoing(e)
			if err != nil {
				return nil, err
			}
			if pred, _, dest := edgeInfo(vocab, eout); pred != "" && dest == node {
				addEdge(e, node)
			}
		}
	}
	return members, nil
}

// memSource serves a walk from an in-memory statement set.
type memSource struct {
	bySubject map[string][]rdf.Statement
	from      map[string][]rdf.Term
	to        map[string][]rdf.Term
}

func newMemSource(vocab rdf.Vocabulary, stmts []rdf.Statement) *memSource {
	m := &memSource{
		bySubject: make(map[string][]rdf.Statement),
		from:      make(map[string][]rdf.Term),
		to:        make(map[string][]rdf.Term),
	}
	for _, s := range stmts {
		m.bySubject[s.Subject.Key()] = append(m.bySubject[s.Subject.Key()], s)
		switch s.Predicate.Value {
		case vocab.EdgeSource:
			m.from[s.Object.Key()] = append(m.from[s.Object.Key()], s.Subject)
		case vocab.EdgeDestination:
			m.to[s.Object.Key()] = append(m.to[s.Object.Key()], s.Subject)
		}
	}
	for _, terms := range m.from {
		sortTerms(terms)
	}
	for _, terms := range m.to {
		sortTerms(terms)
	}
	return m
}

func (m *memSource) outgoing(node rdf.Term) ([]rdf.Statement, error) {
	return m.bySubject[node.Key()], nil
}

func (m *memSource) edgesFrom(node rdf.Term) ([]rdf.Term, error) {
	return m.from[node.Key()], nil
}

func (m *memSource) edgesTo(node rdf.Term) ([]rdf.Term, error) {
	return m.to[node.Key()], nil
}

// overlaySource serves a walk from the payload, falling back to stored for
// subjects the payload has no statements about.
type overlaySource struct {
	payload *memSource
	stored  source
}

func (o overlaySource) pick(node rdf.Term) source {
	if o.stored == nil || len(o.payload.bySubject[node.Key()]) > 0 {
		return o.payload
	}
	return o.stored
}

func (o overlaySource) outgoing(node rdf.Term) ([]rdf.Statement, error) {
	return o.pick(node).outgoing(node)
}

func (o overlaySource) edgesFrom(node rdf.Term) ([]rdf.Term, error) {
	return o.pick(node).edgesFrom(node)
}

func (o overlaySource) edgesTo(node rdf.Term) ([]rdf.Term, error) {
	return o.pick(node).edgesTo(node)
}

func sortTerms(terms []rdf.Term) {
	sort.Slice(terms, func(i, j int) bool { return rdf.Compare(terms[i], terms[j]) < 0 })
}
