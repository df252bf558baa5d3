package rdf

// DefaultNamespace is the namespace of the structured-object vocabulary.
const DefaultNamespace = "http://vital.ai/ontology/haley-ai-kg#"

// ObjectKind classifies a structured object by its rdf:type.
type ObjectKind int

const (
	ObjectUnknown ObjectKind = iota
	ObjectEntity
	ObjectFrame
	ObjectSlot
	ObjectRelation
	ObjectEdge
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectEntity:
		return "entity"
	case ObjectFrame:
		return "frame"
	case ObjectSlot:
		return "slot"
	case ObjectRelation:
		return "relation"
	case ObjectEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Vocabulary names every IRI the lifecycle manager interprets. All members
// are derived from Namespace by NewVocabulary.
type Vocabulary struct {
	Namespace string

	// Classes
	Entity   string
	Frame    string
	Relation string
	Slots    map[SlotType]string

	// Containment predicates
	HasFrame    string // entity -> frame
	HasSubFrame string // frame -> frame
	HasSlot     string // frame -> slot
	HasRelation string // entity -> relation

	// Edge objects: class -> the containment predicate the edge encodes
	EdgeClasses     map[string]string
	EdgeSource      string
	EdgeDestination string

	// Grouping predicates
	EntityGroup string
	FrameGroup  string

	// Slot value predicates
	SlotValues map[SlotType]string
}

// NewVocabulary derives the vocabulary for namespace ns. An empty ns selects
// DefaultNamespace.
func NewVocabulary(ns string) Vocabulary {
	if ns == "" {
		ns = DefaultNamespace
	}
	v := Vocabulary{
		Namespace: ns,
		Entity:    ns + "KGEntity",
		Frame:     ns + "KGFrame",
		Relation:  ns + "KGRelation",
		Slots: map[SlotType]string{
			SlotText:     ns + "KGTextSlot",
			SlotInteger:  ns + "KGIntegerSlot",
			SlotBoolean:  ns + "KGBooleanSlot",
			SlotDateTime: ns + "KGDateTimeSlot",
			SlotEntity:   ns + "KGEntitySlot",
		},

		HasFrame:    ns + "hasKGFrame",
		HasSubFrame: ns + "hasKGSubFrame",
		HasSlot:     ns + "hasKGSlot",
		HasRelation: ns + "hasKGRelation",

		EdgeSource:      ns + "hasEdgeSource",
		EdgeDestination: ns + "hasEdgeDestination",

		EntityGroup: ns + "hasKGGraphURI",
		FrameGroup:  ns + "hasFrameGraphURI",

		SlotValues: map[SlotType]string{
			SlotText:     ns + "hasTextSlotValue",
			SlotInteger:  ns + "hasIntegerSlotValue",
			SlotBoolean:  ns + "hasBooleanSlotValue",
			SlotDateTime: ns + "hasDateTimeSlotValue",
			SlotEntity:   ns + "hasEntitySlotValue",
		},
	}
	v.EdgeClasses = map[string]string{
		ns + "Edge_hasKGFrame":    v.HasFrame,
		ns + "Edge_hasKGSubFrame": v.HasSubFrame,
		ns + "Edge_hasKGSlot":     v.HasSlot,
		ns + "Edge_hasKGRelation": v.HasRelation,
	}
	return v
}

// KindOfClass maps an rdf:type IRI to an object kind.
func (v Vocabulary) KindOfClass(class string) ObjectKind {
	switch class {
	case v.Entity:
		return ObjectEntity
	case v.Frame:
		return ObjectFrame
	case v.Relation:
		return ObjectRelation
	}
	for _, slot := range v.Slots {
		if slot == class {
			return ObjectSlot
		}
	}
	if _, ok := v.EdgeClasses[class]; ok {
		return ObjectEdge
	}
	return ObjectUnknown
}

// IsContainment reports whether pred is one of the containment predicates.
func (v Vocabulary) IsContainment(pred string) bool {
	switch pred {
	case v.HasFrame, v.HasSubFrame, v.HasSlot, v.HasRelation:
		return true
	}
	return false
}

// IsGrouping reports whether pred is a grouping predicate. Statements with
// these predicates are owned by the lifecycle manager.
func (v Vocabulary) IsGrouping(pred string) bool {
	return pred == v.EntityGroup || pred == v.FrameGroup
}

// LinkPredicate returns the containment predicate connecting a parent of kind
// parent to a child of kind child, or "" if the pair cannot be contained.
func (v Vocabulary) LinkPredicate(parent, child ObjectKind) string {
	switch {
	case parent == ObjectEntity && child == ObjectFrame:
		return v.HasFrame
	case parent == ObjectEntity && child == ObjectRelation:
		return v.HasRelation
	case parent == ObjectFrame && child == ObjectFrame:
		return v.HasSubFrame
	case parent == ObjectFrame && child == ObjectSlot:
		return v.HasSlot
	}
	return ""
}

// ContainedKind returns the object kind a containment predicate points at,
// or ObjectUnknown for any other predicate.
func (v Vocabulary) ContainedKind(pred string) ObjectKind {
	switch pred {
	case v.HasFrame, v.HasSubFrame:
		return ObjectFrame
	case v.HasSlot:
		return ObjectSlot
	case v.HasRelation:
		return ObjectRelation
	}
	return ObjectUnknown
}

// KindsOf returns the object kind of every typed subject in stmts, keyed by
// the subject's term key. The first recognized type wins.
func (v Vocabulary) KindsOf(stmts []Statement) map[string]ObjectKind {
	kinds := make(map[string]ObjectKind)
	for _, s := range stmts {
		if s.Predicate.Value != RDFType || !s.Object.IsIRI() {
			continue
		}
		k := v.KindOfClass(s.Object.Value)
		if k == ObjectUnknown {
			continue
		}
		if _, seen := kinds[s.Subject.Key()]; !seen {
			kinds[s.Subject.Key()] = k
		}
	}
	return kinds
}
