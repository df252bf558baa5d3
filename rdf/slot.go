package rdf

import (
	"strconv"
	"time"

	"github.com/teranos/kgraph/errors"
)

// SlotType tags the SlotValue union.
type SlotType int

const (
	SlotText SlotType = iota + 1
	SlotInteger
	SlotBoolean
	SlotDateTime
	SlotEntity
)

func (t SlotType) String() string {
	switch t {
	case SlotText:
		return "text"
	case SlotInteger:
		return "integer"
	case SlotBoolean:
		return "boolean"
	case SlotDateTime:
		return "datetime"
	case SlotEntity:
		return "entity"
	default:
		return "slot(" + strconv.Itoa(int(t)) + ")"
	}
}

// SlotValue is the value of a typed slot. Exactly the field matching Type is
// meaningful.
type SlotValue struct {
	Type     SlotType
	Text     string
	Integer  int64
	Boolean  bool
	DateTime time.Time
	Entity   string
}

// TextValue builds a text slot value.
func TextValue(s string) SlotValue { return SlotValue{Type: SlotText, Text: s} }

// IntegerValue builds an integer slot value.
func IntegerValue(n int64) SlotValue { return SlotValue{Type: SlotInteger, Integer: n} }

// BooleanValue builds a boolean slot value.
func BooleanValue(b bool) SlotValue { return SlotValue{Type: SlotBoolean, Boolean: b} }

// DateTimeValue builds a datetime slot value.
func DateTimeValue(ts time.Time) SlotValue { return SlotValue{Type: SlotDateTime, DateTime: ts} }

// EntityValue builds an entity-reference slot value.
func EntityValue(uri string) SlotValue { return SlotValue{Type: SlotEntity, Entity: uri} }

// Term converts v to its RDF term. Text values become xsd:string literals so
// that they survive a round trip with their datatype intact.
func (v SlotValue) Term() (Term, error) {
	switch v.Type {
	case SlotText:
		return TypedLiteral(v.Text, XSDString), nil
	case SlotInteger:
		return TypedLiteral(strconv.FormatInt(v.Integer, 10), XSDInteger), nil
	case SlotBoolean:
		return TypedLiteral(strconv.FormatBool(v.Boolean), XSDBoolean), nil
	case SlotDateTime:
		return TypedLiteral(FormatDateTime(v.DateTime), XSDDateTime), nil
	case SlotEntity:
		if err := ValidateIRI(v.Entity); err != nil {
			return Term{}, err
		}
		return IRI(v.Entity), nil
	default:
		return Term{}, errors.InvalidStatementf("unknown slot type %d", v.Type)
	}
}

// Statement builds the value statement of slot in graph using vocabulary v.
func (v SlotValue) Statement(vocab Vocabulary, slot, graph Term) (Statement, error) {
	pred, ok := vocab.SlotValues[v.Type]
	if !ok {
		return Statement{}, errors.InvalidStatementf("no value predicate for slot type %s", v.Type)
	}
	obj, err := v.Term()
	if err != nil {
		return Statement{}, err
	}
	return NewStatement(slot, IRI(pred), obj, graph), nil
}

// SlotValueFromStatement decodes a slot value statement. It fails with
// InvalidStatement when the predicate is not a slot value predicate or the
// object does not fit the slot type.
func SlotValueFromStatement(vocab Vocabulary, s Statement) (SlotValue, error) {
	var typ SlotType
	for t, pred := range vocab.SlotValues {
		if pred == s.Predicate.Value {
			typ = t
			break
		}
	}
	if typ == 0 {
		return SlotValue{}, errors.InvalidStatementf("%s is not a slot value predicate", s.Predicate)
	}

	o := s.Object
	if typ == SlotEntity {
		if !o.IsIRI() {
			return SlotValue{}, errors.InvalidStatementf("entity slot value %s is not an IRI", o)
		}
		return EntityValue(o.Value), nil
	}
	if !o.IsLiteral() {
		return SlotValue{}, errors.InvalidStatementf("slot value %s is not a literal", o)
	}

	switch typ {
	case SlotText:
		return TextValue(o.Value), nil
	case SlotInteger:
		n, err := strconv.ParseInt(o.Value, 10, 64)
		if err != nil {
			return SlotValue{}, errors.InvalidStatementf("integer slot value %q: %v", o.Value, err)
		}
		return IntegerValue(n), nil
	case SlotBoolean:
		switch o.Value {
		case "true", "1":
			return BooleanValue(true), nil
		case "false", "0":
			return BooleanValue(false), nil
		}
		return SlotValue{}, errors.InvalidStatementf("boolean slot value %q", o.Value)
	case SlotDateTime:
		ts, err := ParseDateTime(o.Value)
		if err != nil {
			return SlotValue{}, err
		}
		return DateTimeValue(ts), nil
	}
	return SlotValue{}, errors.InvalidStatementf("unknown slot type %d", typ)
}
