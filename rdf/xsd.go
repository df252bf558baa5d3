package rdf

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/kgraph/errors"
)

// Well-known vocabulary IRIs.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFType       = RDFNamespace + "type"
	RDFLangString = RDFNamespace + "langString"

	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	XSDString    = XSDNamespace + "string"
	XSDBoolean   = XSDNamespace + "boolean"
	XSDInteger   = XSDNamespace + "integer"
	XSDLong      = XSDNamespace + "long"
	XSDInt       = XSDNamespace + "int"
	XSDDecimal   = XSDNamespace + "decimal"
	XSDDouble    = XSDNamespace + "double"
	XSDFloat     = XSDNamespace + "float"
	XSDDateTime  = XSDNamespace + "dateTime"
	XSDDate      = XSDNamespace + "date"
	XSDAnyURI    = XSDNamespace + "anyURI"
)

// dateTimeLayouts accepts xsd:dateTime with and without fractional seconds and
// with and without a timezone.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// validateLexical checks the lexical form of the XSD datatypes the store
// understands. Other datatypes are accepted as opaque.
func validateLexical(lexical, datatype string) error {
	var ok bool
	switch datatype {
	case XSDInteger:
		_, ok = new(big.Int).SetString(strings.TrimPrefix(lexical, "+"), 10)
	case XSDLong:
		_, err := strconv.ParseInt(lexical, 10, 64)
		ok = err == nil
	case XSDInt:
		_, err := strconv.ParseInt(lexical, 10, 32)
		ok = err == nil
	case XSDBoolean:
		switch lexical {
		case "true", "false", "1", "0":
			ok = true
		}
	case XSDDecimal:
		ok = validDecimal(lexical)
	case XSDDouble, XSDFloat:
		switch lexical {
		case "INF", "-INF", "+INF", "NaN":
			ok = true
		default:
			_, err := strconv.ParseFloat(lexical, 64)
			ok = err == nil && !strings.ContainsAny(lexical, "xXpP_")
		}
	case XSDDateTime:
		_, err := ParseDateTime(lexical)
		ok = err == nil
	case XSDDate:
		_, err := time.Parse("2006-01-02", strings.TrimSuffix(lexical, "Z"))
		ok = err == nil
	default:
		return nil
	}
	if !ok {
		return errors.InvalidStatementf("malformed lexical form %q for datatype %s", lexical, datatype)
	}
	return nil
}

func validDecimal(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if s == "" || s == "." {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r == '.':
			if dot {
				return false
			}
			dot = true
		case r < '0' || r > '9':
			return false
		}
	}
	return true
}

// ParseDateTime parses an xsd:dateTime lexical form.
func ParseDateTime(lexical string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, lexical); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.InvalidStatementf("malformed xsd:dateTime %q", lexical)
}

// FormatDateTime renders ts as an xsd:dateTime lexical form, preserving the
// location offset.
func FormatDateTime(ts time.Time) string {
	return ts.Format(time.RFC3339Nano)
}
