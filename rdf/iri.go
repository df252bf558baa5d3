package rdf

import (
	"net/url"
	"strings"

	"github.com/teranos/kgraph/errors"
)

// Characters RFC 3987 excludes from IRIs.
const iriForbidden = " <>\"{}|\\^`\t\r\n"

// ValidateIRI checks that s is an absolute IRI: a valid scheme followed by a
// non-empty remainder with no forbidden characters.
func ValidateIRI(s string) error {
	if s == "" {
		return errors.InvalidStatementf("empty IRI")
	}
	if strings.ContainsAny(s, iriForbidden) {
		return errors.InvalidStatementf("IRI %q contains forbidden characters", s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.InvalidStatementf("IRI %q does not parse: %v", s, err)
	}
	if u.Scheme == "" {
		return errors.InvalidStatementf("IRI %q is not absolute", s)
	}
	if u.Opaque == "" && u.Host == "" && u.Path == "" {
		return errors.InvalidStatementf("IRI %q has an empty body", s)
	}
	return nil
}

// LooksLikeIRI is the object-filter heuristic: a string is treated as an IRI
// when it passes ValidateIRI. Literals such as "mailto:x" or "a:b" are
// indistinguishable from IRIs by syntax alone; callers who need exactness
// pass a typed term instead.
func LooksLikeIRI(s string) bool {
	return ValidateIRI(s) == nil
}
