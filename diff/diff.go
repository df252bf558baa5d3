// Package diff computes statement-level differences between the desired and
// the stored state of a structured object.
//
// Equality is term equality after canonicalization: a typed literal and a
// plain literal with the same lexical form are different statements, and so
// are two literals that differ only in language.
package diff

import (
	"fmt"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// ChangeType says whether a change adds or deletes a statement.
type ChangeType int

const (
	Addition ChangeType = iota
	Deletion
)

func (t ChangeType) String() string {
	if t == Deletion {
		return "deletion"
	}
	return "addition"
}

// Change is one statement-level edit.
type Change struct {
	Statement rdf.Statement `json:"statement"`
	Type      ChangeType    `json:"type"`
}

// Diff holds the edits turning existing into desired. Both slices are
// canonical, duplicate-free and sorted.
type Diff struct {
	ToAdd    []rdf.Statement `json:"to_add"`
	ToRemove []rdf.Statement `json:"to_remove"`
}

// Compute returns desired − existing as ToAdd and existing − desired as
// ToRemove. Any invalid desired statement fails with InvalidStatement.
func Compute(desired, existing []rdf.Statement) (*Diff, error) {
	want, err := rdf.Canonicalize(desired)
	if err != nil {
		return nil, err
	}
	have, err := rdf.Canonicalize(existing)
	if err != nil {
		return nil, errors.Wrap(err, "existing statements")
	}

	haveSet := keySet(have)
	wantSet := keySet(want)

	d := &Diff{}
	for _, s := range want {
		if _, ok := haveSet[s.Key()]; !ok {
			d.ToAdd = append(d.ToAdd, s)
		}
	}
	for _, s := range have {
		if _, ok := wantSet[s.Key()]; !ok {
			d.ToRemove = append(d.ToRemove, s)
		}
	}
	rdf.SortStatements(d.ToAdd)
	rdf.SortStatements(d.ToRemove)
	return d, nil
}

func keySet(stmts []rdf.Statement) map[string]struct{} {
	set := make(map[string]struct{}, len(stmts))
	for _, s := range stmts {
		set[s.Key()] = struct{}{}
	}
	return set
}

// Empty reports whether d changes nothing.
func (d *Diff) Empty() bool {
	return d == nil || (len(d.ToAdd) == 0 && len(d.ToRemove) == 0)
}

// Changes lists deletions, then additions, each in statement order. This is
// the order in which they are applied.
func (d *Diff) Changes() []Change {
	if d == nil {
		return nil
	}
	out := make([]Change, 0, len(d.ToAdd)+len(d.ToRemove))
	for _, s := range d.ToRemove {
		out = append(out, Change{Statement: s, Type: Deletion})
	}
	for _, s := range d.ToAdd {
		out = append(out, Change{Statement: s, Type: Addition})
	}
	return out
}

func (d *Diff) String() string {
	if d == nil {
		return "+0 -0"
	}
	return fmt.Sprintf("+%d -%d", len(d.ToAdd), len(d.ToRemove))
}

// Apply returns existing − ToRemove + ToAdd, canonical and sorted. It does not
// touch storage.
func Apply(existing []rdf.Statement, d *Diff) ([]rdf.Statement, error) {
	have, err := rdf.Canonicalize(existing)
	if err != nil {
		return nil, err
	}
	if d.Empty() {
		rdf.SortStatements(have)
		return have, nil
	}

	removed := keySet(d.ToRemove)
	out := make([]rdf.Statement, 0, len(have)+len(d.ToAdd))
	seen := make(map[string]struct{}, len(have)+len(d.ToAdd))
	for _, s := range have {
		if _, gone := removed[s.Key()]; gone {
			continue
		}
		seen[s.Key()] = struct{}{}
		out = append(out, s)
	}
	for _, s := range d.ToAdd {
		if _, dup := seen[s.Key()]; dup {
			continue
		}
		seen[s.Key()] = struct{}{}
		out = append(out, s)
	}
	rdf.SortStatements(out)
	return out, nil
}

// Equal reports whether a and b hold the same statements, ignoring order and
// duplicates.
func Equal(a, b []rdf.Statement) (bool, error) {
	d, err := Compute(a, b)
	if err != nil {
		return false, err
	}
	return d.Empty(), nil
}
