package store

import (
	"strings"

	"github.com/teranos/kgraph/db"
	"github.com/teranos/kgraph/rdf"
)

// queryBuilder accumulates SQL WHERE clauses, parameters and the term joins
// the clauses need.
type queryBuilder struct {
	whereClauses []string
	args         []interface{}
	joins        [3]bool // subject, predicate, object term joins
}

// addClause appends a WHERE clause with its arguments
func (qb *queryBuilder) addClause(clause string, args ...interface{}) {
	qb.whereClauses = append(qb.whereClauses, clause)
	qb.args = append(qb.args, args...)
}

// addCondition renders c and appends it as one WHERE clause.
func (qb *queryBuilder) addCondition(c condition) {
	if c == nil {
		return
	}
	var args []interface{}
	clause := c.render(qb, &args)
	if clause == "" {
		return
	}
	qb.addClause(clause, args...)
}

// build returns the WHERE clauses joined with AND
func (qb *queryBuilder) build() string {
	return strings.Join(qb.whereClauses, " AND ")
}

// where returns " WHERE ..." or "" when there are no clauses.
func (qb *queryBuilder) where() string {
	if len(qb.whereClauses) == 0 {
		return ""
	}
	return " WHERE " + qb.build()
}

// from returns the FROM clause with the term joins the conditions asked for.
func (qb *queryBuilder) from() string {
	var b strings.Builder
	b.WriteString(" FROM quads q")
	for i, alias := range termAliases {
		if qb.joins[i] {
			b.WriteString(" JOIN terms " + alias.name + " ON " + alias.name + ".id = q." + alias.column)
		}
	}
	return b.String()
}

// Position names a statement position a condition can look at.
type Position int

const (
	PositionSubject Position = iota
	PositionPredicate
	PositionObject
)

var termAliases = [3]struct {
	name   string
	column string
}{
	{"s", "subject_id"},
	{"p", "predicate_id"},
	{"o", "object_id"},
}

// condition is a node of a WHERE expression tree. render writes the SQL for
// the node, appends its parameters, and registers any term join it reads.
type condition interface {
	render(qb *queryBuilder, args *[]interface{}) string
}

// allOf holds when every child holds. An empty allOf is omitted.
type allOf []condition

func (c allOf) render(qb *queryBuilder, args *[]interface{}) string {
	return renderJoined(c, " AND ", qb, args)
}

// anyOf holds when at least one child holds. An empty anyOf is omitted.
type anyOf []condition

func (c anyOf) render(qb *queryBuilder, args *[]interface{}) string {
	return renderJoined(c, " OR ", qb, args)
}

func renderJoined(children []condition, sep string, qb *queryBuilder, args *[]interface{}) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		if s := child.render(qb, args); s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, sep) + ")"
	}
}

// containsFold holds when the lexical form at pos contains needle, ignoring
// case. Both sides are compared in Unicode case-folded form.
type containsFold struct {
	pos    Position
	needle string
}

func (c containsFold) render(qb *queryBuilder, args *[]interface{}) string {
	qb.joins[c.pos] = true
	*args = append(*args, "%"+escapeLikePattern(db.Fold(c.needle))+"%")
	return db.FoldFunc + "(" + termAliases[c.pos].name + ".lexical) LIKE ? ESCAPE '\\'"
}

// keyEquals holds when the term key at pos equals key. No join is needed.
type keyEquals struct {
	pos Position
	key Key
}

func (c keyEquals) render(qb *queryBuilder, args *[]interface{}) string {
	*args = append(*args, int64(c.key))
	return "q." + termAliases[c.pos].column + " = ?"
}

// literalLexical holds when the term at pos is a literal with exactly this
// lexical form, whatever its datatype or language.
type literalLexical struct {
	pos     Position
	lexical string
}

func (c literalLexical) render(qb *queryBuilder, args *[]interface{}) string {
	*args = append(*args, int(rdf.KindLiteral), c.lexical)
	return "q." + termAliases[c.pos].column + " IN (SELECT id FROM terms WHERE kind = ? AND lexical = ?)"
}

// keywordsCondition builds the free-text condition: every keyword must occur
// in the subject, predicate or object lexical form.
func keywordsCondition(text string) condition {
	keywords := strings.Fields(text)
	if len(keywords) == 0 {
		return nil
	}
	all := make(allOf, 0, len(keywords))
	for _, kw := range keywords {
		all = append(all, anyOf{
			containsFold{PositionSubject, kw},
			containsFold{PositionPredicate, kw},
			containsFold{PositionObject, kw},
		})
	}
	return all
}

// escapeLikePattern escapes special characters in LIKE patterns for SQL ESCAPE clause
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
