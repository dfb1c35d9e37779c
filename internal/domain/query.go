package domain

import (
	"fmt"
	"strings"
)

// Operator is a comparison used in a query condition
type Operator string

const (
	OpEq   Operator = "="
	OpLike Operator = "LIKE"
)

// Condition filters rows on a single column. Column may be the database
// column name, the Go field name or the JSON name.
//
// Escaped LIKE conditions treat backslash as the escape character, so a
// literal % or _ in Value matches only itself.
type Condition struct {
	Column  string
	Op      Operator
	Value   interface{}
	Escaped bool
}

// Eq matches rows whose column equals value
func Eq(column string, value interface{}) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

// Like matches rows against a raw SQL LIKE pattern. Case sensitivity
// follows the store: SQLite folds ASCII case, Postgres does not.
func Like(column, pattern string) Condition {
	return Condition{Column: column, Op: OpLike, Value: pattern}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike quotes the LIKE wildcards in s
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// StartsWith matches rows whose column begins with prefix
func StartsWith(column, prefix string) Condition {
	return Condition{Column: column, Op: OpLike, Value: EscapeLike(prefix) + "%", Escaped: true}
}

// Contains matches rows whose column contains substr
func Contains(column, substr string) Condition {
	return Condition{Column: column, Op: OpLike, Value: "%" + EscapeLike(substr) + "%", Escaped: true}
}

// OrderBy sorts on one column
type OrderBy struct {
	Column string
	Desc   bool
}

// Asc sorts ascending
func Asc(column string) OrderBy {
	return OrderBy{Column: column}
}

// Desc sorts descending
func Desc(column string) OrderBy {
	return OrderBy{Column: column, Desc: true}
}

// Include asks for a relation, or a dotted chain of relations, to be
// loaded together with the result. Order applies to the last link.
type Include struct {
	Path  string
	Order []OrderBy
}

// Query holds the filter, eager-load and ordering options of a lookup.
// Without an explicit order rows come back by ascending key.
type Query struct {
	Where   []Condition
	Include []Include
	Order   []OrderBy
	Limit   int
	Offset  int
}

// Where starts a query with the given conditions
func Where(conds ...Condition) Query {
	return Query{Where: conds}
}

// With returns a copy of the query that eager-loads the relation path
func (q Query) With(path string, order ...OrderBy) Query {
	q.Include = append(append([]Include(nil), q.Include...), Include{Path: path, Order: order})
	return q
}

// OrderBy returns a copy of the query sorted by the given clauses
func (q Query) OrderBy(order ...OrderBy) Query {
	q.Order = append(append([]OrderBy(nil), q.Order...), order...)
	return q
}

// Paginate returns a copy of the query restricted to one page
func (q Query) Paginate(limit, offset int) Query {
	q.Limit = limit
	q.Offset = offset
	return q
}

// String renders the filter part of the query for error messages
func (q Query) String() string {
	parts := make([]string, 0, len(q.Where))
	for _, c := range q.Where {
		parts = append(parts, fmt.Sprintf("%s %s %v", c.Column, c.Op, c.Value))
	}
	return strings.Join(parts, " AND ")
}
