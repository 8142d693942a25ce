// Package query turns targets and update records into parameterised SQL.
//
// Nothing here touches a database. Every value a caller supplies travels as
// a bind argument and never as SQL text. Statements are rendered with `?`
// placeholders; Rebind converts them for drivers that number their
// parameters.
package query

import (
	"slices"
	"strconv"
	"strings"
)

// Table and column names of the record schema.
const (
	TableContainers    = "containers"
	TableSubContainers = "sub_containers"
	TableLeaves        = "leaves"

	ColID             = "id"
	ColContainerID    = "container_id"
	ColSubContainerID = "sub_container_id"
	ColTitle          = "title"
	ColComplete       = "complete"
	ColDue            = "due"
)

// Column lists in the order the store scans them.
var (
	ContainerColumns    = []string{ColID, ColTitle}
	SubContainerColumns = []string{ColID, ColContainerID, ColTitle}
	LeafColumns         = []string{ColID, ColSubContainerID, ColContainerID, ColTitle, ColComplete, ColDue}
)

// Predicate is a boolean SQL expression and its bind arguments.
// The zero value matches nothing and renders no clause.
type Predicate struct {
	SQL  string
	Args []any
}

// Empty reports whether the predicate has no clause.
func (p Predicate) Empty() bool {
	return p.SQL == ""
}

// In matches rows whose column equals any of ids. Duplicates are dropped and
// the ids are bound in ascending order. No ids yields the empty predicate.
func In(column string, ids []int64) Predicate {
	if len(ids) == 0 {
		return Predicate{}
	}
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	args := make([]any, len(unique))
	for i, id := range unique {
		args[i] = id
	}
	return Predicate{
		SQL:  column + " IN (" + placeholders(len(unique)) + ")",
		Args: args,
	}
}

// Or joins the non-empty predicates with OR.
func Or(preds ...Predicate) Predicate {
	var (
		parts []string
		args  []any
		last  Predicate
	)
	for _, p := range preds {
		if p.Empty() {
			continue
		}
		parts = append(parts, "("+p.SQL+")")
		args = append(args, p.Args...)
		last = p
	}
	switch len(parts) {
	case 0:
		return Predicate{}
	case 1:
		return last
	}
	return Predicate{SQL: strings.Join(parts, " OR "), Args: args}
}

// Select renders SELECT <columns> FROM <table> [WHERE <where>] ORDER BY id.
func Select(table string, columns []string, where Predicate) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	if !where.Empty() {
		b.WriteString(" WHERE ")
		b.WriteString(where.SQL)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(ColID)
	return b.String(), where.Args
}

// Insert renders a single-row INSERT with a RETURNING clause.
func Insert(table string, columns []string, values []any, returning []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(len(values)))
	b.WriteString(")")
	writeReturning(&b, returning)
	return b.String(), values
}

// Delete renders DELETE FROM <table> WHERE <where> RETURNING <returning>.
// The caller must not pass an empty predicate.
func Delete(table string, where Predicate, returning []string) (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	b.WriteString(where.SQL)
	writeReturning(&b, returning)
	return b.String(), where.Args
}

// Dialect selects how placeholders are written.
type Dialect int

const (
	// QuestionMark keeps `?` placeholders (SQLite, MySQL).
	QuestionMark Dialect = iota
	// Dollar numbers placeholders as $1, $2, ... (Postgres).
	Dollar
)

// Rebind rewrites the `?` placeholders of a statement built by this package
// for the given dialect. Statements built here never contain `?` inside
// literals, so a plain scan is enough.
func Rebind(d Dialect, stmt string) string {
	if d != Dollar || !strings.Contains(stmt, "?") {
		return stmt
	}
	var b strings.Builder
	b.Grow(len(stmt) + 8)
	n := 0
	for i := 0; i < len(stmt); i++ {
		if stmt[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(stmt[i])
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func writeReturning(b *strings.Builder, returning []string) {
	if len(returning) == 0 {
		return
	}
	b.WriteString(" RETURNING ")
	b.WriteString(strings.Join(returning, ", "))
}
