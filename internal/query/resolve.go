package query

import (
	"strings"
	"time"

	"github.com/sakif/recordkeeper/internal/apperror"
	"github.com/sakif/recordkeeper/internal/model"
)

// ContainerSelector matches containers by id.
func ContainerSelector(ids []int64) (Predicate, error) {
	if len(ids) == 0 {
		return Predicate{}, apperror.InvalidArgument("no container ids supplied")
	}
	return In(ColID, ids), nil
}

// SubContainerSelector matches every sub-container addressed by any of the
// targets: one IN list per target kind, joined with OR.
func SubContainerSelector(targets []model.SubContainerTarget) (Predicate, error) {
	if len(targets) == 0 {
		return Predicate{}, apperror.InvalidArgument("no sub-container targets supplied")
	}

	var byContainer, bySelf []int64
	for _, t := range targets {
		switch t.Kind {
		case model.SubContainerByContainer:
			byContainer = append(byContainer, t.ID)
		case model.SubContainerBySelf:
			bySelf = append(bySelf, t.ID)
		default:
			return Predicate{}, apperror.InvalidArgument("unknown sub-container target %q", t.Kind)
		}
	}

	return Or(
		In(ColContainerID, byContainer),
		In(ColID, bySelf),
	), nil
}

// LeafSelector matches every leaf addressed by any of the targets.
func LeafSelector(targets []model.LeafTarget) (Predicate, error) {
	if len(targets) == 0 {
		return Predicate{}, apperror.InvalidArgument("no leaf targets supplied")
	}

	var byContainer, bySubContainer, bySelf []int64
	for _, t := range targets {
		switch t.Kind {
		case model.LeafByContainer:
			byContainer = append(byContainer, t.ID)
		case model.LeafBySubContainer:
			bySubContainer = append(bySubContainer, t.ID)
		case model.LeafBySelf:
			bySelf = append(bySelf, t.ID)
		default:
			return Predicate{}, apperror.InvalidArgument("unknown leaf target %q", t.Kind)
		}
	}

	return Or(
		In(ColContainerID, byContainer),
		In(ColSubContainerID, bySubContainer),
		In(ColID, bySelf),
	), nil
}

// Assignment is one `column = value` pair of an UPDATE. A nil Value writes NULL.
type Assignment struct {
	Column string
	Value  any
}

// Update is a resolved update record: the columns to assign and the rows to
// assign them on. With no assignments the record changes nothing.
type Update struct {
	Table       string
	Assignments []Assignment
	Where       Predicate
}

// NoOp reports whether the record supplied no fields.
func (u Update) NoOp() bool {
	return len(u.Assignments) == 0
}

// Statement renders UPDATE ... SET ... WHERE ... RETURNING <returning>.
// It must not be called on a no-op update.
func (u Update) Statement(returning []string) (string, []any) {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(u.Table)
	b.WriteString(" SET ")

	args := make([]any, 0, len(u.Assignments)+len(u.Where.Args))
	for i, a := range u.Assignments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Column)
		b.WriteString(" = ?")
		args = append(args, a.Value)
	}

	b.WriteString(" WHERE ")
	b.WriteString(u.Where.SQL)
	args = append(args, u.Where.Args...)
	writeReturning(&b, returning)
	return b.String(), args
}

// UpdateBuilder accumulates the assignments of one update record.
type UpdateBuilder struct {
	table       string
	assignments []Assignment
}

func NewUpdate(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set assigns value to column unconditionally.
func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.assignments = append(b.assignments, Assignment{Column: column, Value: value})
	return b
}

// Where finishes the builder.
func (b *UpdateBuilder) Where(p Predicate) Update {
	return Update{Table: b.table, Assignments: b.assignments, Where: p}
}

// setOptional assigns the column only when the field was supplied.
func setOptional[T any](b *UpdateBuilder, column string, field model.Optional[T]) {
	if v, ok := field.Get(); ok {
		b.Set(column, v)
	}
}

// setNullable assigns the column when the field was supplied, writing NULL
// when it was supplied as null.
func setNullable[T any](b *UpdateBuilder, column string, field model.Nullable[T], convert func(T) any) {
	if !field.IsSet() {
		return
	}
	if p := field.Ptr(); p != nil {
		b.Set(column, convert(*p))
		return
	}
	b.Set(column, nil)
}

// ResolveContainerUpdate resolves a container update record.
func ResolveContainerUpdate(u model.ContainerUpdate) (Update, error) {
	where, err := ContainerSelector([]int64{u.ID})
	if err != nil {
		return Update{}, err
	}
	b := NewUpdate(TableContainers)
	setOptional(b, ColTitle, u.Title)
	return b.Where(where), nil
}

// ResolveSubContainerUpdate resolves a sub-container update record.
func ResolveSubContainerUpdate(u model.SubContainerUpdate) (Update, error) {
	where, err := SubContainerSelector([]model.SubContainerTarget{u.Target})
	if err != nil {
		return Update{}, err
	}
	b := NewUpdate(TableSubContainers)
	setOptional(b, ColContainerID, u.ContainerID)
	setOptional(b, ColTitle, u.Title)
	return b.Where(where), nil
}

// ResolveLeafUpdate resolves a leaf update record.
func ResolveLeafUpdate(u model.LeafUpdate) (Update, error) {
	where, err := LeafSelector([]model.LeafTarget{u.Target})
	if err != nil {
		return Update{}, err
	}
	b := NewUpdate(TableLeaves)
	setOptional(b, ColContainerID, u.ContainerID)
	setNullable(b, ColSubContainerID, u.SubContainerID, func(id int64) any { return id })
	setOptional(b, ColTitle, u.Title)
	setOptional(b, ColComplete, u.Complete)
	setNullable(b, ColDue, u.Due, func(t time.Time) any { return t.UTC() })
	return b.Where(where), nil
}
