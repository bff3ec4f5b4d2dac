package sqlite

import (
	"strings"
)

// selectBuilder accumulates the parts of a SELECT along with the arguments
// each predicate binds. Optional filters become present or absent
// predicates; the statement text is only assembled by SQL.
type selectBuilder struct {
	columns  string
	from     string
	distinct bool
	joins    []string
	joinArgs []any
	where    []string
	args     []any
	orderBy  string
	limit    int
}

func newSelect(columns, from string) *selectBuilder {
	return &selectBuilder{columns: columns, from: from}
}

// Distinct makes the statement SELECT DISTINCT.
func (b *selectBuilder) Distinct() *selectBuilder {
	b.distinct = true
	return b
}

// Join appends a JOIN clause and the arguments its placeholders bind.
func (b *selectBuilder) Join(clause string, args ...any) *selectBuilder {
	b.joins = append(b.joins, clause)
	b.joinArgs = append(b.joinArgs, args...)
	return b
}

// Where adds a predicate and its arguments.
func (b *selectBuilder) Where(pred string, args ...any) *selectBuilder {
	b.where = append(b.where, pred)
	b.args = append(b.args, args...)
	return b
}

// whereOpt adds pred bound to *v when v is non-nil.
func whereOpt[T any](b *selectBuilder, pred string, v *T) *selectBuilder {
	if v == nil {
		return b
	}
	return b.Where(pred, *v)
}

// OrderBy sets the ORDER BY expression.
func (b *selectBuilder) OrderBy(expr string) *selectBuilder {
	b.orderBy = expr
	return b
}

// Limit sets a positive row limit; zero means none.
func (b *selectBuilder) Limit(n int) *selectBuilder {
	b.limit = n
	return b
}

// SQL returns the statement text and its arguments in placeholder order.
func (b *selectBuilder) SQL() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(b.columns)
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	if len(b.joinArgs) == 0 && b.limit == 0 {
		return sb.String(), b.args
	}
	args := make([]any, 0, len(b.joinArgs)+len(b.args)+1)
	args = append(args, b.joinArgs...)
	args = append(args, b.args...)
	if b.limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	return sb.String(), args
}

// updateBuilder accumulates SET assignments for a single-table UPDATE.
type updateBuilder struct {
	table string
	sets  []string
	args  []any
	where []string
	wargs []any
}

func newUpdate(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

// Set assigns column = value.
func (b *updateBuilder) Set(column string, value any) *updateBuilder {
	b.sets = append(b.sets, column+" = ?")
	b.args = append(b.args, value)
	return b
}

// Where adds a predicate and its arguments.
func (b *updateBuilder) Where(pred string, args ...any) *updateBuilder {
	b.where = append(b.where, pred)
	b.wargs = append(b.wargs, args...)
	return b
}

// setOpt assigns column = *v when v is non-nil.
func setOpt[T any](b *updateBuilder, column string, v *T) *updateBuilder {
	if v == nil {
		return b
	}
	return b.Set(column, *v)
}

// SQL returns the statement text and its arguments. An update with no
// assignments is a programming error and yields an empty statement.
func (b *updateBuilder) SQL() (string, []any) {
	if len(b.sets) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(b.sets, ", "))
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	args := make([]any, 0, len(b.args)+len(b.wargs))
	args = append(args, b.args...)
	args = append(args, b.wargs...)
	return sb.String(), args
}
