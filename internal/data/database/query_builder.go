// Package database builds parameterized list queries for the repositories.
// Identifiers are quoted with pgx; values always travel as positional args.
package database

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	// In takes a slice value and binds it as a single array parameter.
	In     ConditionType = "IN"
	Custom ConditionType = "CUSTOM"
)

// rawPlaceholder marks parameter positions inside WhereRawCond SQL.
const rawPlaceholder = "?"

// Condition is one AND-ed term of a WHERE clause.
type Condition struct {
	Field  string
	Type   ConditionType
	Value  any
	raw    string
	params []any
}

// WhereCond compares a column to a value. Custom conditions must use WhereRawCond.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		panic("database: use WhereRawCond for Custom conditions") //nolint:forbidigo // programmer error
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond adds a SQL fragment; each "?" binds the next of params.
func WhereRawCond(rawQuery string, params ...any) Condition {
	return Condition{Type: Custom, raw: rawQuery, params: params}
}

// ListQueryOptions describes a SELECT over one table. A negative Limit or
// Offset omits the clause.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    []string
	OrderDir   string
	Limit      int
	Offset     int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{Table: table, Limit: -1, Offset: -1}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithOrderBy orders by columns, all in direction. Anything but "asc" sorts descending.
func WithOrderBy(direction string, columns ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = columns
		o.OrderDir = direction
	}
}

// WithLimit ignores negative values.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset ignores negative values.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly selects COUNT(*) and drops ordering and paging.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// queryWriter accumulates SQL text and the args its placeholders refer to.
type queryWriter struct {
	strings.Builder
	args []any
}

func (w *queryWriter) bind(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func quote(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// BuildListQuery renders the statement and its positional arguments.
func BuildListQuery(o *ListQueryOptions) (string, []any) {
	var w queryWriter

	switch {
	case o.CountOnly:
		w.WriteString("SELECT COUNT(*)")
	case len(o.Columns) == 0:
		w.WriteString("SELECT *")
	default:
		cols := make([]string, len(o.Columns))
		for i, c := range o.Columns {
			cols[i] = quote(c)
		}
		w.WriteString("SELECT " + strings.Join(cols, ", "))
	}
	w.WriteString(" FROM " + quote(o.Table))

	var terms []string
	for _, c := range o.Conditions {
		if t := c.render(&w); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) > 0 {
		w.WriteString(" WHERE " + strings.Join(terms, " AND "))
	}
	if o.CountOnly {
		return w.String(), w.args
	}

	if len(o.OrderBy) > 0 {
		dir := "DESC"
		if strings.EqualFold(strings.TrimSpace(o.OrderDir), "asc") {
			dir = "ASC"
		}
		keys := make([]string, len(o.OrderBy))
		for i, col := range o.OrderBy {
			keys[i] = quote(col) + " " + dir
		}
		w.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	if o.Limit >= 0 {
		w.WriteString(" LIMIT " + w.bind(o.Limit))
	}
	if o.Offset >= 0 {
		w.WriteString(" OFFSET " + w.bind(o.Offset))
	}
	return w.String(), w.args
}

// render binds the condition's values into w and returns its SQL, or "" when
// the condition contributes nothing.
func (c Condition) render(w *queryWriter) string {
	switch c.Type {
	case Custom:
		return c.renderRaw(w)
	case In:
		return quote(c.Field) + " = ANY(" + w.bind(c.Value) + ")"
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual:
		return quote(c.Field) + " " + string(c.Type) + " " + w.bind(c.Value)
	default:
		return ""
	}
}

func (c Condition) renderRaw(w *queryWriter) string {
	if strings.TrimSpace(c.raw) == "" {
		return ""
	}
	var b strings.Builder
	rest := c.raw
	for _, p := range c.params {
		idx := strings.Index(rest, rawPlaceholder)
		if idx < 0 {
			break
		}
		b.WriteString(rest[:idx])
		b.WriteString(w.bind(p))
		rest = rest[idx+len(rawPlaceholder):]
	}
	b.WriteString(rest)
	return "(" + b.String() + ")"
}
