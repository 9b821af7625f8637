package query

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// SortField orders results by a projected field.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses a comma-separated sort expression such as
// "Name,-CreatedAt". A leading "-" sorts descending.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder accumulates filter and sort clauses against a Projection and
// renders numbered-placeholder SQL.
type Builder struct {
	projection *Projection
	where      []string
	args       []any
	order      []SortField
	fallback   []SortField
}

// NewBuilder creates a Builder. defaultSort orders results when no sort is
// requested and breaks ties when one is.
func NewBuilder(projection *Projection, defaultSort ...SortField) *Builder {
	return &Builder{
		projection: projection,
		fallback:   defaultSort,
	}
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// WhereEquals filters field to value. A nil value adds no condition.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, b.projection.column(field)+" = "+b.bind(value))
	return b
}

// WhereNull filters field to NULL.
func (b *Builder) WhereNull(field string) *Builder {
	b.where = append(b.where, b.projection.column(field)+" IS NULL")
	return b
}

// WhereSearch matches search as a case-insensitive substring of any of
// fields. LIKE wildcards in search match literally. Empty search adds no
// condition.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || strings.TrimSpace(*search) == "" || len(fields) == 0 {
		return b
	}

	param := b.bind("%" + escapeLike(strings.TrimSpace(*search)) + "%")
	clauses := make([]string, len(fields))
	for i, f := range fields {
		clauses[i] = b.projection.column(f) + " ILIKE " + param
	}
	b.where = append(b.where, "("+strings.Join(clauses, " OR ")+")")
	return b
}

// OrderBy sets the requested sort. Fields the projection does not map are
// dropped, so client sort input never reaches the SQL verbatim.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	b.order = nil
	for _, f := range fields {
		if _, ok := b.projection.Lookup(f.Field); ok {
			b.order = append(b.order, f)
		}
	}
	return b
}

// Count renders a COUNT(*) over the filtered rows.
func (b *Builder) Count() (string, []any) {
	return "SELECT COUNT(*) FROM " + b.projection.From() + b.renderWhere(), slices.Clone(b.args)
}

// Page renders the filtered, ordered rows of one 1-based page.
func (b *Builder) Page(page, size int) (string, []any) {
	if page < 1 {
		page = 1
	}
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.From(),
		b.renderWhere(),
		b.renderOrder(),
		size,
		(page-1)*size,
	)
	return sql, slices.Clone(b.args)
}

// Single renders a lookup of one row by field, ignoring accumulated filters.
func (b *Builder) Single(field string, id any) (string, []any) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.From(),
		b.projection.column(field),
	)
	return sql, []any{id}
}

func (b *Builder) renderWhere() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) renderOrder() string {
	fields := slices.Clone(b.order)
	for _, f := range b.fallback {
		if !slices.ContainsFunc(fields, func(o SortField) bool { return o.Field == f.Field }) {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		if f.Descending {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
