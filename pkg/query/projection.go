// Package query builds parameterized list queries over a projected view of
// one table and its joins.
package query

import (
	"strings"
)

// Projection maps view field names to qualified columns (alias.column) for
// a base table and any joined tables.
type Projection struct {
	from    strings.Builder
	current string
	fields  map[string]string
	columns []string
}

// NewProjection starts a projection over table under alias.
func NewProjection(table, alias string) *Projection {
	p := &Projection{
		current: alias,
		fields:  make(map[string]string),
	}
	p.from.WriteString(table + " " + alias)
	return p
}

// Project maps column of the most recently added table to field.
func (p *Projection) Project(column, field string) *Projection {
	qualified := p.current + "." + column
	p.fields[field] = qualified
	p.columns = append(p.columns, qualified)
	return p
}

// Join adds a join clause of the given kind ("JOIN", "LEFT JOIN") and
// qualifies subsequent Project calls with alias.
func (p *Projection) Join(kind, table, alias, on string) *Projection {
	p.from.WriteString(" " + kind + " " + table + " " + alias + " ON " + on)
	p.current = alias
	return p
}

// From returns the FROM clause body: the base table and every join.
func (p *Projection) From() string {
	return p.from.String()
}

// Columns returns the projected columns in declaration order.
func (p *Projection) Columns() string {
	return strings.Join(p.columns, ", ")
}

// Lookup returns the column mapped to field.
func (p *Projection) Lookup(field string) (string, bool) {
	col, ok := p.fields[field]
	return col, ok
}

// column resolves field for filter clauses. Qualified references such as
// "g.user_uid" pass through so filters may target unprojected join columns.
func (p *Projection) column(field string) string {
	if col, ok := p.fields[field]; ok {
		return col
	}
	return field
}
