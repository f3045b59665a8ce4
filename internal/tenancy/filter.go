// Package tenancy provides the typed query filter builder and the scoping
// guard that confines every data operation to the caller's organization.
package tenancy

import (
	"fmt"
	"strings"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq    Op = "eq"
	OpLt    Op = "lt"
	OpILike Op = "ilike"
	// OpAnyElem matches when the value equals any element of an array
	// column (tags).
	OpAnyElem Op = "any"
)

// Condition is one clause of a filter. Column names are always code-level
// constants (handlers and sort allowlists), never raw request input.
type Condition struct {
	Column string
	Op     Op
	Value  interface{}
}

// Filter is an AND-composed conjunction of conditions. It can only narrow
// a result set; merging via Scope strips any caller-supplied tenancy
// clauses before adding the authoritative ones.
type Filter struct {
	conds []Condition
}

// NewFilter creates an empty filter (matches everything).
func NewFilter() *Filter {
	return &Filter{}
}

// Eq adds an equality condition.
func (f *Filter) Eq(column string, value interface{}) *Filter {
	f.conds = append(f.conds, Condition{Column: column, Op: OpEq, Value: value})
	return f
}

// Lt adds a less-than condition.
func (f *Filter) Lt(column string, value interface{}) *Filter {
	f.conds = append(f.conds, Condition{Column: column, Op: OpLt, Value: value})
	return f
}

// Search adds a case-insensitive substring condition.
func (f *Filter) Search(column, term string) *Filter {
	f.conds = append(f.conds, Condition{Column: column, Op: OpILike, Value: term})
	return f
}

// HasElem adds an array-membership condition on an array column.
func (f *Filter) HasElem(column string, value interface{}) *Filter {
	f.conds = append(f.conds, Condition{Column: column, Op: OpAnyElem, Value: value})
	return f
}

// Conditions returns a copy of the filter's clauses.
func (f *Filter) Conditions() []Condition {
	out := make([]Condition, len(f.conds))
	copy(out, f.conds)
	return out
}

// without returns a filter with all clauses on the given columns removed.
func (f *Filter) without(columns ...string) *Filter {
	drop := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		drop[c] = struct{}{}
	}
	kept := &Filter{}
	for _, c := range f.conds {
		if _, ok := drop[c.Column]; !ok {
			kept.conds = append(kept.conds, c)
		}
	}
	return kept
}

// SQL renders the filter as a WHERE clause body with placeholders starting
// at startArg, plus the matching argument slice. An empty filter renders
// as TRUE.
func (f *Filter) SQL(startArg int) (string, []interface{}) {
	if len(f.conds) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(f.conds))
	args := make([]interface{}, 0, len(f.conds))
	n := startArg
	for _, c := range f.conds {
		switch c.Op {
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s = $%d", c.Column, n))
			args = append(args, c.Value)
		case OpLt:
			parts = append(parts, fmt.Sprintf("%s < $%d", c.Column, n))
			args = append(args, c.Value)
		case OpILike:
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", c.Column, n))
			args = append(args, "%"+fmt.Sprint(c.Value)+"%")
		case OpAnyElem:
			parts = append(parts, fmt.Sprintf("$%d = ANY(%s)", n, c.Column))
			args = append(args, c.Value)
		}
		n++
	}
	return strings.Join(parts, " AND "), args
}
