/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import "github.com/uptrace/bun"

// Query describes which rows a repository read should return: filters,
// eager-loaded relations, ordering and an optional offset/limit window.
//
// A nil *Query is valid and means "every row, in storage order".
type Query struct {
	filters  []*QueryFilter
	groups   []filterGroup
	includes []string
	orders   []string
	appliers []func(*bun.SelectQuery) *bun.SelectQuery
	skip     *int
	take     *int
}

type filterGroup struct {
	sep     string // " OR " or " AND "
	filters []*QueryFilter
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// orNew lets the builders start from a nil *Query.
func (q *Query) orNew() *Query {
	if q == nil {
		return NewQuery()
	}
	return q
}

// Where is shorthand for NewQuery().Where(schema, args...).
func Where(schema string, args ...interface{}) *Query {
	return NewQuery().Where(schema, args...)
}

// Where adds a WHERE fragment in bun syntax. Fragments are ANDed.
func (q *Query) Where(schema string, args ...interface{}) *Query {
	q = q.orNew()
	q.filters = append(q.filters, NewQueryFilter(schema, args...))
	return q
}

// WhereFilter adds a prepared filter; nil filters are ignored.
func (q *Query) WhereFilter(filter *QueryFilter) *Query {
	q = q.orNew()
	if filter != nil {
		q.filters = append(q.filters, filter)
	}
	return q
}

// WhereOr adds a parenthesised group whose filters are ORed together.
func (q *Query) WhereOr(filters ...*QueryFilter) *Query {
	return q.whereGroup(" OR ", filters)
}

// WhereAnd adds a parenthesised group whose filters are ANDed together.
func (q *Query) WhereAnd(filters ...*QueryFilter) *Query {
	return q.whereGroup(" AND ", filters)
}

func (q *Query) whereGroup(sep string, filters []*QueryFilter) *Query {
	q = q.orNew()
	group := filterGroup{sep: sep}
	for _, f := range filters {
		if f != nil {
			group.filters = append(group.filters, f)
		}
	}
	if len(group.filters) > 0 {
		q.groups = append(q.groups, group)
	}
	return q
}

// Include eager-loads the named bun relations ("Author", "Author.Country").
func (q *Query) Include(relations ...string) *Query {
	q = q.orNew()
	q.includes = append(q.includes, relations...)
	return q
}

// OrderBy appends ORDER BY terms such as "id ASC" or "name DESC".
func (q *Query) OrderBy(orders ...string) *Query {
	q = q.orNew()
	q.orders = append(q.orders, orders...)
	return q
}

// Skip sets the number of rows to skip.
func (q *Query) Skip(n int) *Query {
	q = q.orNew()
	q.skip = &n
	return q
}

// Take sets the maximum number of rows to return. Take(0) returns nothing.
func (q *Query) Take(n int) *Query {
	q = q.orNew()
	q.take = &n
	return q
}

// Apply registers a raw customization of the underlying select query. It runs
// after filters and relations and before ordering and paging.
func (q *Query) Apply(fn func(*bun.SelectQuery) *bun.SelectQuery) *Query {
	q = q.orNew()
	if fn != nil {
		q.appliers = append(q.appliers, fn)
	}
	return q
}

func (q *Query) GetFilters() []*QueryFilter {
	if q == nil {
		return nil
	}
	return q.filters
}

func (q *Query) GetIncludes() []string {
	if q == nil {
		return nil
	}
	return q.includes
}

func (q *Query) GetOrders() []string {
	if q == nil {
		return nil
	}
	return q.orders
}

// GetSkip returns the skip value and whether it was set.
func (q *Query) GetSkip() (int, bool) {
	if q == nil || q.skip == nil {
		return 0, false
	}
	return *q.skip, true
}

// GetTake returns the take value and whether it was set.
func (q *Query) GetTake() (int, bool) {
	if q == nil || q.take == nil {
		return 0, false
	}
	return *q.take, true
}

// Clone returns a copy that can be modified without affecting q.
func (q *Query) Clone() *Query {
	if q == nil {
		return NewQuery()
	}
	c := &Query{
		filters:  append([]*QueryFilter(nil), q.filters...),
		groups:   append([]filterGroup(nil), q.groups...),
		includes: append([]string(nil), q.includes...),
		orders:   append([]string(nil), q.orders...),
		appliers: append([]func(*bun.SelectQuery) *bun.SelectQuery(nil), q.appliers...),
	}
	if q.skip != nil {
		s := *q.skip
		c.skip = &s
	}
	if q.take != nil {
		t := *q.take
		c.take = &t
	}
	return c
}

// ApplyFilters writes the filter part of q (plain filters and groups) onto sq.
func (q *Query) ApplyFilters(sq *bun.SelectQuery) *bun.SelectQuery {
	if q == nil {
		return sq
	}
	for _, f := range q.filters {
		sq = sq.Where(f.Schema, f.Args...)
	}
	for _, g := range q.groups {
		group := g
		sq = sq.WhereGroup(" AND ", func(gq *bun.SelectQuery) *bun.SelectQuery {
			for _, f := range group.filters {
				if group.sep == " OR " {
					gq = gq.WhereOr(f.Schema, f.Args...)
				} else {
					gq = gq.Where(f.Schema, f.Args...)
				}
			}
			return gq
		})
	}
	return sq
}

// ApplyRelations writes the eager-loaded relations and raw customizations.
func (q *Query) ApplyRelations(sq *bun.SelectQuery) *bun.SelectQuery {
	if q == nil {
		return sq
	}
	for _, rel := range q.includes {
		sq = sq.Relation(rel)
	}
	for _, fn := range q.appliers {
		sq = fn(sq)
	}
	return sq
}
