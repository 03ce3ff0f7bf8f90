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

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type item struct {
	bun.BaseModel `bun:"table:items"`

	ID    int64  `bun:"id,pk"`
	Color string `bun:"color"`
	Size  int    `bun:"size"`
}

func newItemsDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*item)(nil)).Exec(ctx)
	require.NoError(t, err)
	items := []item{
		{ID: 1, Color: "red", Size: 1},
		{ID: 2, Color: "red", Size: 2},
		{ID: 3, Color: "blue", Size: 3},
		{ID: 4, Color: "green", Size: 4},
	}
	_, err = db.NewInsert().Model(&items).Exec(ctx)
	require.NoError(t, err)
	return db
}

func selectIDs(t *testing.T, db *bun.DB, q *Query) []int64 {
	t.Helper()
	var items []item
	sq := db.NewSelect().Model(&items)
	sq = q.ApplyFilters(sq)
	sq = q.ApplyRelations(sq)
	require.NoError(t, sq.Order("id ASC").Scan(context.Background()))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestQueryFilters(t *testing.T) {
	db := newItemsDB(t)

	tests := []struct {
		name  string
		query *Query
		want  []int64
	}{
		{"nil query", nil, []int64{1, 2, 3, 4}},
		{"single where", Where("color = ?", "red"), []int64{1, 2}},
		{"where is anded", Where("color = ?", "red").Where("size > ?", 1), []int64{2}},
		{"nil filter ignored", NewQuery().WhereFilter(nil), []int64{1, 2, 3, 4}},
		{
			"or group",
			NewQuery().WhereOr(NewQueryFilter("color = ?", "blue"), NewQueryFilter("color = ?", "green")),
			[]int64{3, 4},
		},
		{
			"or group is parenthesised",
			Where("size > ?", 3).WhereOr(NewQueryFilter("color = ?", "blue"), NewQueryFilter("color = ?", "green")),
			[]int64{4},
		},
		{
			"and group",
			NewQuery().WhereAnd(NewQueryFilter("color = ?", "red"), NewQueryFilter("size < ?", 2)),
			[]int64{1},
		},
		{"empty group ignored", NewQuery().WhereOr(nil, nil), []int64{1, 2, 3, 4}},
		{
			"apply",
			NewQuery().Apply(func(sq *bun.SelectQuery) *bun.SelectQuery { return sq.Where("id IN (?)", bun.In([]int64{2, 3})) }),
			[]int64{2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectIDs(t, db, tt.query))
		})
	}
}

func TestQueryClone(t *testing.T) {
	q := Where("color = ?", "red").OrderBy("id DESC").Include("Owner").Skip(1).Take(2)
	c := q.Clone()
	c.Where("size = ?", 2).OrderBy("size").Skip(5).Take(0)

	assert.Len(t, q.GetFilters(), 1)
	assert.Equal(t, []string{"id DESC"}, q.GetOrders())
	skip, ok := q.GetSkip()
	assert.True(t, ok)
	assert.Equal(t, 1, skip)
	take, _ := q.GetTake()
	assert.Equal(t, 2, take)

	assert.Len(t, c.GetFilters(), 2)
	assert.Equal(t, []string{"Owner"}, c.GetIncludes())
	take, ok = c.GetTake()
	assert.True(t, ok)
	assert.Zero(t, take)

	var nilQuery *Query
	assert.NotNil(t, nilQuery.Clone())
	_, ok = nilQuery.GetSkip()
	assert.False(t, ok)
	_, ok = nilQuery.GetTake()
	assert.False(t, ok)
	assert.Nil(t, nilQuery.GetFilters())
}

func TestQueryNilBuilders(t *testing.T) {
	tests := []struct {
		name  string
		build func(q *Query) *Query
		check func(t *testing.T, q *Query)
	}{
		{"where", func(q *Query) *Query { return q.Where("id = ?", 1) }, func(t *testing.T, q *Query) {
			assert.Len(t, q.GetFilters(), 1)
		}},
		{"where filter", func(q *Query) *Query { return q.WhereFilter(NewQueryFilter("id = ?", 1)) }, func(t *testing.T, q *Query) {
			assert.Len(t, q.GetFilters(), 1)
		}},
		{"where or", func(q *Query) *Query { return q.WhereOr(NewQueryFilter("id = ?", 1)) }, nil},
		{"where and", func(q *Query) *Query { return q.WhereAnd(NewQueryFilter("id = ?", 1)) }, nil},
		{"include", func(q *Query) *Query { return q.Include("Owner") }, func(t *testing.T, q *Query) {
			assert.Equal(t, []string{"Owner"}, q.GetIncludes())
		}},
		{"order by", func(q *Query) *Query { return q.OrderBy("id") }, func(t *testing.T, q *Query) {
			assert.Equal(t, []string{"id"}, q.GetOrders())
		}},
		{"skip", func(q *Query) *Query { return q.Skip(2) }, func(t *testing.T, q *Query) {
			skip, ok := q.GetSkip()
			assert.True(t, ok)
			assert.Equal(t, 2, skip)
		}},
		{"take", func(q *Query) *Query { return q.Take(1) }, func(t *testing.T, q *Query) {
			take, ok := q.GetTake()
			assert.True(t, ok)
			assert.Equal(t, 1, take)
		}},
		{"apply", func(q *Query) *Query {
			return q.Apply(func(sq *bun.SelectQuery) *bun.SelectQuery { return sq })
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q *Query
			var got *Query
			require.NotPanics(t, func() { got = tt.build(q) })
			require.NotNil(t, got)
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}
