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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any, ID any] struct {
	session *database.Session
}

// NewRepository returns a repository for model T bound to session. Reads
// run through the session; writes are queued on it.
func NewRepository[T any, ID any](session *database.Session) Repository[T, ID] {
	return &baseRepositoryImpl[T, ID]{session: session}
}

func (r *baseRepositoryImpl[T, ID]) Session() *database.Session { return r.session }

func (r *baseRepositoryImpl[T, ID]) Dialect() schema.Dialect { return r.session.DB().Dialect() }

// NewSelect returns a select builder bound to T, running in the session's
// open transaction when there is one.
func (r *baseRepositoryImpl[T, ID]) NewSelect() *bun.SelectQuery {
	db, err := r.session.IDB()
	if err != nil {
		db = r.session.DB()
	}
	return db.NewSelect().Model((*T)(nil))
}

func (r *baseRepositoryImpl[T, ID]) table() *schema.Table {
	return r.session.DB().Table(reflect.TypeFor[T]())
}

func (r *baseRepositoryImpl[T, ID]) primaryKeys() ([]*schema.Field, error) {
	pks := r.table().PKs
	if len(pks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, r.table().Name)
	}
	return pks, nil
}

// keysOf spreads a composite id given as []any.
func keysOf[ID any](id ID) []any {
	if keys, ok := any(id).([]any); ok {
		return keys
	}
	return []any{id}
}

func (r *baseRepositoryImpl[T, ID]) whereKey(sq *bun.SelectQuery, keys []any) (*bun.SelectQuery, error) {
	pks, err := r.primaryKeys()
	if err != nil {
		return nil, err
	}
	if len(keys) != len(pks) {
		return nil, fmt.Errorf("%w: %s has %d primary key column(s), got %d value(s)", ErrKeyMismatch, r.table().Name, len(pks), len(keys))
	}
	for i, pk := range pks {
		sq = sq.Where("?TableAlias.? = ?", bun.Ident(pk.Name), keys[i])
	}
	return sq, nil
}

func validateWindow(q *types.Query) error {
	if skip, ok := q.GetSkip(); ok && skip < 0 {
		return fmt.Errorf("%w: skip must not be negative, got %d", ErrInvalidQuery, skip)
	}
	if take, ok := q.GetTake(); ok && take < 0 {
		return fmt.Errorf("%w: take must not be negative, got %d", ErrInvalidQuery, take)
	}
	return nil
}

// selectQuery applies filters, relations and custom clauses, then ordering
// and the skip/take window. limit > 0 replaces the take of q.
func (r *baseRepositoryImpl[T, ID]) selectQuery(db bun.IDB, dest *[]*T, q *types.Query, limit int) *bun.SelectQuery {
	sq := db.NewSelect().Model(dest)
	sq = q.ApplyFilters(sq)
	sq = q.ApplyRelations(sq)
	if orders := q.GetOrders(); len(orders) > 0 {
		sq = sq.Order(orders...)
	}

	skip, hasSkip := q.GetSkip()
	take, hasTake := q.GetTake()
	if limit > 0 {
		take, hasTake = limit, true
	}
	if hasSkip && skip > 0 {
		sq = sq.Offset(skip)
	}
	switch {
	case hasTake:
		sq = sq.Limit(take)
	case hasSkip && skip > 0:
		sq = sq.Limit(unboundedLimit(db.Dialect().Name()))
	}
	return sq
}

// unboundedLimit is the LIMIT that lets OFFSET stand alone on dialects that
// reject OFFSET without LIMIT. bun keeps limits as positive int32 values, so
// the largest one it will render is used.
func unboundedLimit(name dialect.Name) int {
	switch name {
	case dialect.SQLite, dialect.MySQL:
		return math.MaxInt32
	default:
		return 0
	}
}

func (r *baseRepositoryImpl[T, ID]) list(ctx context.Context, q *types.Query, limit int) ([]*T, error) {
	if err := validateWindow(q); err != nil {
		return nil, err
	}
	if take, ok := q.GetTake(); ok && take == 0 && limit == 0 {
		return []*T{}, nil
	}
	db, err := r.session.IDB()
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0)
	if err := r.selectQuery(db, &entities, q, limit).Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T, ID]) Get(ctx context.Context, q *types.Query) ([]*T, error) {
	return r.list(ctx, q, 0)
}

func (r *baseRepositoryImpl[T, ID]) GetSingle(ctx context.Context, q *types.Query) (*T, error) {
	entity, err := r.GetSingleOrDefault(ctx, q)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNotFound
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, ID]) GetSingleOrDefault(ctx context.Context, q *types.Query) (*T, error) {
	entities, err := r.list(ctx, q, 2)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return entities[0], nil
	default:
		return nil, ErrMultipleResults
	}
}

func (r *baseRepositoryImpl[T, ID]) GetFirst(ctx context.Context, q *types.Query) (*T, error) {
	entity, err := r.GetFirstOrDefault(ctx, q)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ErrNotFound
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, ID]) GetFirstOrDefault(ctx context.Context, q *types.Query) (*T, error) {
	entities, err := r.list(ctx, q, 1)
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return entities[0], nil
}

func (r *baseRepositoryImpl[T, ID]) Find(ctx context.Context, id ID) (*T, error) {
	return r.FindByKey(ctx, keysOf(id)...)
}

func (r *baseRepositoryImpl[T, ID]) FindByKey(ctx context.Context, keys ...any) (*T, error) {
	db, err := r.session.IDB()
	if err != nil {
		return nil, err
	}
	entity := new(T)
	sq, err := r.whereKey(db.NewSelect().Model(entity), keys)
	if err != nil {
		return nil, err
	}
	if err := sq.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entity, nil
}

// Count counts the rows matching the filters of q. Relations, ordering and
// the skip/take window are ignored.
func (r *baseRepositoryImpl[T, ID]) Count(ctx context.Context, q *types.Query) (int64, error) {
	db, err := r.session.IDB()
	if err != nil {
		return 0, err
	}
	n, err := q.ApplyFilters(db.NewSelect().Model((*T)(nil))).Count(ctx)
	return int64(n), err
}

func (r *baseRepositoryImpl[T, ID]) Exists(ctx context.Context, q *types.Query) (bool, error) {
	db, err := r.session.IDB()
	if err != nil {
		return false, err
	}
	return q.ApplyFilters(db.NewSelect().Model((*T)(nil))).Exists(ctx)
}

func (r *baseRepositoryImpl[T, ID]) ExistsByID(ctx context.Context, id ID) (bool, error) {
	return r.ExistsByKey(ctx, keysOf(id)...)
}

func (r *baseRepositoryImpl[T, ID]) ExistsByKey(ctx context.Context, keys ...any) (bool, error) {
	db, err := r.session.IDB()
	if err != nil {
		return false, err
	}
	sq, err := r.whereKey(db.NewSelect().Model((*T)(nil)), keys)
	if err != nil {
		return false, err
	}
	return sq.Exists(ctx)
}

// Page counts the matching rows, then loads the requested page. Nothing is
// loaded when the count is zero.
func (r *baseRepositoryImpl[T, ID]) Page(ctx context.Context, req *types.PageRequest) (*types.Pagination[T], error) {
	if req == nil {
		req = types.NewDefaultPageRequest(types.DefaultPage, types.DefaultPageSize)
	}
	pagination := types.NewDefaultPagination[T](req.GetPage(), req.GetPageSize())

	total, err := r.Count(ctx, req.GetQuery())
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return pagination, nil
	}
	items, err := r.Get(ctx, req.WindowQuery())
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}
