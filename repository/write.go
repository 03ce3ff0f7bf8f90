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
	"reflect"

	"github.com/tomoncle/bunrepo/database"
	"github.com/uptrace/bun"
)

// rowsAffected sums the results of several statements run by one change.
type rowsAffected int64

func (n rowsAffected) LastInsertId() (int64, error) {
	return 0, errors.New("repository: LastInsertId is not available for multi-statement changes")
}

func (n rowsAffected) RowsAffected() (int64, error) { return int64(n), nil }

func addRows(total *int64, res sql.Result) {
	if n, err := res.RowsAffected(); err == nil {
		*total += n
	}
}

// checked copies entities, rejecting nil ones.
func checked[T any](entities []*T) ([]*T, error) {
	out := make([]*T, len(entities))
	for i, e := range entities {
		if e == nil {
			return nil, fmt.Errorf("%w: at index %d", ErrNilEntity, i)
		}
		out[i] = e
	}
	return out, nil
}

func (r *baseRepositoryImpl[T, ID]) track(ctx context.Context, op database.Operation, rows int, apply func(ctx context.Context, db bun.IDB) (sql.Result, error)) error {
	return r.session.Track(ctx, database.Change{
		Operation: op,
		Table:     r.table().Name,
		Rows:      rows,
		Apply:     apply,
	})
}

func (r *baseRepositoryImpl[T, ID]) Add(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	return r.track(ctx, database.OpInsert, 1, func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		return db.NewInsert().Model(entity).Exec(ctx)
	})
}

func (r *baseRepositoryImpl[T, ID]) AddRange(ctx context.Context, entities ...*T) error {
	if len(entities) == 0 {
		return nil
	}
	items, err := checked(entities)
	if err != nil {
		return err
	}
	return r.track(ctx, database.OpInsert, len(items), func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		return db.NewInsert().Model(&items).Exec(ctx)
	})
}

func (r *baseRepositoryImpl[T, ID]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	if _, err := r.primaryKeys(); err != nil {
		return err
	}
	return r.track(ctx, database.OpUpdate, 1, func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		return db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	})
}

// UpdateRange updates the entities one statement each, inside the same save.
func (r *baseRepositoryImpl[T, ID]) UpdateRange(ctx context.Context, entities ...*T) error {
	if len(entities) == 0 {
		return nil
	}
	items, err := checked(entities)
	if err != nil {
		return err
	}
	if _, err := r.primaryKeys(); err != nil {
		return err
	}
	return r.track(ctx, database.OpUpdate, len(items), func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		var total int64
		for _, e := range items {
			res, err := db.NewUpdate().Model(e).WherePK().Exec(ctx)
			if err != nil {
				return nil, err
			}
			addRows(&total, res)
		}
		return rowsAffected(total), nil
	})
}

func (r *baseRepositoryImpl[T, ID]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	if _, err := r.primaryKeys(); err != nil {
		return err
	}
	return r.track(ctx, database.OpDelete, 1, func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		return db.NewDelete().Model(entity).WherePK().Exec(ctx)
	})
}

func (r *baseRepositoryImpl[T, ID]) DeleteRange(ctx context.Context, entities ...*T) error {
	if len(entities) == 0 {
		return nil
	}
	items, err := checked(entities)
	if err != nil {
		return err
	}
	if _, err := r.primaryKeys(); err != nil {
		return err
	}
	return r.track(ctx, database.OpDelete, len(items), func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		return db.NewDelete().Model(&items).WherePK().Exec(ctx)
	})
}

func (r *baseRepositoryImpl[T, ID]) DeleteByID(ctx context.Context, id ID) error {
	return r.DeleteByKey(ctx, keysOf(id)...)
}

func (r *baseRepositoryImpl[T, ID]) DeleteByKey(ctx context.Context, keys ...any) error {
	entity, err := r.FindByKey(ctx, keys...)
	if err != nil || entity == nil {
		return err
	}
	return r.Delete(ctx, entity)
}

func (r *baseRepositoryImpl[T, ID]) DeleteRangeByID(ctx context.Context, ids ...ID) error {
	keys := make([][]any, len(ids))
	for i, id := range ids {
		keys[i] = keysOf(id)
	}
	return r.DeleteRangeByKey(ctx, keys...)
}

// DeleteRangeByKey looks up every key and queues one delete for the rows
// found. Rows are deduplicated by their stored primary key, so 1 and int64(1)
// name the same row.
func (r *baseRepositoryImpl[T, ID]) DeleteRangeByKey(ctx context.Context, keys ...[]any) error {
	seen := make(map[string]struct{}, len(keys))
	found := make([]*T, 0, len(keys))
	for _, key := range keys {
		entity, err := r.FindByKey(ctx, key...)
		if err != nil {
			return err
		}
		if entity == nil {
			continue
		}
		k := r.storedKey(entity)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		found = append(found, entity)
	}
	return r.DeleteRange(ctx, found...)
}

// storedKey renders the primary key values of a loaded entity.
func (r *baseRepositoryImpl[T, ID]) storedKey(entity *T) string {
	v := reflect.ValueOf(entity).Elem()
	pks := r.table().PKs
	vals := make([]any, len(pks))
	for i, pk := range pks {
		vals[i] = pk.Value(v).Interface()
	}
	return fmt.Sprintf("%#v", vals)
}
