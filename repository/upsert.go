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
	"fmt"
	"strings"

	"github.com/tomoncle/bunrepo/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

func (r *baseRepositoryImpl[T, ID]) Upsert(ctx context.Context, fields []string, conflictKeys []string, entities ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: upsert fields cannot be empty", ErrInvalidQuery)
	}
	if len(entities) == 0 {
		return nil
	}
	items, err := checked(entities)
	if err != nil {
		return err
	}
	if len(conflictKeys) == 0 {
		pks, err := r.primaryKeys()
		if err != nil {
			return err
		}
		for _, pk := range pks {
			conflictKeys = append(conflictKeys, pk.Name)
		}
	}
	fields = append([]string(nil), fields...)
	conflictKeys = append([]string(nil), conflictKeys...)

	return r.track(ctx, database.OpUpsert, len(items), func(ctx context.Context, db bun.IDB) (sql.Result, error) {
		features := db.Dialect().Features()
		switch {
		case features.Has(feature.InsertOnConflict):
			return upsertOnConflict(ctx, db, fields, conflictKeys, &items)
		case features.Has(feature.InsertOnDuplicateKey):
			return upsertOnDuplicateKey(ctx, db, fields, &items)
		default:
			return upsertFallback(ctx, db, items)
		}
	})
}

func identList(names []string) (string, []any) {
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = bun.Ident(n)
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "), args
}

// upsertOnConflict serves postgres and sqlite.
func upsertOnConflict(ctx context.Context, db bun.IDB, fields, conflictKeys []string, model any) (sql.Result, error) {
	placeholders, args := identList(conflictKeys)
	q := db.NewInsert().Model(model).On("CONFLICT ("+placeholders+") DO UPDATE", args...)
	for _, f := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(f), bun.Ident(f))
	}
	return q.Exec(ctx)
}

// upsertOnDuplicateKey serves mysql, where the conflict target is implied
// by the table's unique keys.
func upsertOnDuplicateKey(ctx context.Context, db bun.IDB, fields []string, model any) (sql.Result, error) {
	q := db.NewInsert().Model(model).On("DUPLICATE KEY UPDATE")
	for _, f := range fields {
		q = q.Set("? = VALUES(?)", bun.Ident(f), bun.Ident(f))
	}
	return q.Exec(ctx)
}

// upsertFallback updates entities whose primary key exists and inserts the
// others, one statement each.
func upsertFallback[T any](ctx context.Context, db bun.IDB, entities []*T) (sql.Result, error) {
	var total int64
	for _, e := range entities {
		exists, err := db.NewSelect().Model(e).WherePK().Exists(ctx)
		if err != nil {
			return nil, err
		}
		var res sql.Result
		if exists {
			res, err = db.NewUpdate().Model(e).WherePK().Exec(ctx)
		} else {
			res, err = db.NewInsert().Model(e).Exec(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("upsert failed for entity: %w", err)
		}
		addRows(&total, res)
	}
	return rowsAffected(total), nil
}
