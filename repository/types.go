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

	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ReadRepository runs queries immediately through the session, inside its
// open transaction when there is one.
type ReadRepository[T any, ID any] interface {
	// Get returns the rows matching q. A nil q returns every row.
	Get(ctx context.Context, q *types.Query) ([]*T, error)

	GetSingle(ctx context.Context, q *types.Query) (*T, error)
	GetSingleOrDefault(ctx context.Context, q *types.Query) (*T, error)
	GetFirst(ctx context.Context, q *types.Query) (*T, error)
	GetFirstOrDefault(ctx context.Context, q *types.Query) (*T, error)

	// Find returns the entity with the given id, or nil when there is none.
	// An id of type []any is a composite key.
	Find(ctx context.Context, id ID) (*T, error)
	FindByKey(ctx context.Context, keys ...any) (*T, error)

	Count(ctx context.Context, q *types.Query) (int64, error)
	Exists(ctx context.Context, q *types.Query) (bool, error)
	ExistsByID(ctx context.Context, id ID) (bool, error)
	ExistsByKey(ctx context.Context, keys ...any) (bool, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// WriteRepository queues writes on the session. Nothing reaches the database
// until the session saves its changes.
type WriteRepository[T any, ID any] interface {
	Add(ctx context.Context, entity *T) error
	AddRange(ctx context.Context, entities ...*T) error

	Update(ctx context.Context, entity *T) error
	UpdateRange(ctx context.Context, entities ...*T) error

	// Upsert inserts entities and, on a conflict over conflictKeys (the
	// primary key when empty), updates fields.
	Upsert(ctx context.Context, fields []string, conflictKeys []string, entities ...*T) error

	Delete(ctx context.Context, entity *T) error
	DeleteRange(ctx context.Context, entities ...*T) error

	// DeleteByID looks the entity up and queues its deletion. A missing id is
	// not an error.
	DeleteByID(ctx context.Context, id ID) error
	DeleteByKey(ctx context.Context, keys ...any) error

	// DeleteRangeByID queues one deletion for every id that exists. Missing
	// ids are skipped and duplicates collapsed.
	DeleteRangeByID(ctx context.Context, ids ...ID) error
	DeleteRangeByKey(ctx context.Context, keys ...[]any) error
}

// Repository combines reads, pagination and queued writes for one model and
// exposes the session and Bun builders for advanced use cases.
type Repository[T any, ID any] interface {
	ReadRepository[T, ID]
	PageQueryRepository[T]
	WriteRepository[T, ID]

	Session() *database.Session
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
}
