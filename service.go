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

package bunrepo

import (
	"context"
	"fmt"

	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/repository"
	"github.com/tomoncle/bunrepo/types"
	"github.com/uptrace/bun"
)

type Service[T any, ID any] interface {
	// Get returns a single entity by its identifier, nil when absent.
	Get(ctx context.Context, id ID) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the query.
	List(ctx context.Context, q *types.Query) ([]*T, error)

	// Count returns the number of entities matching the query filters.
	Count(ctx context.Context, q *types.Query) (int64, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and conflict keys.
	SaveOrUpdate(ctx context.Context, fields []string, conflictKeys []string, model ...*T) error

	// Update modifies existing entities.
	Update(ctx context.Context, model ...*T) error

	// Delete removes entities by identifier. Missing ids are ignored.
	Delete(ctx context.Context, id ...ID) error

	// SaveWithUoW queues inserts on a unit of work.
	SaveWithUoW(ctx context.Context, uow *UnitOfWork, model ...*T) error

	// SaveOrUpdateWithUoW queues upserts on a unit of work.
	SaveOrUpdateWithUoW(ctx context.Context, uow *UnitOfWork, fields []string, conflictKeys []string, model ...*T) error

	// UpdateWithUoW queues updates on a unit of work.
	UpdateWithUoW(ctx context.Context, uow *UnitOfWork, model ...*T) error

	// DeleteWithUoW queues deletions on a unit of work.
	DeleteWithUoW(ctx context.Context, uow *UnitOfWork, id ...ID) error

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any, ID any] struct {
	db func() *bun.DB
}

// NewService returns a Service over the global database. Every write opens
// its own unit of work and saves it immediately.
func NewService[T any, ID any]() Service[T, ID] {
	return &baseServiceImpl[T, ID]{db: database.GetDB}
}

// NewServiceWithDB returns a Service over db instead of the global database.
func NewServiceWithDB[T any, ID any](db *bun.DB) Service[T, ID] {
	return &baseServiceImpl[T, ID]{db: func() *bun.DB { return db }}
}

func (s *baseServiceImpl[T, ID]) unitOfWork() (*UnitOfWork, error) {
	db := s.db()
	if db == nil {
		return nil, database.ErrNotInitialized
	}
	return NewUnitOfWork(db), nil
}

// read runs fn on a repository over a short-lived session.
func read[T any, ID any, R any](s *baseServiceImpl[T, ID], fn func(repository.Repository[T, ID]) (R, error)) (R, error) {
	var zero R
	uow, err := s.unitOfWork()
	if err != nil {
		return zero, err
	}
	defer uow.Close()
	return fn(For[T, ID](uow))
}

// write queues fn's changes on a fresh unit of work and saves them.
func (s *baseServiceImpl[T, ID]) write(ctx context.Context, fn func(repository.Repository[T, ID]) error) error {
	uow, err := s.unitOfWork()
	if err != nil {
		return err
	}
	defer uow.Close()

	if err := fn(For[T, ID](uow)); err != nil {
		return err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return fmt.Errorf("failed to save %T: %w", *new(T), err)
	}
	return nil
}

func (s *baseServiceImpl[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	return read(s, func(r repository.Repository[T, ID]) (*T, error) { return r.Find(ctx, id) })
}

func (s *baseServiceImpl[T, ID]) All(ctx context.Context) ([]*T, error) {
	return s.List(ctx, nil)
}

func (s *baseServiceImpl[T, ID]) List(ctx context.Context, q *types.Query) ([]*T, error) {
	return read(s, func(r repository.Repository[T, ID]) ([]*T, error) { return r.Get(ctx, q) })
}

func (s *baseServiceImpl[T, ID]) Count(ctx context.Context, q *types.Query) (int64, error) {
	return read(s, func(r repository.Repository[T, ID]) (int64, error) { return r.Count(ctx, q) })
}

func (s *baseServiceImpl[T, ID]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return read(s, func(r repository.Repository[T, ID]) (*types.Pagination[T], error) { return r.Page(ctx, page) })
}

func (s *baseServiceImpl[T, ID]) Save(ctx context.Context, model ...*T) error {
	return s.write(ctx, func(r repository.Repository[T, ID]) error { return r.AddRange(ctx, model...) })
}

func (s *baseServiceImpl[T, ID]) SaveOrUpdate(ctx context.Context, fields []string, conflictKeys []string, model ...*T) error {
	return s.write(ctx, func(r repository.Repository[T, ID]) error { return r.Upsert(ctx, fields, conflictKeys, model...) })
}

func (s *baseServiceImpl[T, ID]) Update(ctx context.Context, model ...*T) error {
	return s.write(ctx, func(r repository.Repository[T, ID]) error { return r.UpdateRange(ctx, model...) })
}

func (s *baseServiceImpl[T, ID]) Delete(ctx context.Context, id ...ID) error {
	return s.write(ctx, func(r repository.Repository[T, ID]) error { return r.DeleteRangeByID(ctx, id...) })
}

func (s *baseServiceImpl[T, ID]) SaveWithUoW(ctx context.Context, uow *UnitOfWork, model ...*T) error {
	return s.withUoW(uow, func(r repository.Repository[T, ID]) error { return r.AddRange(ctx, model...) })
}

func (s *baseServiceImpl[T, ID]) SaveOrUpdateWithUoW(ctx context.Context, uow *UnitOfWork, fields []string, conflictKeys []string, model ...*T) error {
	return s.withUoW(uow, func(r repository.Repository[T, ID]) error { return r.Upsert(ctx, fields, conflictKeys, model...) })
}

func (s *baseServiceImpl[T, ID]) UpdateWithUoW(ctx context.Context, uow *UnitOfWork, model ...*T) error {
	return s.withUoW(uow, func(r repository.Repository[T, ID]) error { return r.UpdateRange(ctx, model...) })
}

func (s *baseServiceImpl[T, ID]) DeleteWithUoW(ctx context.Context, uow *UnitOfWork, id ...ID) error {
	return s.withUoW(uow, func(r repository.Repository[T, ID]) error { return r.DeleteRangeByID(ctx, id...) })
}

// withUoW queues on the caller's unit of work; the caller saves it.
func (s *baseServiceImpl[T, ID]) withUoW(uow *UnitOfWork, fn func(repository.Repository[T, ID]) error) error {
	if uow == nil {
		return database.ErrNotInitialized
	}
	return fn(For[T, ID](uow))
}

func (s *baseServiceImpl[T, ID]) SelectBuilder() *bun.SelectQuery {
	db := s.db()
	if db == nil {
		return nil
	}
	return db.NewSelect().Model((*T)(nil))
}
