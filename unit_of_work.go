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
	"database/sql"

	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/repository"
	"github.com/tomoncle/bunrepo/types"
	"github.com/uptrace/bun"
)

// UnitOfWork groups repository writes on one session and controls its
// transaction. Writes queued through For repositories reach the database on
// SaveChanges; a transaction makes several saves commit or roll back
// together.
type UnitOfWork struct {
	session *database.Session
}

// NewUnitOfWork opens a new session on db.
func NewUnitOfWork(db *bun.DB, opts ...database.SessionOption) *UnitOfWork {
	return &UnitOfWork{session: database.NewSession(db, opts...)}
}

// NewUnitOfWorkWithSession wraps an existing session. Closing the unit of
// work closes the session.
func NewUnitOfWorkWithSession(session *database.Session) *UnitOfWork {
	return &UnitOfWork{session: session}
}

// NewGlobalUnitOfWork opens a unit of work on the database set up by
// database.InitDB.
func NewGlobalUnitOfWork(opts ...database.SessionOption) (*UnitOfWork, error) {
	session, err := database.NewGlobalSession(opts...)
	if err != nil {
		return nil, err
	}
	return NewUnitOfWorkWithSession(session), nil
}

// For returns a repository of T bound to the unit of work's session.
func For[T any, ID any](uow *UnitOfWork) repository.Repository[T, ID] {
	return repository.NewRepository[T, ID](uow.session)
}

func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	return u.session.BeginTx(ctx, nil)
}

func (u *UnitOfWork) BeginTransactionWithOptions(ctx context.Context, opts *sql.TxOptions) error {
	return u.session.BeginTx(ctx, opts)
}

// SaveChanges writes the queued changes and returns the number of affected
// rows.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int64, error) {
	return u.session.SaveChanges(ctx)
}

// CommitTransaction commits the open transaction. It does not save queued
// changes.
func (u *UnitOfWork) CommitTransaction() error {
	return u.session.Commit()
}

func (u *UnitOfWork) RollbackTransaction() error {
	return u.session.Rollback()
}

// DiscardChanges drops the queued changes and returns how many there were.
func (u *UnitOfWork) DiscardChanges() int {
	return u.session.DiscardChanges()
}

// Do runs fn in a transaction. The changes fn queues are saved before the
// commit. An error or panic in fn, or a failed save, rolls back; the panic is
// re-raised.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	return u.DoWithOptions(ctx, nil, fn)
}

// DoWithOptions is Do with explicit transaction options.
func (u *UnitOfWork) DoWithOptions(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	return u.session.Transaction(ctx, opts, func(ctx context.Context) error {
		return fn(ctx, u)
	})
}

// Close rolls back an open transaction, drops unsaved changes and closes the
// session. The database stays open.
func (u *UnitOfWork) Close() error {
	return u.session.Close()
}

func (u *UnitOfWork) State() types.TxState { return u.session.State() }

func (u *UnitOfWork) InTransaction() bool { return u.session.InTransaction() }

func (u *UnitOfWork) Session() *database.Session { return u.session }
