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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/bunrepo/types"
	"github.com/uptrace/bun"
)

// Operation names the kind of a queued write.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpUpsert Operation = "UPSERT"
)

// Change is one queued write. Apply performs it against the given database
// handle, which is the session's open transaction or a transaction opened by
// SaveChanges.
type Change struct {
	Operation Operation
	Table     string
	Rows      int
	Apply     func(ctx context.Context, db bun.IDB) (sql.Result, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger. A nil logger silences the session.
func WithLogger(l Logger) SessionOption {
	return func(s *Session) { s.logger = loggerOrNop(l) }
}

// Session is the persistence context shared by repositories and a unit of
// work: it owns at most one open bun transaction and a queue of pending
// writes that SaveChanges flushes.
//
// Reads always go straight to the database (through the open transaction when
// there is one); queued writes are not visible to them until saved.
type Session struct {
	db     *bun.DB
	logger Logger

	mu      sync.Mutex
	tx      bun.Tx
	inTx    bool
	txID    string
	state   types.TxState
	pending []Change
	closed  bool
}

// NewSession binds a session to db.
func NewSession(db *bun.DB, opts ...SessionOption) *Session {
	s := &Session{
		db:     db,
		logger: GetLogger(),
		state:  types.TxIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying Bun database.
func (s *Session) DB() *bun.DB { return s.db }

// IDB returns the handle reads should use: the open transaction if any,
// otherwise the database.
func (s *Session) IDB() (bun.IDB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return nil, err
	}
	if s.inTx {
		return s.tx, nil
	}
	return s.db, nil
}

func (s *Session) usableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

// Track queues a write for the next SaveChanges.
func (s *Session) Track(ctx context.Context, change Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if change.Apply == nil {
		return fmt.Errorf("database: change %s on %s has no apply function", change.Operation, change.Table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	s.pending = append(s.pending, change)
	return nil
}

// Pending returns the number of queued writes.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DiscardChanges drops every queued write and returns how many were dropped.
func (s *Session) DiscardChanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	s.pending = nil
	return n
}

// SaveChanges executes the queued writes in order and returns the total
// number of affected rows. Inside an open transaction the writes run under a
// savepoint of it; otherwise they run together in a transaction of their own.
// Either way a failed save leaves no partial writes behind, so the queue is
// kept as is and can be retried or discarded.
func (s *Session) SaveChanges(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return 0, err
	}
	if len(s.pending) == 0 {
		return 0, nil
	}

	runInTx := s.db.RunInTx
	if s.inTx {
		runInTx = s.tx.RunInTx
	}
	var total int64
	err := runInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var runErr error
		total, runErr = applyChanges(ctx, tx, s.pending)
		return runErr
	})
	if err != nil {
		s.logger.Error("Failed to save changes", "pending", len(s.pending), "tx_id", s.txID, "error", err)
		return 0, err
	}

	s.logger.Debug("Changes saved", "changes", len(s.pending), "rows_affected", total, "tx_id", s.txID)
	s.pending = nil
	return total, nil
}

func applyChanges(ctx context.Context, db bun.IDB, changes []Change) (int64, error) {
	var total int64
	for i, c := range changes {
		res, err := c.Apply(ctx, db)
		if err != nil {
			return total, fmt.Errorf("save changes: %s %s (%d of %d): %w", c.Operation, c.Table, i+1, len(changes), err)
		}
		if res == nil {
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

// BeginTx opens a transaction. Only one transaction may be open at a time.
func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	if s.inTx {
		return ErrTransactionActive
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	s.inTx = true
	s.txID = uuid.NewString()
	s.state = types.TxActive
	s.logger.Debug("Transaction started", "tx_id", s.txID)
	return nil
}

// Commit commits the open transaction. Writes still queued are not saved by
// Commit; they stay queued.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.inTx {
		return ErrNoTransaction
	}
	if len(s.pending) > 0 {
		s.logger.Warn("Committing transaction with unsaved changes", "pending", len(s.pending), "tx_id", s.txID)
	}

	err := s.tx.Commit()
	s.endTxLocked()
	if err != nil {
		s.state = types.TxRolledBack
		s.logger.Error("Transaction commit failed", "tx_id", s.txID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.state = types.TxCommitted
	s.logger.Debug("Transaction committed", "tx_id", s.txID)
	return nil
}

// Rollback rolls back the open transaction. Queued writes are kept.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.inTx {
		return ErrNoTransaction
	}
	return s.rollbackLocked()
}

func (s *Session) rollbackLocked() error {
	err := s.tx.Rollback()
	s.endTxLocked()
	s.state = types.TxRolledBack
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Error("Transaction rollback failed", "tx_id", s.txID, "error", err)
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	s.logger.Debug("Transaction rolled back", "tx_id", s.txID)
	return nil
}

func (s *Session) endTxLocked() {
	s.tx = bun.Tx{}
	s.inTx = false
}

// Transaction runs fn inside a new transaction. Writes fn queues are saved
// before the commit. Any error from fn or from saving rolls the transaction
// back; so does a panic, which is re-raised afterwards.
func (s *Session) Transaction(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if err := s.BeginTx(ctx, opts); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := s.Rollback(); rbErr != nil {
				s.logger.Error("Rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err = fn(ctx); err == nil {
		_, err = s.SaveChanges(ctx)
	}
	if err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return s.Commit()
}

// InTransaction reports whether a transaction is open.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx
}

// State returns the transaction state of the session.
func (s *Session) State() types.TxState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TxID returns the id of the current or last transaction, empty before the
// first one.
func (s *Session) TxID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txID
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close rolls back an open transaction, drops queued writes and makes the
// session unusable. The database itself stays open. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var err error
	if s.inTx {
		err = s.rollbackLocked()
	}
	if n := len(s.pending); n > 0 {
		s.logger.Warn("Session closed with unsaved changes", "pending", n)
	}
	s.pending = nil
	s.closed = true
	s.state = types.TxClosed
	return err
}
