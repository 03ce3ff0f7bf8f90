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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bunrepo/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID       int64   `bun:"id,pk,autoincrement"`
	Title    string  `bun:"title,notnull"`
	Pages    int     `bun:"pages"`
	AuthorID int64   `bun:"author_id"`
	Author   *author `bun:"rel:belongs-to,join:author_id=id"`
}

// membership has a composite primary key.
type membership struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`

	GroupID int64  `bun:"group_id,pk"`
	UserID  int64  `bun:"user_id,pk"`
	Role    string `bun:"role"`
}

// auditEntry has no primary key.
type auditEntry struct {
	bun.BaseModel `bun:"table:audit_entries"`

	Message string `bun:"message"`
}

func newTestSession(t *testing.T) *database.Session {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []any{(*author)(nil), (*book)(nil), (*membership)(nil), (*auditEntry)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	s := database.NewSession(db, database.WithLogger(nil))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedBooks stores two authors and five books:
// ids 1..5 with pages 100..500, books 1-3 by ada and 4-5 by bob.
func seedBooks(t *testing.T, s *database.Session) {
	t.Helper()
	ctx := context.Background()
	authors := NewRepository[author, int64](s)
	books := NewRepository[book, int64](s)

	require.NoError(t, authors.AddRange(ctx, &author{Name: "ada"}, &author{Name: "bob"}))
	for i := 1; i <= 5; i++ {
		authorID := int64(1)
		if i > 3 {
			authorID = 2
		}
		require.NoError(t, books.Add(ctx, &book{Title: fmt.Sprintf("book-%d", i), Pages: i * 100, AuthorID: authorID}))
	}
	_, err := s.SaveChanges(ctx)
	require.NoError(t, err)
}

func bookIDs(items []*book) []int64 {
	ids := make([]int64, len(items))
	for i, b := range items {
		ids[i] = b.ID
	}
	return ids
}
