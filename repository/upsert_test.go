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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bunrepo/types"
)

func authorNames(t *testing.T, authors Repository[author, int64]) []string {
	t.Helper()
	all, err := authors.Get(context.Background(), types.NewQuery().OrderBy("id"))
	require.NoError(t, err)
	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Name
	}
	return names
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	seedBooks(t, s)
	authors := NewRepository[author, int64](s)

	require.NoError(t, authors.Upsert(ctx, []string{"name"}, nil,
		&author{ID: 1, Name: "ada lovelace"},
		&author{ID: 3, Name: "cyd"},
	))
	_, err := s.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada lovelace", "bob", "cyd"}, authorNames(t, authors))

	require.NoError(t, authors.Upsert(ctx, []string{"name"}, []string{"name"}, &author{ID: 10, Name: "bob"}))
	_, err = s.SaveChanges(ctx)
	require.NoError(t, err)
	ok, err := authors.ExistsByID(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok, "a conflict on name keeps the existing row")

	require.NoError(t, authors.Upsert(ctx, []string{"name"}, nil))
	assert.ErrorIs(t, authors.Upsert(ctx, nil, nil, &author{ID: 1}), ErrInvalidQuery)
	assert.ErrorIs(t, authors.Upsert(ctx, []string{"name"}, nil, nil), ErrNilEntity)

	audits := NewRepository[auditEntry, int64](s)
	assert.ErrorIs(t, audits.Upsert(ctx, []string{"message"}, nil, &auditEntry{Message: "x"}), ErrNoPrimaryKey)
	assert.Zero(t, s.Pending())
}

func TestUpsertFallback(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	seedBooks(t, s)
	authors := NewRepository[author, int64](s)

	res, err := upsertFallback(ctx, s.DB(), []*author{{ID: 2, Name: "bob jr"}, {ID: 7, Name: "eve"}})
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, []string{"ada", "bob jr", "eve"}, authorNames(t, authors))
}
