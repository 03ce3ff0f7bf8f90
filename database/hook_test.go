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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryHook(t *testing.T) {
	ctx := context.Background()

	t.Run("verbose prints every query", func(t *testing.T) {
		db := newTestDB(t)
		var buf bytes.Buffer
		db.AddQueryHook(&QueryHook{Verbose: true, Writer: &buf})

		_, err := db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "INSERT INTO")
		assert.Contains(t, buf.String(), "[BUN]")
	})

	t.Run("quiet prints failures only", func(t *testing.T) {
		db := newTestDB(t)
		var buf bytes.Buffer
		db.AddQueryHook(&QueryHook{Writer: &buf})

		_, err := db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
		require.NoError(t, err)
		assert.Empty(t, buf.String())

		_, err = db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
		require.Error(t, err)
		assert.Contains(t, buf.String(), "UNIQUE")
	})

	t.Run("env variable disables", func(t *testing.T) {
		t.Setenv("BUNREPO_TEST_DEBUG", "0")
		db := newTestDB(t)
		var buf bytes.Buffer
		db.AddQueryHook(&QueryHook{EnvName: "BUNREPO_TEST_DEBUG", Verbose: true, Writer: &buf})

		_, err := db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("silenced", func(t *testing.T) {
		SetQueryLogSilent(true)
		t.Cleanup(func() { SetQueryLogSilent(false) })

		db := newTestDB(t)
		var buf bytes.Buffer
		db.AddQueryHook(&QueryHook{Verbose: true, Writer: &buf})

		_, err := db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}

func TestSlowQueryHook(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	logger := &recordingLogger{}
	db.AddQueryHook(&SlowQueryHook{SlowTime: time.Nanosecond, Logger: logger})

	_, err := db.NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
	require.NoError(t, err)
	assert.True(t, logger.has("warn", "Database slow query detected"))
}
