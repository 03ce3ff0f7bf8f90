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
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a query that requires a match has none.
	// It wraps sql.ErrNoRows.
	ErrNotFound = fmt.Errorf("repository: entity not found: %w", sql.ErrNoRows)

	// ErrMultipleResults is returned by GetSingle and GetSingleOrDefault when
	// more than one row matches.
	ErrMultipleResults = errors.New("repository: query returned more than one entity")

	// ErrKeyMismatch is returned when the number of key values differs from
	// the number of primary key columns.
	ErrKeyMismatch = errors.New("repository: key values do not match the primary key")

	ErrNoPrimaryKey = errors.New("repository: model has no primary key")
	ErrNilEntity    = errors.New("repository: entity is nil")
	ErrInvalidQuery = errors.New("repository: invalid query")
)
