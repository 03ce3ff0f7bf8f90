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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest(t *testing.T) {
	p := NewDefaultPageRequest(0, -5)
	assert.Equal(t, DefaultPage, p.GetPage())
	assert.Equal(t, DefaultPageSize, p.GetPageSize())
	assert.Zero(t, p.GetOffset())
	assert.NotNil(t, p.GetQuery())

	p = NewPageRequestWithOrders(3, 20, "id ASC")
	assert.Equal(t, 40, p.GetOffset())
	assert.Equal(t, []string{"id ASC"}, p.GetQuery().GetOrders())

	p = NewPageRequestWithFilter(1, 5, NewQueryFilter("name = ?", "a"))
	assert.Len(t, p.GetQuery().GetFilters(), 1)
}

func TestPageRequestWindowQuery(t *testing.T) {
	base := Where("color = ?", "red").Skip(100).Take(1)
	p := NewPageRequest(2, 25, base)

	w := p.WindowQuery()
	skip, _ := w.GetSkip()
	take, _ := w.GetTake()
	assert.Equal(t, 25, skip)
	assert.Equal(t, 25, take)
	assert.Len(t, w.GetFilters(), 1)

	skip, _ = base.GetSkip()
	assert.Equal(t, 100, skip, "the original query is untouched")
}

func TestPagination(t *testing.T) {
	tests := []struct {
		page, size int
		total      int64
		pages      int
		hasNext    bool
	}{
		{1, 10, 0, 0, false},
		{1, 10, 10, 1, false},
		{1, 10, 11, 2, true},
		{2, 10, 11, 2, false},
		{1, 0, 11, 0, false},
	}
	for _, tt := range tests {
		p := NewDefaultPagination[item](tt.page, tt.size)
		p.Total = tt.total
		assert.Equal(t, tt.pages, p.Pages(), "%+v", tt)
		assert.Equal(t, tt.hasNext, p.HasNext(), "%+v", tt)
		assert.NotNil(t, p.Items)
	}
}
