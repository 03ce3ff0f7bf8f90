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

func TestTxState(t *testing.T) {
	assert.Equal(t, "rolled_back", TxRolledBack.String())
	assert.Equal(t, 1, TxActive.Number())
	assert.True(t, TxCommitted.Finished())
	assert.True(t, TxRolledBack.Finished())
	assert.False(t, TxActive.Finished())
	assert.NotEqual(t, IllegalDesc, TxClosed.Desc())

	invalid := TxState(42)
	assert.False(t, invalid.IsValid())
	assert.Equal(t, IllegalValue, invalid.Number())
	assert.Equal(t, IllegalName, invalid.Name())
	assert.Equal(t, IllegalDesc, invalid.Desc())
}

func TestJsonColumns(t *testing.T) {
	obj := JsonObject{"a": float64(1)}
	v, err := obj.Value()
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	var scanned JsonObject
	assert.NoError(t, scanned.Scan([]byte(`{"b":"x"}`)))
	assert.Equal(t, "x", scanned["b"])
	assert.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))

	var arr JsonArray
	assert.NoError(t, arr.Scan(`[{"c":true}]`))
	assert.Len(t, arr, 1)
	v, err = JsonArray(nil).Value()
	assert.NoError(t, err)
	assert.Nil(t, v)
}
