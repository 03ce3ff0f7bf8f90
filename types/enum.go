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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// TxState is the transaction state of a persistence session.
type TxState int

const (
	TxIdle TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
	TxClosed
)

var _ BaseEnum = TxIdle

var txStateNames = map[TxState][2]string{
	TxIdle:       {"idle", "no transaction has been started"},
	TxActive:     {"active", "a transaction is open"},
	TxCommitted:  {"committed", "the last transaction was committed"},
	TxRolledBack: {"rolled_back", "the last transaction was rolled back"},
	TxClosed:     {"closed", "the session has been closed"},
}

func (s TxState) IsValid() bool {
	_, ok := txStateNames[s]
	return ok
}

func (s TxState) Number() int {
	if !s.IsValid() {
		return IllegalValue
	}
	return int(s)
}

func (s TxState) Name() string {
	if v, ok := txStateNames[s]; ok {
		return v[0]
	}
	return IllegalName
}

func (s TxState) String() string { return s.Name() }

func (s TxState) Desc() string {
	if v, ok := txStateNames[s]; ok {
		return v[1]
	}
	return IllegalDesc
}

// Finished reports whether the state ends a transaction.
func (s TxState) Finished() bool {
	return s == TxCommitted || s == TxRolledBack
}
