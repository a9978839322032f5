// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package types is the closed set of column types this module's column
// store, row layout, and colops library are written against: two fixed-
// width numeric kinds, a bool, and one variable-length kind. A real
// column library carries dozens of SQL types; the join core only ever
// needs to know a type's width (or that it's heap-backed), so the set
// here is deliberately small.
package types

type T uint8

const (
	T_int64 T = iota
	T_float64
	T_bool
	T_varchar
)

func (t T) String() string {
	switch t {
	case T_int64:
		return "INT64"
	case T_float64:
		return "FLOAT64"
	case T_bool:
		return "BOOL"
	case T_varchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Type carries a type oid plus its fixed-width footprint in the row
// layout. Varchar rows store a 16-byte (pointer, length) pair inline and
// their bytes out in the row collection's heap blocks.
type Type struct {
	Oid   T
	Width int32 // byte width of the in-row representation
}

func (t Type) IsVarlen() bool { return t.Oid == T_varchar }

var (
	Int64   = Type{Oid: T_int64, Width: 8}
	Float64 = Type{Oid: T_float64, Width: 8}
	Bool    = Type{Oid: T_bool, Width: 1}
	// Varchar's in-row slot holds a 16-byte pointer+length pair regardless
	// of the actual string length, which lives in a heap block.
	Varchar = Type{Oid: T_varchar, Width: 16}
)
