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

package colops

import (
	"encoding/binary"
	"math"

	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
)

// CompareOp is the comparator a join condition evaluates between a
// probe column value and a build row's stored column.
type CompareOp uint8

const (
	Equal CompareOp = iota
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

// Match reports whether probe row i of v, under op, matches the fixed-
// width value already scattered into buildCol (the column's own byte
// slice, not the whole row). buildNull must already reflect the row's
// validity bitmap for this column, since that bitmap lives outside
// buildCol. nullEqual controls whether two NULLs compare equal.
func Match(v *vector.Vector, i int, buildCol []byte, buildNull bool, op CompareOp, nullEqual bool) bool {
	probeNull := v.IsNull(i)
	if probeNull || buildNull {
		return nullEqual && op == Equal && probeNull && buildNull
	}

	switch v.Typ.Oid {
	case types.T_int64:
		a := v.Int64()[i]
		b := int64(binary.LittleEndian.Uint64(buildCol))
		return compareInt64(a, b, op)
	case types.T_float64:
		a := v.Float64()[i]
		b := math.Float64frombits(binary.LittleEndian.Uint64(buildCol))
		return compareFloat64(a, b, op)
	case types.T_bool:
		a := v.Bool()[i]
		b := buildCol[0] != 0
		if op == Equal {
			return a == b
		}
		return a != b
	}
	return false
}

func compareInt64(a, b int64, op CompareOp) bool {
	switch op {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case Less:
		return a < b
	case LessEqual:
		return a <= b
	case Greater:
		return a > b
	case GreaterEqual:
		return a >= b
	}
	return false
}

func compareFloat64(a, b float64, op CompareOp) bool {
	switch op {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case Less:
		return a < b
	case LessEqual:
		return a <= b
	case Greater:
		return a > b
	case GreaterEqual:
		return a >= b
	}
	return false
}

// MatchVarchar compares a probe string to an already-gathered build
// string; used once ScanStructure has resolved the build row's varchar
// bytes through Gather, since varchar values aren't fixed-width in the
// row itself.
func MatchVarchar(a, b string, op CompareOp) bool {
	switch op {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case Less:
		return a < b
	case LessEqual:
		return a <= b
	case Greater:
		return a > b
	case GreaterEqual:
		return a >= b
	}
	return false
}
