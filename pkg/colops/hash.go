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

// Package colops is the concrete column-operations library the join
// core is written against: hashing, combining, scatter into row
// storage, gather back out of it, and equality matching. A real column
// library would vectorize these with SIMD; this one is scalar, looping
// column-major like the reference implementation it's grounded on, but
// keeps the same entry points so the join core never cares which.
package colops

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
)

// Hash computes a hash for row i of v and writes it into out[i]. Null
// values hash to a fixed sentinel so NULL = NULL semantics (when
// NullEqual is set for a condition) still get them into the same
// bucket.
func Hash(v *vector.Vector, out []uint64) {
	n := v.Length()
	var buf [8]byte
	for i := 0; i < n; i++ {
		if v.IsNull(i) {
			out[i] = nullHashSentinel
			continue
		}
		switch v.Typ.Oid {
		case types.T_int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(v.Int64()[i]))
			out[i] = xxhash.Sum64(buf[:])
		case types.T_float64:
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Float64()[i]))
			out[i] = xxhash.Sum64(buf[:])
		case types.T_bool:
			if v.Bool()[i] {
				out[i] = xxhash.Sum64([]byte{1})
			} else {
				out[i] = xxhash.Sum64([]byte{0})
			}
		case types.T_varchar:
			out[i] = xxhash.Sum64String(v.Varchar()[i])
		}
	}
}

const nullHashSentinel uint64 = 0x9e3779b97f4a7c15

// CombineHash folds the hash of an additional equality column into an
// existing per-row hash, in place. Multi-column equality conditions call
// Hash for the first column then CombineHash for every subsequent one.
func CombineHash(v *vector.Vector, acc []uint64) {
	tmp := make([]uint64, v.Length())
	Hash(v, tmp)
	for i := range acc {
		acc[i] = combine(acc[i], tmp[i])
	}
}

func combine(a, b uint64) uint64 {
	// Same mixing DuckDB's CombineHash uses: multiply by a large odd
	// constant then XOR, cheap and avalanches well enough for bucket
	// routing.
	a ^= b
	a *= 0xff51afd7ed558ccd
	a ^= a >> 33
	return a
}
