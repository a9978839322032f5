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

	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
)

// HeapWriter lets Scatter spill a varchar row's bytes into the row
// store's heap blocks and get back a (block, offset) handle to record
// inline. It is implemented by rowstore.Collection.
type HeapWriter interface {
	WriteHeap(data []byte) (blockID buffer.BlockID, offset int32)
}

// HeapPointerWidth is the fixed width of the inline varlen handle:
// 4-byte block id, 4-byte offset, 4-byte length, 4 bytes padding to
// keep the slot 8-byte aligned for the column that follows it.
const HeapPointerWidth = 16

// Scatter writes row i of v into rows[i] at byte offset colOffset, for
// every row in [0, n). Fixed-width columns are copied in place; varchar
// columns are written to heap via w and an inline pointer is stored
// instead.
func Scatter(v *vector.Vector, rows [][]byte, colOffset int32, w HeapWriter) {
	n := len(rows)
	switch v.Typ.Oid {
	case types.T_int64:
		data := v.Int64()
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint64(rows[i][colOffset:], uint64(data[i]))
		}
	case types.T_float64:
		data := v.Float64()
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint64(rows[i][colOffset:], math.Float64bits(data[i]))
		}
	case types.T_bool:
		data := v.Bool()
		for i := 0; i < n; i++ {
			if data[i] {
				rows[i][colOffset] = 1
			} else {
				rows[i][colOffset] = 0
			}
		}
	case types.T_varchar:
		data := v.Varchar()
		for i := 0; i < n; i++ {
			blockID, off := w.WriteHeap([]byte(data[i]))
			binary.LittleEndian.PutUint32(rows[i][colOffset:], uint32(blockID))
			binary.LittleEndian.PutUint32(rows[i][colOffset+4:], uint32(off))
			binary.LittleEndian.PutUint32(rows[i][colOffset+8:], uint32(len(data[i])))
		}
	}
}
