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

// HeapReader resolves a varlen handle written by Scatter back to bytes.
// Implemented by rowstore.Collection.
type HeapReader interface {
	ReadHeap(blockID buffer.BlockID, offset, length int32) []byte
}

// Gather is Scatter's inverse: reconstructs a column vector of length
// len(rows) by reading column colOffset out of each row.
func Gather(typ types.Type, rows [][]byte, colOffset int32, r HeapReader) *vector.Vector {
	n := len(rows)
	switch typ.Oid {
	case types.T_int64:
		out := make([]int64, n)
		for i, row := range rows {
			out[i] = int64(binary.LittleEndian.Uint64(row[colOffset:]))
		}
		return vector.NewInt64(out)
	case types.T_float64:
		out := make([]float64, n)
		for i, row := range rows {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(row[colOffset:]))
		}
		return vector.NewFloat64(out)
	case types.T_bool:
		out := make([]bool, n)
		for i, row := range rows {
			out[i] = row[colOffset] != 0
		}
		return vector.NewBool(out)
	case types.T_varchar:
		out := make([]string, n)
		for i, row := range rows {
			blockID := buffer.BlockID(binary.LittleEndian.Uint32(row[colOffset:]))
			off := int32(binary.LittleEndian.Uint32(row[colOffset+4:]))
			length := int32(binary.LittleEndian.Uint32(row[colOffset+8:]))
			out[i] = string(r.ReadHeap(blockID, off, length))
		}
		return vector.NewVarchar(out)
	}
	return nil
}
