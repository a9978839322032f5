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

package radix

import (
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// Partition routes every row of src into one of 2^bits destination
// collections by the top bits of its pre-Finalize hash (read out of the
// row's shared hash/next slot), and fills h with the resulting counts.
// Rows are physically copied, including re-homing varlen heap bytes, so
// each destination collection owns its bytes outright — required once a
// destination may be unswizzled and evicted independently of src.
func Partition(src *rowstore.Collection, pool *buffer.Pool, rowsPerBlock int32, bits int) (dests []*rowstore.Collection, h *Histogram, err error) {
	h = NewHistogram(bits)
	dests = make([]*rowstore.Collection, 1<<bits)
	for i := range dests {
		dests[i] = rowstore.NewCollection(src.Layout, pool, rowsPerBlock)
	}

	src.ForEachBlock(func(blockIdx int32, rowCount int32, rowAt func(int32) []byte) {
		if err != nil {
			return
		}
		for r := int32(0); r < rowCount; r++ {
			ptr := rowstore.RowPointer{Block: blockIdx, Row: r}
			hash := src.ChainSlot(ptr)
			h.Add(hash)
			part := h.PartitionOf(hash)
			if _, copyErr := src.CopyRowTo(dests[part], ptr); copyErr != nil {
				err = copyErr
				return
			}
		}
	})
	return dests, h, err
}
