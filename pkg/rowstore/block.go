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

package rowstore

import "github.com/vecjoin/joinhash/pkg/common/buffer"

// rowBlock is one fixed-capacity array of rows, plus the buffer pool
// block backing its bytes. heap holds this block's rows' variable-length
// payloads, append-only and never compacted; a row's heap bytes are
// addressed by a (heapBlock, offset) pair stored inline in the row
// itself once a column's bytes are written.
type rowBlock struct {
	id       buffer.BlockID
	data     []byte
	count    int32
	capacity int32

	heapID   buffer.BlockID
	heap     []byte
	heapUsed int32
}

func (b *rowBlock) full(layout *Layout) bool {
	return b.count >= b.capacity
}

func (b *rowBlock) rowBytes(layout *Layout, row int32) []byte {
	off := row * layout.RowWidth()
	return b.data[off : off+layout.RowWidth()]
}
