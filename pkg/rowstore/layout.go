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

// Package rowstore is the row layout and row data collection: the
// fixed-width row format every build row is scattered into, and the
// block-chunked collection that owns the bytes.
package rowstore

import "github.com/vecjoin/joinhash/pkg/container/types"

// Layout describes the byte shape of one row: a leading validity
// bitmap (one bit per nullable column), the columns themselves in
// declaration order, then a trailing 8-byte slot shared by the
// pre-Finalize hash and the post-Finalize bucket-chain "next" pointer,
// and finally any aggregate payload width (unused by this module but
// kept as a named field since every row format in the reference carries
// one).
type Layout struct {
	Columns []types.Type

	bitmapWidth     int32
	columnOffsets   []int32
	dataWidth       int32 // bitmap + columns
	heapSizeOffset  int32 // -1 if no varlen column
	hasVarlen       bool
	hashOffset      int32 // shared with the bucket "next" pointer post-Finalize
	rowWidth        int32
}

const hashSlotWidth = 8

func NewLayout(columns []types.Type) *Layout {
	l := &Layout{Columns: columns, heapSizeOffset: -1}

	l.bitmapWidth = int32((len(columns) + 7) / 8)
	offset := l.bitmapWidth
	l.columnOffsets = make([]int32, len(columns))
	for i, c := range columns {
		l.columnOffsets[i] = offset
		offset += c.Width
		if c.IsVarlen() {
			l.hasVarlen = true
		}
	}
	if l.hasVarlen {
		l.heapSizeOffset = offset
		offset += 4 // uint32 total heap bytes for this row
	}
	l.dataWidth = offset
	l.hashOffset = offset
	l.rowWidth = offset + hashSlotWidth
	return l
}

func (l *Layout) RowWidth() int32 { return l.rowWidth }

func (l *Layout) DataWidth() int32 { return l.dataWidth }

func (l *Layout) ColumnOffset(i int) int32 { return l.columnOffsets[i] }

func (l *Layout) BitmapWidth() int32 { return l.bitmapWidth }

func (l *Layout) HasVarlen() bool { return l.hasVarlen }

func (l *Layout) HeapSizeOffset() int32 { return l.heapSizeOffset }

// HashOffset is where the pre-Finalize row hash lives. After Finalize
// the same 8 bytes are reinterpreted as the bucket chain's "next"
// RowPointer — see pkg/hashindex.
func (l *Layout) HashOffset() int32 { return l.hashOffset }

// ColumnValid reports whether column i of the row at rowBytes is
// non-null, per the leading validity bitmap. A set bit means valid,
// matching the convention the rest of this module's bitmaps use.
func (l *Layout) ColumnValid(rowBytes []byte, i int) bool {
	byteIdx := i / 8
	bitIdx := i % 8
	return rowBytes[byteIdx]&(1<<bitIdx) != 0
}

func (l *Layout) SetColumnValid(rowBytes []byte, i int, valid bool) {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	if valid {
		rowBytes[byteIdx] |= 1 << bitIdx
	} else {
		rowBytes[byteIdx] &^= 1 << bitIdx
	}
}
