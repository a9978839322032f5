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

import (
	"encoding/binary"

	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/container/vector"
)

// Collection is the append-only row store: a chain of fixed-capacity
// row blocks plus parallel heap blocks for varlen payloads. Rows are
// addressed by RowPointer, never by raw address, so a Collection can be
// unswizzled (unpinned, eligible for eviction) and re-swizzled (pinned
// back in) without invalidating anything a caller is holding onto.
type Collection struct {
	Layout *Layout

	pool      *buffer.Pool
	blocks    []*rowBlock
	rowsPerBk int32

	// swizzled tracks the one spec invariant this type enforces: a
	// Collection is either fully pinned ("swizzled", safe to Append/scan)
	// or fully unpinned ("unswizzled", safe to let the pool evict). No
	// operation that touches row bytes is legal while unswizzled.
	swizzled bool
}

func NewCollection(layout *Layout, pool *buffer.Pool, rowsPerBlock int32) *Collection {
	return &Collection{
		Layout:    layout,
		pool:      pool,
		rowsPerBk: rowsPerBlock,
		swizzled:  true,
	}
}

func (c *Collection) RowCount() int64 {
	var n int64
	for _, b := range c.blocks {
		n += int64(b.count)
	}
	return n
}

func (c *Collection) BlockCount() int { return len(c.blocks) }

func (c *Collection) SizeInBytes() int64 {
	var n int64
	for _, b := range c.blocks {
		n += int64(len(b.data)) + int64(len(b.heap))
	}
	return n
}

func (c *Collection) requireSwizzled() error {
	if !c.swizzled {
		return moerr.NewInvariantViolation("rowstore: collection is unswizzled")
	}
	return nil
}

func (c *Collection) lastBlock() *rowBlock {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

func (c *Collection) newBlock() *rowBlock {
	id, data := c.pool.Allocate()
	heapID, heap := c.pool.Allocate()
	b := &rowBlock{
		id:       id,
		data:     data[:c.rowsPerBk*c.Layout.RowWidth()],
		capacity: c.rowsPerBk,
		heapID:   heapID,
		heap:     heap,
	}
	c.blocks = append(c.blocks, b)
	return b
}

// AppendRawRow reserves one zeroed row slot and returns its pointer and
// backing bytes for the caller to fill directly. Used by radix
// partitioning and external-join merge, which copy whole rows
// (including resolving varlen heap pointers into the destination) rather
// than re-running column Scatter.
func (c *Collection) AppendRawRow() (RowPointer, []byte, error) {
	if err := c.requireSwizzled(); err != nil {
		return RowPointer{}, nil, err
	}
	b := c.lastBlock()
	if b == nil || b.full(c.Layout) {
		b = c.newBlock()
	}
	row := b.count
	blockIdx := int32(len(c.blocks) - 1)
	rb := b.rowBytes(c.Layout, row)
	for k := range rb {
		rb[k] = 0
	}
	b.count++
	return RowPointer{Block: blockIdx, Row: row}, rb, nil
}

// CopyRowTo duplicates the row at ptr into dst, re-homing any varlen
// column's heap bytes into dst's own heap blocks so dst never holds a
// pointer back into c. Returns the new pointer in dst.
func (c *Collection) CopyRowTo(dst *Collection, ptr RowPointer) (RowPointer, error) {
	src := c.RowBytes(ptr)
	newPtr, dstRow, err := dst.AppendRawRow()
	if err != nil {
		return RowPointer{}, err
	}
	copy(dstRow, src)

	for i, col := range c.Layout.Columns {
		if !col.IsVarlen() {
			continue
		}
		off := c.Layout.ColumnOffset(i)
		blockID := buffer.BlockID(binary.LittleEndian.Uint32(src[off:]))
		heapOff := int32(binary.LittleEndian.Uint32(src[off+4:]))
		length := int32(binary.LittleEndian.Uint32(src[off+8:]))
		data := c.ReadHeap(blockID, heapOff, length)
		newBlockID, newOff := dst.WriteHeap(data)
		binary.LittleEndian.PutUint32(dstRow[off:], uint32(newBlockID))
		binary.LittleEndian.PutUint32(dstRow[off+4:], uint32(newOff))
		binary.LittleEndian.PutUint32(dstRow[off+8:], uint32(length))
	}
	return newPtr, nil
}

// Append scatters one chunk of columns into new rows and returns the
// RowPointer assigned to each. cols must be in Layout.Columns order and
// all share the same length. validity[i] reports, per row, whether
// column i is non-null; a nil entry means "always valid."
func (c *Collection) Append(cols []*vector.Vector, validity []*vector.Vector) ([]RowPointer, error) {
	if err := c.requireSwizzled(); err != nil {
		return nil, err
	}
	if len(cols) != len(c.Layout.Columns) {
		return nil, moerr.NewInvalidInput("rowstore: append got %d columns, layout wants %d", len(cols), len(c.Layout.Columns))
	}
	if len(cols) == 0 {
		return nil, moerr.NewInvalidInput("rowstore: append needs at least one column")
	}
	n := cols[0].Length()

	pointers := make([]RowPointer, n)
	rowBytesBuf := make([][]byte, n)

	remaining := n
	srcOffset := 0
	for remaining > 0 {
		b := c.lastBlock()
		if b == nil || b.full(c.Layout) {
			b = c.newBlock()
		}
		take := int(b.capacity - b.count)
		if take > remaining {
			take = remaining
		}
		blockIdx := int32(len(c.blocks) - 1)

		rows := make([][]byte, take)
		for i := 0; i < take; i++ {
			row := b.count + int32(i)
			rb := b.rowBytes(c.Layout, row)
			for k := range rb {
				rb[k] = 0
			}
			rows[i] = rb
			pointers[srcOffset+i] = RowPointer{Block: blockIdx, Row: row}
			rowBytesBuf[srcOffset+i] = rb
		}

		for ci, col := range cols {
			window := col.Window(srcOffset, srcOffset+take)
			colops.Scatter(window, rows, c.Layout.ColumnOffset(ci), c)
			for i := 0; i < take; i++ {
				valid := true
				if ci < len(validity) && validity[ci] != nil {
					valid = !validity[ci].IsNull(srcOffset + i)
				} else {
					valid = !col.IsNull(srcOffset + i)
				}
				c.Layout.SetColumnValid(rows[i], ci, valid)
			}
		}

		b.count += int32(take)
		remaining -= take
		srcOffset += take
	}

	return pointers, nil
}

// RowBytes returns the full row (bitmap + columns + hash/next slot) for
// ptr.
func (c *Collection) RowBytes(ptr RowPointer) []byte {
	b := c.blocks[ptr.Block]
	return b.rowBytes(c.Layout, ptr.Row)
}

// WriteHeap implements colops.HeapWriter against this collection's
// current block's heap arena, growing it if needed.
func (c *Collection) WriteHeap(data []byte) (buffer.BlockID, int32) {
	b := c.lastBlock()
	if b == nil {
		b = c.newBlock()
	}
	if int(b.heapUsed)+len(data) > len(b.heap) {
		grown := make([]byte, len(b.heap)*2+len(data)+64)
		copy(grown, b.heap[:b.heapUsed])
		b.heap = grown
	}
	off := b.heapUsed
	copy(b.heap[off:], data)
	b.heapUsed += int32(len(data))
	return b.heapID, off
}

// ReadHeap implements colops.HeapReader. The heap block id is looked up
// by linear scan over this collection's blocks since heap blocks are
// always owned 1:1 by a row block created in the same newBlock call.
func (c *Collection) ReadHeap(blockID buffer.BlockID, offset, length int32) []byte {
	for _, b := range c.blocks {
		if b.heapID == blockID {
			return b.heap[offset : offset+length]
		}
	}
	return nil
}

// Swizzle pins every block back into the buffer pool, making the
// collection's rows safe to read or append to again.
func (c *Collection) Swizzle() {
	for _, b := range c.blocks {
		_, _ = c.pool.Pin(b.id)
		_, _ = c.pool.Pin(b.heapID)
	}
	c.swizzled = true
}

// Unswizzle unpins every block, making the collection eligible for
// eviction. No row access is legal until the next Swizzle.
func (c *Collection) Unswizzle() {
	for _, b := range c.blocks {
		c.pool.Unpin(b.id)
		c.pool.Unpin(b.heapID)
	}
	c.swizzled = false
}

func (c *Collection) IsSwizzled() bool { return c.swizzled }

// Merge appends other's blocks onto c wholesale (no row copy) and
// returns the block-index offset that was applied, so a caller holding
// RowPointers into other can translate them: p.Block += offset.
func (c *Collection) Merge(other *Collection) int32 {
	offset := int32(len(c.blocks))
	c.blocks = append(c.blocks, other.blocks...)
	other.blocks = nil
	return offset
}

// ChainSlot reads the 8-byte hash/next slot shared by every row, as a
// raw uint64. Before Finalize this holds the row's hash; after
// Finalize, pkg/hashindex overlays the bucket chain's "next" RowPointer
// onto the same bytes via EncodeRowPointer/DecodeRowPointer.
func (c *Collection) ChainSlot(ptr RowPointer) uint64 {
	row := c.RowBytes(ptr)
	off := c.Layout.HashOffset()
	return beUint64(row[off : off+hashSlotWidth])
}

func (c *Collection) SetChainSlot(ptr RowPointer, v uint64) {
	row := c.RowBytes(ptr)
	off := c.Layout.HashOffset()
	putBeUint64(row[off:off+hashSlotWidth], v)
}

// EncodeRowPointer packs a RowPointer into the 8-byte chain slot
// representation: high 32 bits block index, low 32 bits row index.
// Nil encodes as all-ones, distinct from any real (block, row).
func EncodeRowPointer(p RowPointer) uint64 {
	if p.IsNil() {
		return ^uint64(0)
	}
	return uint64(uint32(p.Block))<<32 | uint64(uint32(p.Row))
}

func DecodeRowPointer(v uint64) RowPointer {
	if v == ^uint64(0) {
		return Nil
	}
	return RowPointer{Block: int32(v >> 32), Row: int32(uint32(v))}
}

func beUint64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

func putBeUint64(b []byte, v uint64) {
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
}

// ForEachBlock visits every block's row count and lets the caller read
// row bytes by index, used by Finalize/Partition to walk rows in
// storage order without exposing rowBlock.
func (c *Collection) ForEachBlock(fn func(blockIdx int32, rowCount int32, rowAt func(row int32) []byte)) {
	for i, b := range c.blocks {
		idx := int32(i)
		fn(idx, b.count, func(row int32) []byte { return b.rowBytes(c.Layout, row) })
	}
}
