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

// Package hashindex is the chained hash bucket array sitting on top of
// a row store: a power-of-two slice of RowPointer, each either Nil or
// the head of a chain threaded through the rows' own shared hash/next
// slot (see rowstore.Collection.ChainSlot).
package hashindex

import (
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// Chain is the minimal row-store view a BucketArray needs: read a row's
// pre-Finalize hash, and read/write its chain slot.
type Chain interface {
	ChainSlot(ptr rowstore.RowPointer) uint64
	SetChainSlot(ptr rowstore.RowPointer, v uint64)
}

type BucketArray struct {
	buckets  []uint64 // encoded RowPointer per bucket, rowstore.Nil if empty
	capacity uint64
	bitmask  uint64
	count    int64
}

// NewBucketArray sizes the array to the next power of two at least
// rowCount/loadFactor, matching the reference's "never resize during
// Finalize" build protocol: capacity is fixed once and for all up
// front.
func NewBucketArray(rowCount int64, loadFactor float64) *BucketArray {
	if loadFactor <= 0 {
		loadFactor = 1.0
	}
	want := uint64(float64(rowCount)/loadFactor) + 1
	cap := uint64(1)
	for cap < want {
		cap <<= 1
	}
	if cap == 0 {
		cap = 1
	}
	b := &BucketArray{
		buckets:  make([]uint64, cap),
		capacity: cap,
		bitmask:  cap - 1,
	}
	nilEnc := rowstore.EncodeRowPointer(rowstore.Nil)
	for i := range b.buckets {
		b.buckets[i] = nilEnc
	}
	return b
}

func (b *BucketArray) Capacity() uint64 { return b.capacity }

func (b *BucketArray) Count() int64 { return b.count }

// Insert threads row onto the bucket chain for hash, in O(1): the row's
// chain slot becomes the previous bucket head, and the bucket head
// becomes row. This is the reference's InsertHashesLoop order — new
// rows are prepended, so a chain walk sees the most-recently-inserted
// duplicate first.
func (b *BucketArray) Insert(chain Chain, hash uint64, row rowstore.RowPointer) {
	idx := hash & b.bitmask
	prevHead := b.buckets[idx]
	chain.SetChainSlot(row, prevHead)
	b.buckets[idx] = rowstore.EncodeRowPointer(row)
	b.count++
}

// Head returns the first row in hash's chain, or rowstore.Nil if empty.
func (b *BucketArray) Head(hash uint64) rowstore.RowPointer {
	idx := hash & b.bitmask
	return rowstore.DecodeRowPointer(b.buckets[idx])
}

// Next returns the next row in the chain after row, reading row's
// chain slot, which by this point holds a "next" RowPointer rather
// than a hash (see rowstore.Layout.HashOffset's doc comment).
func Next(chain Chain, row rowstore.RowPointer) rowstore.RowPointer {
	return rowstore.DecodeRowPointer(chain.ChainSlot(row))
}

// Finalize asserts the array was built with the row count it was sized
// for. The reference builds the array once rows are fixed and never
// resizes; this module keeps the same contract and surfaces a violation
// rather than silently growing, since growing here would require
// rehashing every existing chain.
func (b *BucketArray) Finalize(expectedRows int64) error {
	if b.count != expectedRows {
		return moerr.NewInvariantViolation("hashindex: built %d rows, expected %d", b.count, expectedRows)
	}
	return nil
}
