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

package jointable

import (
	"go.uber.org/zap"

	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/hashindex"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// chainAdapter satisfies hashindex.Chain against our Collection.
type chainAdapter struct{ c *rowstore.Collection }

func (a chainAdapter) ChainSlot(ptr rowstore.RowPointer) uint64   { return a.c.ChainSlot(ptr) }
func (a chainAdapter) SetChainSlot(ptr rowstore.RowPointer, v uint64) { a.c.SetChainSlot(ptr, v) }

// Finalize builds the bucket array over every row appended so far,
// threading each row's chain through the slot that held its pre-
// Finalize hash. No more Build calls are accepted afterward. Safe to
// call exactly once per table; a partitioned build instead calls
// FinalizeExternal per partition.
func (jht *JoinHashTable) Finalize() error {
	if jht.finalized {
		return moerr.NewInvariantViolation("jointable: Finalize called twice")
	}

	rowCount := jht.rows.RowCount()
	jht.buckets = hashindex.NewBucketArray(rowCount, jht.opts.LoadFactor)

	chain := chainAdapter{jht.rows}
	jht.rows.ForEachBlock(func(blockIdx int32, rowCount int32, rowAt func(int32) []byte) {
		for r := int32(0); r < rowCount; r++ {
			ptr := rowstore.RowPointer{Block: blockIdx, Row: r}
			hash := jht.rows.ChainSlot(ptr)
			jht.buckets.Insert(chain, hash, ptr)
		}
	})

	if err := jht.buckets.Finalize(rowCount); err != nil {
		return err
	}

	if jht.opts.JoinType.NeedsBuildMatchTracking() {
		jht.matched = make([]byte, rowCount)
	}

	jht.finalized = true
	jht.log.Debug("jointable: finalized",
		zap.Int64("row_count", rowCount),
		zap.Uint64("bucket_capacity", jht.buckets.Capacity()))
	return nil
}

// markMatched records, with a plain byte store, that build row index
// idx (in storage order — see rowIndex) has been matched by some probe
// row. Concurrent writers may race here; every writer stores the same
// value so the outcome is the same regardless of ordering, matching the
// monotonic-flag argument in SPEC_FULL.md §9.
func (jht *JoinHashTable) markMatched(idx int64) {
	if jht.matched != nil {
		jht.matched[idx] = 1
	}
}

func (jht *JoinHashTable) isMatched(idx int64) bool {
	return jht.matched != nil && jht.matched[idx] != 0
}
