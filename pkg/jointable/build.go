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
	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/container/vector"
)

// Build appends one chunk of build-side columns and computes each row's
// equality-key hash, stashed in the row's shared hash/next slot until
// Finalize threads the bucket chains through it. correlatedCols, when
// the table is a MARK join's build side, feeds the per-group COUNT(*)
// /COUNT(col) side aggregate (pkg/markagg); nil for every other kind.
func (jht *JoinHashTable) Build(cols []*vector.Vector, correlatedCols []*vector.Vector) error {
	if jht.finalized {
		return moerr.NewInvariantViolation("jointable: Build called after Finalize")
	}
	if len(cols) == 0 {
		return moerr.NewInvalidInput("jointable: Build needs at least one column")
	}

	pointers, err := jht.rows.Append(cols, nil)
	if err != nil {
		return err
	}

	n := cols[0].Length()
	hashes := make([]uint64, n)
	colops.Hash(cols[jht.opts.Conditions[0].BuildColumn], hashes)
	for _, cond := range jht.opts.Conditions[1:] {
		colops.CombineHash(cols[cond.BuildColumn], hashes)
	}
	for i, ptr := range pointers {
		jht.rows.SetChainSlot(ptr, hashes[i])
		jht.histogram.Add(hashes[i])
	}

	if jht.opts.JoinType == Mark {
		for i := 0; i < n; i++ {
			for _, cond := range jht.opts.Conditions {
				if !cond.NullEqual && cols[cond.BuildColumn].IsNull(i) {
					jht.hasNull = true
					break
				}
			}
		}
	}

	if jht.opts.JoinType == Mark && jht.markAgg != nil && len(correlatedCols) > 0 {
		groupHashes := make([]uint64, n)
		colops.Hash(correlatedCols[0], groupHashes)
		for _, c := range correlatedCols[1:] {
			colops.CombineHash(c, groupHashes)
		}
		countCol := cols[jht.opts.Conditions[0].BuildColumn]
		for i := 0; i < n; i++ {
			jht.markAgg.Add(groupHashes[i], !countCol.IsNull(i))
		}
	}

	return nil
}
