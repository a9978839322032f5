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
	"github.com/vecjoin/joinhash/pkg/hashindex"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// Probe starts a scan of one probe-side chunk against the finalized
// build table. probeCorrelatedCols is only consulted for Mark joins
// with a correlated subquery; pass nil otherwise.
func (jht *JoinHashTable) Probe(probeCols []*vector.Vector, probeCorrelatedCols []*vector.Vector) (*ScanStructure, error) {
	if !jht.finalized {
		return nil, moerr.NewInvariantViolation("jointable: Probe called before Finalize")
	}
	if len(probeCols) == 0 {
		return nil, moerr.NewInvalidInput("jointable: Probe needs at least one column")
	}

	n := probeCols[0].Length()
	hashes := make([]uint64, n)
	colops.Hash(probeCols[jht.opts.Conditions[0].ProbeColumn], hashes)
	for _, cond := range jht.opts.Conditions[1:] {
		colops.CombineHash(probeCols[cond.ProbeColumn], hashes)
	}

	var groupHashes []uint64
	if jht.opts.JoinType == Mark && len(probeCorrelatedCols) > 0 {
		groupHashes = make([]uint64, n)
		colops.Hash(probeCorrelatedCols[0], groupHashes)
		for _, c := range probeCorrelatedCols[1:] {
			colops.CombineHash(c, groupHashes)
		}
	}

	states := make([]rowState, n)
	for i := 0; i < n; i++ {
		nullKey := false
		for _, cond := range jht.opts.Conditions {
			if !cond.NullEqual && probeCols[cond.ProbeColumn].IsNull(i) {
				nullKey = true
				break
			}
		}
		if nullKey {
			states[i].chain = rowstore.Nil
			states[i].exhausted = true
			states[i].nullKey = true
			continue
		}
		states[i].chain = jht.buckets.Head(hashes[i])
		states[i].exhausted = states[i].chain.IsNil()
	}

	return &ScanStructure{
		jht:         jht,
		probeCols:   probeCols,
		hashes:      hashes,
		groupHashes: groupHashes,
		states:      states,
	}, nil
}

// rowState tracks one probe row's walk through its hash bucket chain.
type rowState struct {
	chain      rowstore.RowPointer
	exhausted  bool
	anyMatch   bool
	terminated bool // final (no-match) row already emitted for LEFT/OUTER/etc
	nullKey    bool // probe row had a null key on a non-null-equal condition
}

func (jht *JoinHashTable) chainNext(ptr rowstore.RowPointer) rowstore.RowPointer {
	return hashindex.Next(chainAdapter{jht.rows}, ptr)
}
