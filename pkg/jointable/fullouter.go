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
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// FullOuterScanner walks every build row exactly once, in storage
// order, to emit the build rows a RIGHT/OUTER/RIGHT_SEMI/RIGHT_ANTI
// join still owes after every probe chunk has been processed. It holds
// a single shared cursor so parallel probe workers can all pull from it
// after a barrier without double-emitting a row — see
// pkg/parallel.PartitionEvent for how the barrier is enforced.
type FullOuterScanner struct {
	jht    *JoinHashTable
	cursor int64
}

func (jht *JoinHashTable) NewFullOuterScanner() (*FullOuterScanner, error) {
	if !jht.opts.JoinType.NeedsBuildMatchTracking() {
		return nil, moerr.NewInvariantViolation("jointable: FullOuterScanner requested for join type %s", jht.opts.JoinType)
	}
	if !jht.finalized {
		return nil, moerr.NewInvariantViolation("jointable: FullOuterScanner requested before Finalize")
	}
	return &FullOuterScanner{jht: jht}, nil
}

// Next returns up to maxRows build RowPointers still owed by this join
// kind, and whether the scan has more rows after this call. For
// Right/Outer that means rows never matched; for RightSemi, rows that
// were matched; for RightAnti, rows that were not.
func (s *FullOuterScanner) Next(maxRows int) ([]rowstore.RowPointer, bool) {
	jht := s.jht
	want := func(matched bool) bool {
		switch jht.opts.JoinType {
		case RightSemi:
			return matched
		default: // Right, Outer, RightAnti
			return !matched
		}
	}

	var out []rowstore.RowPointer
	total := jht.RowCount()
	for s.cursor < total && len(out) < maxRows {
		idx := s.cursor
		s.cursor++
		if want(jht.isMatched(idx)) {
			block := int32(idx / int64(jht.opts.RowsPerBlock))
			row := int32(idx % int64(jht.opts.RowsPerBlock))
			out = append(out, rowstore.RowPointer{Block: block, Row: row})
		}
	}
	return out, s.cursor < total
}
