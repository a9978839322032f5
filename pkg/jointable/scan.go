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
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// ScanStructure walks the matches for one probe chunk, a bounded number
// of result rows at a time via Next.
type ScanStructure struct {
	jht         *JoinHashTable
	probeCols   []*vector.Vector
	hashes      []uint64
	groupHashes []uint64
	states      []rowState
	cursor      int
}

// Result is one batch of joined rows: ProbeSel indexes into the probe
// chunk that was passed to Probe; BuildRows is the matched build row
// pointer for the same slot, or rowstore.Nil when the join kind emits a
// probe row with no build-side match (LEFT/OUTER/SINGLE miss) or no
// probe-side payload (MARK/SEMI/ANTI, which only ever need ProbeSel).
// Mark, when JoinType is Mark, carries the three-valued membership
// result: 1 = true, 0 = false, -1 = unknown (NULL).
type Result struct {
	ProbeSel  []int32
	BuildRows []rowstore.RowPointer
	Mark      []int8
}

// Next fills a Result with up to maxRows pairs and reports whether the
// scan has more work after this call.
func (s *ScanStructure) Next(maxRows int) (*Result, bool) {
	res := &Result{}
	jt := s.jht.opts.JoinType

	for s.cursor < len(s.states) && len(res.ProbeSel) < maxRows {
		i := s.cursor
		st := &s.states[i]

		switch jt {
		case Inner, Left, Right, Outer, Single:
			s.advanceEquiJoin(i, st, res, maxRows)
		case Semi, RightSemi:
			s.advanceSemi(i, st, res)
		case Anti, RightAnti:
			s.advanceAnti(i, st, res)
		case Mark:
			s.advanceMark(i, st, res)
		}

		if st.exhausted {
			s.cursor++
		} else if len(res.ProbeSel) >= maxRows {
			break
		}
	}

	return res, s.cursor < len(s.states)
}

// advanceEquiJoin walks row i's chain, emitting one result pair per
// matching build row; for LEFT/OUTER/SINGLE it emits exactly one
// null-build-side row if the chain is exhausted with no match found.
func (s *ScanStructure) advanceEquiJoin(i int, st *rowState, res *Result, maxRows int) {
	jt := s.jht.opts.JoinType
	for !st.exhausted && len(res.ProbeSel) < maxRows {
		ptr := st.chain
		st.chain = s.jht.chainNext(ptr)
		if st.chain.IsNil() {
			st.exhausted = true
		}
		if !s.rowMatches(i, ptr) {
			continue
		}
		st.anyMatch = true
		s.jht.markMatched(s.jht.rowIndex(ptr))
		res.ProbeSel = append(res.ProbeSel, int32(i))
		res.BuildRows = append(res.BuildRows, ptr)
		if jt == Single {
			st.exhausted = true
			break
		}
	}
	if st.exhausted && !st.anyMatch && !st.terminated && (jt == Left || jt == Outer || jt == Single) {
		st.terminated = true
		res.ProbeSel = append(res.ProbeSel, int32(i))
		res.BuildRows = append(res.BuildRows, rowstore.Nil)
	}
}

func (s *ScanStructure) advanceSemi(i int, st *rowState, res *Result) {
	for !st.exhausted {
		ptr := st.chain
		st.chain = s.jht.chainNext(ptr)
		if st.chain.IsNil() {
			st.exhausted = true
		}
		if s.rowMatches(i, ptr) {
			st.anyMatch = true
			s.jht.markMatched(s.jht.rowIndex(ptr))
			res.ProbeSel = append(res.ProbeSel, int32(i))
			res.BuildRows = append(res.BuildRows, ptr)
			st.exhausted = true
			return
		}
	}
}

func (s *ScanStructure) advanceAnti(i int, st *rowState, res *Result) {
	for !st.exhausted {
		ptr := st.chain
		st.chain = s.jht.chainNext(ptr)
		if st.chain.IsNil() {
			st.exhausted = true
		}
		if s.rowMatches(i, ptr) {
			st.anyMatch = true
			st.exhausted = true
			return
		}
	}
	if !st.anyMatch {
		res.ProbeSel = append(res.ProbeSel, int32(i))
		res.BuildRows = append(res.BuildRows, rowstore.Nil)
	}
}

// advanceMark resolves the three-valued membership test for probe row
// i: true if any build row matches; NULL if the probe row's own key was
// null on a non-null-equal condition, or if no match was found and the
// build side contains a NULL join key — consulting the correlated side
// aggregate when one exists, or the table-wide hasNull flag otherwise;
// false in every other no-match case.
func (s *ScanStructure) advanceMark(i int, st *rowState, res *Result) {
	for !st.exhausted {
		ptr := st.chain
		st.chain = s.jht.chainNext(ptr)
		if st.chain.IsNil() {
			st.exhausted = true
		}
		if s.rowMatches(i, ptr) {
			st.anyMatch = true
			st.exhausted = true
		}
	}
	res.ProbeSel = append(res.ProbeSel, int32(i))
	switch {
	case st.nullKey:
		res.Mark = append(res.Mark, -1)
	case st.anyMatch:
		res.Mark = append(res.Mark, 1)
	case s.jht.markAgg != nil && len(s.groupHashes) > i:
		if s.jht.markAgg.HasNullInGroup(s.groupHashes[i]) {
			res.Mark = append(res.Mark, -1)
		} else {
			res.Mark = append(res.Mark, 0)
		}
	case len(s.groupHashes) == 0 && s.jht.hasNull:
		res.Mark = append(res.Mark, -1)
	default:
		res.Mark = append(res.Mark, 0)
	}
}

// rowMatches re-verifies every condition against build row ptr: the
// bucket chain only guarantees hash equality, not value equality, so
// every candidate must still be checked column by column (this is also
// where non-equality join predicates, if any, get evaluated).
func (s *ScanStructure) rowMatches(probeRow int, ptr rowstore.RowPointer) bool {
	row := s.jht.rows.RowBytes(ptr)
	for _, cond := range s.jht.opts.Conditions {
		probeVec := s.probeCols[cond.ProbeColumn]
		typ := s.jht.opts.BuildColumns[cond.BuildColumn]
		colOff := s.jht.layout.ColumnOffset(cond.BuildColumn)
		buildNull := !s.jht.layout.ColumnValid(row, cond.BuildColumn)

		if typ.Oid == types.T_varchar {
			if probeVec.IsNull(probeRow) || buildNull {
				if !(cond.NullEqual && probeVec.IsNull(probeRow) && buildNull) {
					return false
				}
				continue
			}
			built := colops.Gather(typ, [][]byte{row}, colOff, s.jht.rows)
			if !colops.MatchVarchar(probeVec.Varchar()[probeRow], built.Varchar()[0], cond.Op) {
				return false
			}
			continue
		}

		if !colops.Match(probeVec, probeRow, row[colOff:colOff+typ.Width], buildNull, cond.Op, cond.NullEqual) {
			return false
		}
	}
	return true
}

func (jht *JoinHashTable) rowIndex(ptr rowstore.RowPointer) int64 {
	return int64(ptr.Block)*int64(jht.opts.RowsPerBlock) + int64(ptr.Row)
}
