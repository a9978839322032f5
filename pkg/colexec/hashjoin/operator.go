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

package hashjoin

import (
	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/container/batch"
	"github.com/vecjoin/joinhash/pkg/container/vector"
	"github.com/vecjoin/joinhash/pkg/jointable"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// Build appends one build-side chunk. correlated carries the
// correlated subquery's grouping columns for a MARK join's side
// aggregate; pass nil for every other join kind.
func (op *Operator) Build(bat *batch.Batch, correlated *batch.Batch) error {
	if bat == nil {
		return moerr.NewInvalidInput("hashjoin: Build given a nil batch")
	}
	var corrVecs []*vector.Vector
	if correlated != nil {
		corrVecs = correlated.Vecs
	}
	return op.jht.Build(bat.Vecs, corrVecs)
}

// FinalizeBuild closes out the build side and threads the hash bucket
// chains. No more Build calls are valid after this.
func (op *Operator) FinalizeBuild() error {
	return op.jht.Finalize()
}

// Call drains one result batch. Pass the next probe-side chunk to start
// scanning it; pass nil once the probe side is exhausted to drain the
// RIGHT/OUTER/RIGHT_SEMI/RIGHT_ANTI build-side tail, if this join kind
// has one. probeCorrelated carries a MARK join's correlated grouping
// columns for this probe chunk; pass nil for every other join kind.
// Returns a nil batch and done=true once there is nothing left at all.
func (op *Operator) Call(probeBat *batch.Batch, probeCorrelated *batch.Batch) (result *batch.Batch, done bool, err error) {
	for {
		switch op.state {
		case stateProbe:
			if op.scan == nil {
				if probeBat == nil {
					op.state = stateFullOuter
					continue
				}
				var corrVecs []*vector.Vector
				if probeCorrelated != nil {
					corrVecs = probeCorrelated.Vecs
				}
				op.scan, err = op.jht.Probe(probeBat.Vecs, corrVecs)
				if err != nil {
					return nil, false, err
				}
				op.scanBat = probeBat
			}

			res, more := op.scan.Next(op.opts.BatchSize)
			if !more {
				op.scan = nil
				op.scanBat = nil
			}
			if len(res.ProbeSel) == 0 {
				if more {
					continue
				}
				return nil, false, nil
			}
			out := op.materializeProbeResult(res)
			return out, false, nil

		case stateFullOuter:
			if op.fullOuter == nil {
				if !op.jht.IsFinalized() {
					return nil, false, moerr.NewInvariantViolation("hashjoin: Call reached full-outer tail before Finalize")
				}
				if !op.needsFullOuterTail() {
					op.state = stateEnd
					continue
				}
				op.fullOuter, err = op.jht.NewFullOuterScanner()
				if err != nil {
					return nil, false, err
				}
			}
			ptrs, more := op.fullOuter.Next(op.opts.BatchSize)
			if !more {
				op.state = stateEnd
			}
			if len(ptrs) == 0 {
				if !more {
					continue
				}
				return nil, false, nil
			}
			return op.materializeBuildOnly(ptrs), false, nil

		default:
			return nil, true, nil
		}
	}
}

func (op *Operator) needsFullOuterTail() bool {
	return op.opts.Join.JoinType.NeedsBuildMatchTracking()
}

// materializeProbeResult turns one ScanStructure.Result into an output
// batch, per column mapping, gathering probe-side columns straight from
// the scan's input chunk and build-side columns out of the row store.
func (op *Operator) materializeProbeResult(res *jointable.Result) *batch.Batch {
	vecs := make([]*vector.Vector, len(op.opts.ResultCols))
	for i, rc := range op.opts.ResultCols {
		switch rc.Rel {
		case 0:
			vecs[i] = op.scanBat.Vecs[rc.Pos].Take(res.ProbeSel)
		case 1:
			vecs[i] = op.gatherBuildColumn(rc.Pos, res.BuildRows)
		case relMark:
			vecs[i] = markVector(res.Mark)
		}
	}
	out := batch.New(nil, vecs)
	out.SetRowCount(len(res.ProbeSel))
	return out
}

// relMark is ResultColumn.Rel's third value: the MARK join's
// three-valued membership flag rather than a column read off either
// input side.
const relMark = 2

// markVector turns a Result.Mark slice (1/0/-1) into a Bool vector with
// NULL standing in for the unresolved-NULL-correlated-group case.
func markVector(mark []int8) *vector.Vector {
	out := make([]bool, len(mark))
	v := vector.NewBool(out)
	for i, m := range mark {
		switch m {
		case 1:
			out[i] = true
		case 0:
			out[i] = false
		default:
			v.Nsp.Add(uint64(i))
		}
	}
	return v
}

// materializeBuildOnly is the RIGHT/OUTER tail: every output row has no
// probe-side half, so probe-mapped columns come back all-null.
func (op *Operator) materializeBuildOnly(ptrs []rowstore.RowPointer) *batch.Batch {
	vecs := make([]*vector.Vector, len(op.opts.ResultCols))
	for i, rc := range op.opts.ResultCols {
		if rc.Rel == 1 {
			vecs[i] = op.gatherBuildColumn(rc.Pos, ptrs)
		} else {
			vecs[i] = nullProbeColumn(len(ptrs))
		}
	}
	out := batch.New(nil, vecs)
	out.SetRowCount(len(ptrs))
	return out
}

func nullProbeColumn(n int) *vector.Vector {
	sel := make([]int32, n)
	for i := range sel {
		sel[i] = -1
	}
	return vector.NewInt64(make([]int64, n)).Take(sel)
}

// gatherBuildColumn reads column col out of every row in ptrs, honoring
// rowstore.Nil (the LEFT/OUTER/SINGLE miss case) as an output NULL
// rather than a row-store lookup.
func (op *Operator) gatherBuildColumn(col int, ptrs []rowstore.RowPointer) *vector.Vector {
	typ := op.jht.BuildColumnType(col)
	colOff := op.jht.Layout().ColumnOffset(col)
	rowWidth := op.jht.Layout().RowWidth()
	zero := make([]byte, rowWidth)

	rows := make([][]byte, len(ptrs))
	isNull := make([]bool, len(ptrs))
	for i, ptr := range ptrs {
		if ptr.IsNil() {
			rows[i] = zero
			isNull[i] = true
			continue
		}
		row := op.jht.RowBytes(ptr)
		rows[i] = row
		if !op.jht.ColumnValid(row, col) {
			isNull[i] = true
		}
	}

	vec := colops.Gather(typ, rows, colOff, op.jht.HeapReader())
	for i, n := range isNull {
		if n {
			vec.Nsp.Add(uint64(i))
		}
	}
	return vec
}
