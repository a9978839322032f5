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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

func newPool() *buffer.Pool { return buffer.NewPool(4096, 0, nil) }

func equiOptions(jt JoinType) *Options {
	return &Options{
		JoinType:     jt,
		Conditions:   []Condition{{ProbeColumn: 0, BuildColumn: 0, Op: colops.Equal}},
		BuildColumns: []types.Type{types.Int64},
	}
}

func scanAll(t *testing.T, scan *ScanStructure) *Result {
	t.Helper()
	out := &Result{}
	for {
		res, more := scan.Next(1024)
		out.ProbeSel = append(out.ProbeSel, res.ProbeSel...)
		out.BuildRows = append(out.BuildRows, res.BuildRows...)
		out.Mark = append(out.Mark, res.Mark...)
		if !more {
			break
		}
	}
	return out
}

func TestInnerJoinMatchesOnEquality(t *testing.T) {
	jht := New(equiOptions(Inner), newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{1, 2, 2, 3})}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{2, 4})}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	// probe row 0 (key 2) matches both build rows with key 2; probe row
	// 1 (key 4) matches nothing and Inner never emits a miss row.
	require.Len(t, res.ProbeSel, 2)
	for _, p := range res.ProbeSel {
		require.EqualValues(t, 0, p)
	}
}

func TestLeftJoinEmitsNullBuildRowOnMiss(t *testing.T) {
	jht := New(equiOptions(Left), newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{1})}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{1, 99})}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.ProbeSel, 2)
	require.EqualValues(t, 0, res.ProbeSel[0])
	require.False(t, res.BuildRows[0].IsNil())
	require.EqualValues(t, 1, res.ProbeSel[1])
	require.True(t, res.BuildRows[1].IsNil())
}

func TestSingleJoinEmitsAtMostOneRowPerProbeRow(t *testing.T) {
	jht := New(equiOptions(Single), newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{1, 1, 1})}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{1})}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.ProbeSel, 1)
	require.False(t, res.BuildRows[0].IsNil())
}

func TestSemiJoinEmitsProbeRowOnceOnAnyMatch(t *testing.T) {
	jht := New(equiOptions(Semi), newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{5, 5, 5})}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{5, 6})}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.ProbeSel, 1)
	require.EqualValues(t, 0, res.ProbeSel[0])
}

func TestAntiJoinEmitsProbeRowOnlyWhenNoMatch(t *testing.T) {
	jht := New(equiOptions(Anti), newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{5})}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{5, 6})}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.ProbeSel, 1)
	require.EqualValues(t, 1, res.ProbeSel[0])
	require.True(t, res.BuildRows[0].IsNil())
}

func TestRightJoinEmitsUnmatchedBuildRowsViaFullOuterScanner(t *testing.T) {
	jht := New(equiOptions(Right), newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{1, 2, 3})}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{2})}, nil)
	require.NoError(t, err)
	_ = scanAll(t, scan)

	fo, err := jht.NewFullOuterScanner()
	require.NoError(t, err)
	var unmatched []rowstore.RowPointer
	for {
		rows, more := fo.Next(64)
		unmatched = append(unmatched, rows...)
		if !more {
			break
		}
	}
	// build rows for keys 1 and 3 were never matched by the probe chunk.
	require.Len(t, unmatched, 2)
}

func TestRightSemiAndRightAntiPartitionBuildRows(t *testing.T) {
	semi := New(equiOptions(RightSemi), newPool())
	require.NoError(t, semi.Build([]*vector.Vector{vector.NewInt64([]int64{1, 2, 3})}, nil))
	require.NoError(t, semi.Finalize())
	scanSemi, err := semi.Probe([]*vector.Vector{vector.NewInt64([]int64{2})}, nil)
	require.NoError(t, err)
	_ = scanAll(t, scanSemi)
	foSemi, err := semi.NewFullOuterScanner()
	require.NoError(t, err)
	rowsSemi, _ := foSemi.Next(64)
	require.Len(t, rowsSemi, 1)

	anti := New(equiOptions(RightAnti), newPool())
	require.NoError(t, anti.Build([]*vector.Vector{vector.NewInt64([]int64{1, 2, 3})}, nil))
	require.NoError(t, anti.Finalize())
	scanAnti, err := anti.Probe([]*vector.Vector{vector.NewInt64([]int64{2})}, nil)
	require.NoError(t, err)
	_ = scanAll(t, scanAnti)
	foAnti, err := anti.NewFullOuterScanner()
	require.NoError(t, err)
	rowsAnti, _ := foAnti.Next(64)
	require.Len(t, rowsAnti, 2)
}

func TestMarkJoinThreeValuedResult(t *testing.T) {
	opts := equiOptions(Mark)
	jht := New(opts, newPool())

	// correlated group 0 has a NULL join key among its build rows;
	// group 1 does not.
	buildKeys := vector.NewInt64([]int64{0, 10, 20})
	buildKeys.Nsp.Add(0)
	groupCol := vector.NewInt64([]int64{0, 0, 1})
	require.NoError(t, jht.Build([]*vector.Vector{buildKeys}, []*vector.Vector{groupCol}))
	require.NoError(t, jht.Finalize())

	probeKeys := vector.NewInt64([]int64{10, 99, 99})
	probeGroups := vector.NewInt64([]int64{0, 0, 1})
	scan, err := jht.Probe([]*vector.Vector{probeKeys}, []*vector.Vector{probeGroups})
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.Mark, 3)
	require.EqualValues(t, 1, res.Mark[0])  // matched directly
	require.EqualValues(t, -1, res.Mark[1]) // no match, group has a NULL key
	require.EqualValues(t, 0, res.Mark[2])  // no match, group has no NULL key
}

func TestMarkJoinPlainHasNullYieldsUnknown(t *testing.T) {
	opts := equiOptions(Mark)
	jht := New(opts, newPool())

	buildKeys := vector.NewInt64([]int64{1, 0})
	buildKeys.Nsp.Add(1)
	require.NoError(t, jht.Build([]*vector.Vector{buildKeys}, nil))
	require.NoError(t, jht.Finalize())

	scan, err := jht.Probe([]*vector.Vector{vector.NewInt64([]int64{1, 2, 3})}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.Mark, 3)
	require.EqualValues(t, 1, res.Mark[0])  // matched directly
	require.EqualValues(t, -1, res.Mark[1]) // no match, but build has a NULL key
	require.EqualValues(t, -1, res.Mark[2]) // no match, but build has a NULL key
}

func TestMarkJoinNullProbeKeyYieldsUnknown(t *testing.T) {
	opts := equiOptions(Mark)
	jht := New(opts, newPool())
	require.NoError(t, jht.Build([]*vector.Vector{vector.NewInt64([]int64{1, 2, 3})}, nil))
	require.NoError(t, jht.Finalize())

	probeKeys := vector.NewInt64([]int64{1, 0})
	probeKeys.Nsp.Add(1)
	scan, err := jht.Probe([]*vector.Vector{probeKeys}, nil)
	require.NoError(t, err)
	res := scanAll(t, scan)

	require.Len(t, res.Mark, 2)
	require.EqualValues(t, 1, res.Mark[0])  // matched directly
	require.EqualValues(t, -1, res.Mark[1]) // probe row's own key was NULL
}

func TestExternalTableProbeAndBuildReplaysResidualAcrossRounds(t *testing.T) {
	opts := equiOptions(Inner)
	opts.InitialRadixBits = 2
	opts.RowsPerBlock = 4

	keys := make([]int64, 32)
	for i := range keys {
		keys[i] = int64(i % 5)
	}

	// A tiny capacity forces SelectCutoff to commit only partition 0 in
	// the first round, so probing immediately after PartitionBuild must
	// route some rows into the residual table rather than dropping them.
	pool := buffer.NewPool(4096, 8, nil)
	global := New(opts, pool)
	require.NoError(t, global.Build([]*vector.Vector{vector.NewInt64(keys)}, nil))

	ext := NewExternalTable(opts, pool)
	require.NoError(t, ext.PartitionBuild(global))
	require.Len(t, ext.Committed(), 1)

	probe := vector.NewInt64([]int64{0, 1, 2, 3, 4})
	round1, err := ext.ProbeAndBuild([]*vector.Vector{probe}, nil)
	require.NoError(t, err)

	var matches int
	for _, pp := range round1 {
		res := scanAll(t, pp.Scan)
		matches += len(res.ProbeSel)
	}

	// Advance the cutoff past every partition PartitionBuild produced and
	// replay whatever ProbeAndBuild sank into the residual table.
	replay, err := ext.PreparePartitionedProbe(1 << opts.InitialRadixBits)
	require.NoError(t, err)
	require.NotNil(t, replay)
	require.Len(t, ext.Committed(), 1<<opts.InitialRadixBits)

	round2, err := ext.ProbeAndBuild(replay, nil)
	require.NoError(t, err)
	for _, pp := range round2 {
		res := scanAll(t, pp.Scan)
		matches += len(res.ProbeSel)
	}

	// A third ProbeAndBuild call against the already-fully-committed
	// cutoff must not sink anything further into a fresh residual table.
	round3, err := ext.ProbeAndBuild([]*vector.Vector{probe}, nil)
	require.NoError(t, err)
	for _, pp := range round3 {
		res := scanAll(t, pp.Scan)
		matches += len(res.ProbeSel)
	}

	reference := New(equiOptions(Inner), newPool())
	require.NoError(t, reference.Build([]*vector.Vector{vector.NewInt64(keys)}, nil))
	require.NoError(t, reference.Finalize())
	refScan, err := reference.Probe([]*vector.Vector{probe}, nil)
	require.NoError(t, err)
	refRes := scanAll(t, refScan)

	// round1+round2 replay every probe row exactly once each against the
	// fully partitioned build side; round3 repeats the same probe chunk
	// once more, now that every partition is committed.
	require.EqualValues(t, 2*len(refRes.ProbeSel), matches)
}

func TestExternalTablePartitionedBuildMatchesDirectBuild(t *testing.T) {
	pool := newPool()
	opts := equiOptions(Inner)
	opts.InitialRadixBits = 1
	opts.RowsPerBlock = 4

	global := New(opts, pool)
	keys := make([]int64, 16)
	for i := range keys {
		keys[i] = int64(i % 5)
	}
	require.NoError(t, global.Build([]*vector.Vector{vector.NewInt64(keys)}, nil))

	ext := NewExternalTable(opts, pool)
	require.NoError(t, ext.PartitionBuild(global))
	for {
		done, err := ext.FinalizeExternal()
		require.NoError(t, err)
		if done {
			break
		}
	}

	var total int64
	for _, part := range ext.Committed() {
		total += part.RowCount()
	}
	require.EqualValues(t, len(keys), total)

	var matches int
	probe := vector.NewInt64([]int64{0, 1, 2, 3, 4})
	for _, part := range ext.Committed() {
		scan, err := part.Probe([]*vector.Vector{probe}, nil)
		require.NoError(t, err)
		res := scanAll(t, scan)
		matches += len(res.ProbeSel)
	}
	// each of keys 0..4 appears len(keys)/5 times on the build side.
	require.EqualValues(t, len(keys), matches)
}
