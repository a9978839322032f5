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
	"sort"

	"go.uber.org/zap"

	"github.com/vecjoin/joinhash/pkg/colops"
	"github.com/vecjoin/joinhash/pkg/common/buffer"
	"github.com/vecjoin/joinhash/pkg/common/moerr"
	"github.com/vecjoin/joinhash/pkg/container/types"
	"github.com/vecjoin/joinhash/pkg/container/vector"
	"github.com/vecjoin/joinhash/pkg/radix"
	"github.com/vecjoin/joinhash/pkg/rowstore"
)

// ExternalTable is the partitioned (out-of-core) build path: rows that
// don't all fit resident at once are radix-partitioned by the top bits
// of their hash, a prefix of partitions small enough to fit is
// finalized ("committed"), and the rest stay unswizzled ("pending")
// until a further round re-partitions them at one more radix bit.
//
// dests holds every partition from the round PartitionBuild ran, in
// partition-index order; cutoff is the boundary between the ones
// already finalized into committed and the ones a probe round still
// has to wait for. ProbeAndBuild/PreparePartitionedProbe walk that same
// dests/cutoff state to drive a partitioned probe: PartitionBuild and
// FinalizeExternal instead drive committed/pending, the build-only
// round loop that re-partitions at ever finer bits when even the first
// cutoff doesn't make everything fit.
type ExternalTable struct {
	opts *Options
	pool *buffer.Pool

	bits      int
	committed []*JoinHashTable
	pending   []*rowstore.Collection
	histogram *radix.Histogram
	cutoff    int
	round     int

	dests []*rowstore.Collection // every partition from the last PartitionBuild, committed or not

	residual      *JoinHashTable // sinks probe rows whose partition hasn't committed yet
	residualTypes []types.Type

	log *zap.Logger
}

func NewExternalTable(opts *Options, pool *buffer.Pool) *ExternalTable {
	opts = opts.withDefaults()
	return &ExternalTable{
		opts: opts,
		pool: pool,
		bits: opts.InitialRadixBits,
		log:  opts.Logger,
	}
}

// PartitionsFitInMemory resolves SPEC_FULL.md §9's open question: true
// when the largest pending partition's projected resident size is
// still under the pool's budget, at the current radix bit count. The
// reference leaves this permanently false (its buffer manager decides
// paging on its own); here it's load-bearing, since ExternalTable's
// round loop uses it to decide whether to commit the remaining
// partitions outright instead of re-partitioning again.
func (e *ExternalTable) PartitionsFitInMemory(rowWidth int64) bool {
	if e.histogram == nil {
		return true
	}
	var maxRows int64
	for i := e.cutoff; i < len(e.histogram.Counts); i++ {
		if e.histogram.Counts[i] > maxRows {
			maxRows = e.histogram.Counts[i]
		}
	}
	projected := maxRows * rowWidth
	return !e.pool.IsOverBudget(e.opts.MemoryBudgetFactor) ||
		projected < int64(float64(e.pool.Capacity())*e.opts.MemoryBudgetFactor)
}

// PinPartitions pins only the committed window [0, cutoff), resolving
// SPEC_FULL.md §9's second open question: pending partitions stay
// unswizzled (unpinned) until their own round promotes them.
func (e *ExternalTable) PinPartitions() {
	for _, t := range e.committed {
		t.rows.Swizzle()
	}
}

// PartitionBuild takes a fully-built (un-Finalized) global table and
// splits it by the top e.bits bits of each row's hash. Partitions
// [0, cutoff) are finalized into committed JoinHashTables; the rest are
// unswizzled and kept as pending collections for FinalizeExternal's
// next round, and dests keeps every partition (committed or not) for
// ProbeAndBuild/PreparePartitionedProbe to route against.
func (e *ExternalTable) PartitionBuild(global *JoinHashTable) error {
	if global.finalized {
		return moerr.NewInvariantViolation("jointable: PartitionBuild given an already-finalized table")
	}

	dests, hist, err := radix.Partition(global.rows, e.pool, e.opts.RowsPerBlock, e.bits)
	if err != nil {
		return err
	}
	e.histogram = hist
	e.dests = dests

	rowWidth := int64(global.layout.RowWidth())
	maxResident := int64(float64(e.pool.Capacity()) * e.opts.MemoryBudgetFactor)
	if maxResident <= 0 {
		maxResident = 1 << 62
	}
	maxRows := maxResident / rowWidth
	e.cutoff = hist.SelectCutoff(maxRows)
	if e.cutoff == 0 {
		e.cutoff = 1
	}

	e.committed = make([]*JoinHashTable, 0, e.cutoff)
	for i := 0; i < e.cutoff; i++ {
		t := &JoinHashTable{
			opts:   e.opts,
			pool:   e.pool,
			layout: global.layout,
			rows:   dests[i],
			log:    e.log,
		}
		if err := t.Finalize(); err != nil {
			return err
		}
		e.committed = append(e.committed, t)
	}

	e.pending = dests[e.cutoff:]
	for _, p := range e.pending {
		p.Unswizzle()
	}

	e.round++
	e.log.Debug("jointable: partition round complete",
		zap.Int("round", e.round),
		zap.Int("bits", e.bits),
		zap.Int("cutoff", e.cutoff),
		zap.Int("pending", len(e.pending)))
	return nil
}

// FinalizeExternal re-partitions every pending collection at one more
// radix bit and repeats the commit decision, returning true once there
// are no pending partitions left. Every pending collection already
// shares one top-e.bits-bit prefix (it's exactly the rows PartitionBuild
// didn't commit), so re-hashing it at e.bits+1 bits only ever produces
// two non-empty sub-partitions — the two children of its own prefix.
func (e *ExternalTable) FinalizeExternal() (done bool, err error) {
	if len(e.pending) == 0 {
		return true, nil
	}
	newBits := e.bits + 1
	var merged *radix.Histogram
	for i, p := range e.pending {
		p.Swizzle()
		dests, hist, perr := radix.Partition(p, e.pool, e.opts.RowsPerBlock, newBits)
		if perr != nil {
			return false, perr
		}
		if merged == nil {
			merged = hist
		} else if merr := radix.Merge(merged, hist); merr != nil {
			return false, merr
		}

		origIdx := e.cutoff + i
		for _, subIdx := range [2]int{2 * origIdx, 2*origIdx + 1} {
			d := dests[subIdx]
			if d.RowCount() == 0 {
				continue
			}
			t := &JoinHashTable{opts: e.opts, pool: e.pool, layout: p.Layout, rows: d, log: e.log}
			if ferr := t.Finalize(); ferr != nil {
				return false, ferr
			}
			e.committed = append(e.committed, t)
		}
	}
	e.bits = newBits
	e.histogram = merged
	e.pending = nil
	e.round++
	return true, nil
}

// Committed returns every finalized partition table built so far, for
// a caller to Probe against in round order.
func (e *ExternalTable) Committed() []*JoinHashTable { return e.committed }

func (e *ExternalTable) PartitionRound() int { return e.round }

// PartitionProbe is one committed partition's share of a ProbeAndBuild
// call: Sel maps each row Scan walks back to its position in the probe
// chunk ProbeAndBuild was given.
type PartitionProbe struct {
	Table *JoinHashTable
	Sel   []int32
	Scan  *ScanStructure
}

// ProbeAndBuild classifies one probe chunk against the current
// partition cutoff: rows whose hash partition is already committed
// (< cutoff) are grouped by partition and probed immediately, one
// PartitionProbe per committed table they touch; rows whose partition
// is still pending (>= cutoff) are appended into the residual local
// table instead of being dropped, so PreparePartitionedProbe can hand
// them back for a later round once their partition commits.
func (e *ExternalTable) ProbeAndBuild(probeCols []*vector.Vector, probeCorrelatedCols []*vector.Vector) ([]PartitionProbe, error) {
	if len(probeCols) == 0 {
		return nil, moerr.NewInvalidInput("jointable: ProbeAndBuild needs at least one column")
	}
	if e.histogram == nil {
		return nil, moerr.NewInvariantViolation("jointable: ProbeAndBuild called before PartitionBuild")
	}

	n := probeCols[0].Length()
	hashes := make([]uint64, n)
	colops.Hash(probeCols[e.opts.Conditions[0].ProbeColumn], hashes)
	for _, cond := range e.opts.Conditions[1:] {
		colops.CombineHash(probeCols[cond.ProbeColumn], hashes)
	}

	inScope, pending := radix.Select(hashes, nil, n, e.bits, e.cutoff)

	if len(pending) > 0 {
		e.ensureResidual(probeCols)
		if err := e.residual.Build(takeColumns(probeCols, pending), nil); err != nil {
			return nil, err
		}
	}

	byPartition := make(map[int][]int32, len(e.committed))
	for _, row := range inScope {
		part := e.histogram.PartitionOf(hashes[row])
		byPartition[part] = append(byPartition[part], row)
	}

	parts := make([]int, 0, len(byPartition))
	for part := range byPartition {
		parts = append(parts, part)
	}
	sort.Ints(parts)

	out := make([]PartitionProbe, 0, len(parts))
	for _, part := range parts {
		if part >= len(e.committed) {
			continue
		}
		sel := byPartition[part]
		var subCorrelated []*vector.Vector
		if len(probeCorrelatedCols) > 0 {
			subCorrelated = takeColumns(probeCorrelatedCols, sel)
		}
		scan, err := e.committed[part].Probe(takeColumns(probeCols, sel), subCorrelated)
		if err != nil {
			return nil, err
		}
		out = append(out, PartitionProbe{Table: e.committed[part], Sel: sel, Scan: scan})
	}
	return out, nil
}

// PreparePartitionedProbe advances the cutoff to newCutoff (clamped to
// the number of partitions PartitionBuild produced), finalizing
// dests[cutoff, newCutoff) into committed tables, and resets the shared
// probe-round state: it drains every row ProbeAndBuild sank into the
// residual table back out as columns, ready to be replayed through
// ProbeAndBuild again now that more of the cutoff window has committed.
func (e *ExternalTable) PreparePartitionedProbe(newCutoff int) ([]*vector.Vector, error) {
	if newCutoff > len(e.dests) {
		newCutoff = len(e.dests)
	}
	if newCutoff <= e.cutoff {
		return nil, moerr.NewInvariantViolation(
			"jointable: PreparePartitionedProbe cutoff must advance past %d, got %d", e.cutoff, newCutoff)
	}

	for i := e.cutoff; i < newCutoff; i++ {
		d := e.dests[i]
		d.Swizzle()
		t := &JoinHashTable{opts: e.opts, pool: e.pool, layout: d.Layout, rows: d, log: e.log}
		if err := t.Finalize(); err != nil {
			return nil, err
		}
		e.committed = append(e.committed, t)
	}
	e.cutoff = newCutoff
	e.round++

	replay := e.drainResidual()
	e.residual = nil
	e.residualTypes = nil
	return replay, nil
}

// ensureResidual lazily builds the residual table's own schema from the
// shape of the probe chunk it first sees: a plain (non-correlated)
// table whose "build" columns are exactly the probe columns, and whose
// conditions hash the same column index the real join probes by, so
// draining it back out later reproduces the sunk rows unchanged.
func (e *ExternalTable) ensureResidual(probeCols []*vector.Vector) {
	if e.residual != nil {
		return
	}
	colTypes := make([]types.Type, len(probeCols))
	for i, c := range probeCols {
		colTypes[i] = c.Typ
	}
	conds := make([]Condition, len(e.opts.Conditions))
	for i, cond := range e.opts.Conditions {
		conds[i] = Condition{ProbeColumn: cond.ProbeColumn, BuildColumn: cond.ProbeColumn, Op: cond.Op, NullEqual: cond.NullEqual}
	}
	residualOpts := &Options{
		JoinType:     Inner,
		Conditions:   conds,
		BuildColumns: colTypes,
		RowsPerBlock: e.opts.RowsPerBlock,
		Logger:       e.log,
	}
	e.residualTypes = colTypes
	e.residual = New(residualOpts, e.pool)
}

func (e *ExternalTable) drainResidual() []*vector.Vector {
	if e.residual == nil || e.residual.RowCount() == 0 {
		return nil
	}
	return gatherCollectionColumns(e.residual.rows, e.residual.layout, e.residualTypes)
}

// takeColumns applies vector.Vector.Take to every column in cols with
// the same selection vector, the idiom a join operator uses to carve a
// sub-chunk out of a probe chunk by row index.
func takeColumns(cols []*vector.Vector, sel []int32) []*vector.Vector {
	out := make([]*vector.Vector, len(cols))
	for i, c := range cols {
		out[i] = c.Take(sel)
	}
	return out
}

// gatherCollectionColumns reconstructs every column of c as a full
// vector.Vector, in row-store order, the inverse of rowstore.Collection
// .Append/colops.Scatter. Used to replay rows a residual table sank
// during an earlier probe round.
func gatherCollectionColumns(c *rowstore.Collection, layout *rowstore.Layout, colTypes []types.Type) []*vector.Vector {
	var rows [][]byte
	c.ForEachBlock(func(blockIdx int32, rowCount int32, rowAt func(int32) []byte) {
		for r := int32(0); r < rowCount; r++ {
			rows = append(rows, rowAt(r))
		}
	})

	cols := make([]*vector.Vector, len(colTypes))
	for i, typ := range colTypes {
		off := layout.ColumnOffset(i)
		v := colops.Gather(typ, rows, off, c)
		for r, row := range rows {
			if !layout.ColumnValid(row, i) {
				v.Nsp.Add(uint64(r))
			}
		}
		cols[i] = v
	}
	return cols
}
